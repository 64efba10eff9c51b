package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qs3c/review_comments/config"
	"github.com/qs3c/review_comments/internal/api"
	"github.com/qs3c/review_comments/internal/api/handler"
	"github.com/qs3c/review_comments/internal/database"
	"github.com/qs3c/review_comments/internal/pkg/cron"
	"github.com/qs3c/review_comments/internal/pkg/pubsub"
	"github.com/qs3c/review_comments/internal/pkg/ws"
	"github.com/qs3c/review_comments/internal/repository"
	"github.com/qs3c/review_comments/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	defer rdb.Close()
	log.Println("Redis connected")

	wsHub := ws.NewHub()

	commentRepo := repository.NewCommentRepository(db)
	commentService := service.NewCommentService(commentRepo, pubsub.NewPublisher(rdb), cfg)

	// 定期清理过期的软删除评论
	if cfg.Cleanup.RetentionDays > 0 {
		cronService := cron.NewService(commentRepo, cfg.Cleanup.Retention(), cfg.Cleanup.Interval)
		cronService.Start()
		defer cronService.Stop()
	}

	commentHandler := handler.NewCommentHandler(commentService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins)

	router := api.NewRouter(commentHandler, websocketHandler, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router.Setup(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Redis 上的评审更新转发给订阅了该评审的 websocket 连接
	g.Go(func() error {
		log.Println("Review update fan-out started")
		err := pubsub.NewSubscriber(rdb).SubscribeAll(ctx, func(reviewID string, payload []byte) {
			wsHub.BroadcastToReview(reviewID, payload)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		log.Printf("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
	log.Println("Server stopped")
}
