package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/review_comments/config"
	"github.com/qs3c/review_comments/internal/api/handler"
	"github.com/qs3c/review_comments/internal/api/middleware"
)

type Router struct {
	commentHandler   *handler.CommentHandler
	websocketHandler *handler.WebSocketHandler
	cfg              *config.Config
}

func NewRouter(
	commentHandler *handler.CommentHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		commentHandler:   commentHandler,
		websocketHandler: websocketHandler,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket 推送（reviewUpdates），token 走 query 参数
		api.GET("/ws", r.websocketHandler.Handle)

		// 评论（需要认证）
		reviews := api.Group("/reviews/:review_id")
		reviews.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			reviews.GET("/comments", r.commentHandler.List)
			reviews.POST("/comments", r.commentHandler.Create)
			reviews.PUT("/comments/:id", r.commentHandler.Update)
			reviews.DELETE("/comments/:id", r.commentHandler.Delete)
			reviews.PUT("/comments/:id/index", r.commentHandler.UpdateIndex)
		}
	}

	return engine
}
