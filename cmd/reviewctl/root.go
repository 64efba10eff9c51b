package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/qs3c/review_comments/config"
	"github.com/qs3c/review_comments/internal/client"
	"github.com/qs3c/review_comments/internal/pkg/jwt"
	"github.com/qs3c/review_comments/internal/reviewcache"
)

var (
	configPath string
	reviewID   string
)

var rootCmd = &cobra.Command{
	Use:   "reviewctl",
	Short: "Read and write review comments from the terminal",
	Long: `reviewctl talks to the review comment server.

It keeps a local comment cache per review, follows live updates over the
websocket channel and offers the same create/reply/edit/delete/move
operations as the web client.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&reviewID, "review", "r", "", "Review id")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(replyCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(moveCmd)
}

// session 一次命令执行所需的客户端和缓存引擎
type session struct {
	viewerID string
	client   *client.Client
	engine   *reviewcache.Engine
	toasts   *reviewcache.ToastCenter
}

func newSession(stderr io.Writer) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	viewerID, err := jwt.ViewerIDFromToken(cfg.Client.Token)
	if err != nil {
		return nil, fmt.Errorf("client.token: %w", err)
	}

	c, err := client.New(&cfg.Client)
	if err != nil {
		return nil, err
	}

	toasts := reviewcache.NewToastCenter(func(t reviewcache.Toast) {
		printToast(stderr, t)
	})

	engine, err := reviewcache.NewEngine(c, c.NewSubscriber(), toasts, viewerID, cfg)
	if err != nil {
		return nil, err
	}

	return &session{
		viewerID: viewerID,
		client:   c,
		engine:   engine,
		toasts:   toasts,
	}, nil
}

func (s *session) Close() {
	s.engine.Close()
}

func requireReview() error {
	if reviewID == "" {
		return fmt.Errorf("--review is required")
	}
	return nil
}
