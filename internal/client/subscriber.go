package client

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/qs3c/review_comments/internal/model"
	"github.com/qs3c/review_comments/internal/pkg/pubsub"
)

// Subscriber 通过服务端 websocket 接收评审更新
type Subscriber struct {
	wsURL  string
	token  string
	dialer *websocket.Dialer
}

// NewSubscriber 由 HTTP base url 推导 websocket 地址
func (c *Client) NewSubscriber() *Subscriber {
	wsURL := c.baseURL
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	return &Subscriber{
		wsURL:  wsURL + "/ws",
		token:  c.token,
		dialer: websocket.DefaultDialer,
	}
}

// Subscribe 阻塞读取推送，直到 ctx 取消或连接断开。
// 无法解析的消息记录日志后丢弃。
func (s *Subscriber) Subscribe(ctx context.Context, reviewIDs []string, handler func(model.ReviewUpdate)) error {
	if len(reviewIDs) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	query := url.Values{}
	query.Set("token", s.token)
	for _, id := range reviewIDs {
		query.Add("review_id", id)
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.wsURL+"?"+query.Encode(), http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect review updates (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect review updates: %w", err)
	}
	defer conn.Close()

	// ctx 取消时关闭连接以打断 ReadMessage
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("review updates connection lost: %w", err)
		}

		update, err := pubsub.DecodeUpdate(payload)
		if err != nil {
			log.Printf("Dropping review update: %v", err)
			continue
		}

		handler(update)
	}
}
