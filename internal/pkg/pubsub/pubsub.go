package pubsub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/qs3c/review_comments/internal/model"
)

// ErrChannelClosed 订阅的消息通道被关闭
var ErrChannelClosed = errors.New("review updates channel closed")

// ChannelPrefix 每个评审一个频道：review_updates:<reviewID>
const ChannelPrefix = "review_updates:"

// Channel 返回评审对应的频道名
func Channel(reviewID string) string {
	return ChannelPrefix + reviewID
}

// ReviewIDFromChannel 从频道名解析评审 ID
func ReviewIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, ChannelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(channel, ChannelPrefix)
	return id, id != ""
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布评审更新事件
func (p *Publisher) Publish(ctx context.Context, update model.ReviewUpdate) error {
	data, err := EncodeUpdate(update)
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, Channel(update.ReviewKey()), data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅指定评审的更新事件，阻塞直到 ctx 取消或连接断开。
// 无法解析的消息记录日志后丢弃。
func (s *Subscriber) Subscribe(ctx context.Context, reviewIDs []string, handler func(model.ReviewUpdate)) error {
	if len(reviewIDs) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	channels := make([]string, len(reviewIDs))
	for i, id := range reviewIDs {
		channels[i] = Channel(id)
	}

	sub := s.client.Subscribe(ctx, channels...)
	defer sub.Close()

	// 等待订阅确认，尽早暴露连接错误
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe review updates: %w", err)
	}

	return receive(ctx, sub.Channel(), func(msg *redis.Message) {
		update, err := DecodeUpdate([]byte(msg.Payload))
		if err != nil {
			log.Printf("Dropping review update on %s: %v", msg.Channel, err)
			return
		}
		handler(update)
	})
}

// SubscribeAll 订阅所有评审的原始消息，服务端用它向 websocket 客户端转发
func (s *Subscriber) SubscribeAll(ctx context.Context, handler func(reviewID string, payload []byte)) error {
	sub := s.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe review updates: %w", err)
	}

	return receive(ctx, sub.Channel(), func(msg *redis.Message) {
		reviewID, ok := ReviewIDFromChannel(msg.Channel)
		if !ok {
			return
		}
		handler(reviewID, []byte(msg.Payload))
	})
}

// receive 逐条处理消息直到 ctx 取消。通道关闭视为错误返回，调用方据此重连或退出。
func receive(ctx context.Context, ch <-chan *redis.Message, fn func(*redis.Message)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return ErrChannelClosed
			}
			fn(msg)
		}
	}
}
