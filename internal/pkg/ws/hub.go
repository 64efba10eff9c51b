package ws

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub 按评审 ID 维护订阅中的 websocket 连接
type Hub struct {
	// 一个连接可以同时订阅多个评审
	reviews map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	ViewerID  string
	ReviewIDs []string
	Conn      *websocket.Conn
	mu        sync.Mutex // 写锁，防止并发写入
}

func NewHub() *Hub {
	return &Hub{
		reviews: make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = struct{}{}
	for _, reviewID := range client.ReviewIDs {
		if h.reviews[reviewID] == nil {
			h.reviews[reviewID] = make(map[*Client]struct{})
		}
		h.reviews[reviewID][client] = struct{}{}
	}

	log.Printf("Viewer %s subscribed to %d reviews, total conns: %d", client.ViewerID, len(client.ReviewIDs), len(h.clients))
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	for _, reviewID := range client.ReviewIDs {
		if conns, ok := h.reviews[reviewID]; ok {
			delete(conns, client)
			if len(conns) == 0 {
				delete(h.reviews, reviewID)
			}
		}
	}
	log.Printf("Viewer %s disconnected", client.ViewerID)
}

// BroadcastToReview 把已编码的消息发给订阅该评审的所有连接
func (h *Hub) BroadcastToReview(reviewID string, payload []byte) int {
	h.mu.RLock()
	conns, ok := h.reviews[reviewID]
	if !ok {
		h.mu.RUnlock()
		return 0
	}
	// 复制一份引用，避免长时间持锁
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		if err := c.Write(payload); err != nil {
			log.Printf("BroadcastToReview write error for review %s: %v", reviewID, err)
			continue
		}
		sent++
	}
	return sent
}

// Write 串行写入一条文本消息
func (c *Client) Write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, payload)
}

// IsWatched 是否有连接订阅了该评审
func (h *Hub) IsWatched(reviewID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.reviews[reviewID]
	return ok && len(conns) > 0
}

// ConnectionCount 获取在线连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
