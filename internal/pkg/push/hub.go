// Package push 维护 WebSocket 订阅者，并把订单事件实时广播出去。
package push

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"orderstream/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Envelope 是推送给客户端的消息格式
type Envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Hub 维护所有活跃的连接，并负责消息广播
type Hub struct {
	nodeID     string
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	lock       sync.RWMutex
	upgrader   websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		nodeID:     "push-" + uuid.New().String()[:8],
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool { // 前端看板与 API 不同源，允许所有跨域
				return true
			},
		},
	}
}

// Run 处理注册和注销，直到 ctx 结束；结束时关闭所有连接。
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client] = struct{}{}
			h.lock.Unlock()
			logger.L().Debug().Str("node", h.nodeID).Strs("channels", client.channelNames()).Msg("Client registered")
		case client := <-h.unregister:
			h.remove(client)
		case <-ctx.Done():
			h.lock.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.lock.Unlock()
			close(h.done)
			logger.L().Info().Str("node", h.nodeID).Msg("🛑 Push hub stopped.")
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount 返回当前在线的订阅者数量
func (h *Hub) ClientCount() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

// Publish 把 payload 广播给订阅了 channel 的所有客户端。
// 发送缓冲已满的慢客户端会被断开，Publish 本身从不阻塞在网络写上。
func (h *Hub) Publish(channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(Envelope{Channel: channel, Payload: data})
	if err != nil {
		return err
	}

	var slow []*Client
	h.lock.RLock()
	for client := range h.clients {
		if !client.subscribed(channel) {
			continue
		}
		select {
		case client.send <- msg:
		default:
			slow = append(slow, client)
		}
	}
	h.lock.RUnlock()

	for _, client := range slow {
		logger.L().Warn().Str("channel", channel).Msg("Dropping slow websocket client")
		h.drop(client)
	}
	return nil
}

// ServeWs 把 HTTP 连接升级为 WebSocket。
// ?channel=order-events,statistics-events 指定订阅的频道，不传则订阅全部。
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		channels: parseChannels(r.URL.Query()["channel"]),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func parseChannels(values []string) map[string]bool {
	channels := make(map[string]bool)
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				channels[name] = true
			}
		}
	}
	return channels
}
