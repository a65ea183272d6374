package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"socialhub_backend/internal/repository"
	"socialhub_backend/pkg/logger"
	"socialhub_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	onlineTTL      = 2 * time.Minute // 在线状态过期时间
)

var (
	// 内存复用 (sync.Pool)
	eventPool = sync.Pool{
		New: func() interface{} {
			return &Event{}
		},
	}
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event 下发给客户端的实时事件载体
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Client struct {
	Hub     *RealtimeHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter // 限流器
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		// 限流校验 (每秒最多 30 条消息，允许突发 50 条)
		if !c.Limiter.Allow() {
			continue
		}

		// 对象池解析消息
		ev := eventPool.Get().(*Event)
		if err := json.Unmarshal(message, ev); err != nil {
			eventPool.Put(ev)
			continue
		}

		if ev.Type == "TYPING" {
			data, ok := ev.Data.(map[string]interface{})
			if !ok {
				eventPool.Put(ev)
				continue
			}
			convID, _ := data["conversationId"].(string)
			if convID == "" {
				eventPool.Put(ev)
				continue
			}

			c.Hub.HandleTransientEvent(c.UserID, convID, *ev)
		}
		eventPool.Put(ev)
	}
}

// HandleTransientEvent 处理不需要存库的瞬时事件转发 (如正在输入)
func (h *RealtimeHub) HandleTransientEvent(senderID uint, convID string, ev Event) {
	data, ok := ev.Data.(map[string]interface{})
	if !ok {
		return
	}
	data["userId"] = senderID
	ev.Data = data

	if h.ConvRepo == nil {
		return
	}
	ids, err := h.ConvRepo.ActiveParticipantIDs(convID, senderID)
	if err != nil || len(ids) == 0 {
		return
	}
	h.PushToUsers(ids, ev)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]*Client
	mu      sync.RWMutex
}

// RealtimeHub 长连接网关：按用户分片维护连接，通过 Redis PubSub 支持多实例部署
type RealtimeHub struct {
	shards       [shardCount]*shard
	register     chan *Client
	unregister   chan *Client
	Redis        *redis.Client
	ConvRepo     *repository.ConversationRepository
	RelationRepo *repository.RelationshipRepository
	ctx          context.Context
}

func NewRealtimeHub(rdb *redis.Client, convRepo *repository.ConversationRepository, relationRepo *repository.RelationshipRepository) *RealtimeHub {
	h := &RealtimeHub{
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		Redis:        rdb,
		ConvRepo:     convRepo,
		RelationRepo: relationRepo,
		ctx:          context.Background(),
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[uint]*Client),
		}
	}
	return h
}

func (h *RealtimeHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

type PubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *RealtimeHub) Run() {
	pubsub := h.Redis.Subscribe(h.ctx, "social:events")
	go func() {
		ch := pubsub.Channel()
		for msg := range ch {
			var psMsg PubSubMessage
			if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			h.pushToLocalRawUsers(psMsg.TargetUsers, psMsg.Payload)
		}
	}()

	// 批量处理状态更新
	ticker := time.NewTicker(500 * time.Millisecond)
	// 状态续期定时器 (Heartbeat)
	heartbeatTicker := time.NewTicker(1 * time.Minute)
	defer func() {
		ticker.Stop()
		heartbeatTicker.Stop()
	}()

	type statusUpdate struct {
		userID uint
		status string
	}
	var pendingUpdates []statusUpdate

	for {
		select {
		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			s.clients[client.UserID] = client
			s.mu.Unlock()
			pendingUpdates = append(pendingUpdates, statusUpdate{client.UserID, "online"})
			monitoring.WSConnections.Inc()

		case client := <-h.unregister:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if _, ok := s.clients[client.UserID]; ok {
				delete(s.clients, client.UserID)
				close(client.Send)
				monitoring.WSConnections.Dec()
			}
			s.mu.Unlock()
			pendingUpdates = append(pendingUpdates, statusUpdate{client.UserID, "offline"})

		case <-heartbeatTicker.C:
			// 为本地在线用户批量续期
			h.refreshOnlineStatus()

		case <-ticker.C:
			if len(pendingUpdates) == 0 {
				continue
			}

			pipe := h.Redis.Pipeline()
			for _, update := range pendingUpdates {
				key := fmt.Sprintf("social:presence:%d", update.userID)
				if update.status == "online" {
					pipe.Set(h.ctx, key, "true", onlineTTL)
				} else {
					pipe.Del(h.ctx, key)
				}
			}
			_, err := pipe.Exec(h.ctx)
			if err != nil {
				logger.Log.Error("Redis pipeline error", zap.Error(err))
			}

			// 发送状态通知
			for _, update := range pendingUpdates {
				h.NotifyStatus(update.userID, update.status)
			}
			pendingUpdates = pendingUpdates[:0]
		}
	}
}

// refreshOnlineStatus 刷新当前服务器所有在线用户的过期时间
func (h *RealtimeHub) refreshOnlineStatus() {
	pipe := h.Redis.Pipeline()
	count := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for userID := range s.clients {
			pipe.Expire(h.ctx, fmt.Sprintf("social:presence:%d", userID), onlineTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		pipe.Exec(h.ctx)
		logger.Log.Debug("Refreshed online status", zap.Int("count", count))
	}
}

func (h *RealtimeHub) NotifyStatus(userID uint, status string) {
	ev := Event{
		Type: "USER_STATUS",
		Data: map[string]interface{}{
			"userId": userID,
			"status": status,
		},
	}

	relatedIDs := h.getRelatedUserIDs(userID)
	if len(relatedIDs) > 0 {
		h.PushToUsers(relatedIDs, ev)
	}
}

// getRelatedUserIDs 获取关注该用户的所有用户ID，状态变化只推给关注者
func (h *RealtimeHub) getRelatedUserIDs(userID uint) []uint {
	if h.RelationRepo == nil {
		return nil
	}
	followers, err := h.RelationRepo.Followers(userID)
	if err != nil {
		return nil
	}
	ids := make([]uint, 0, len(followers))
	for _, u := range followers {
		ids = append(ids, u.ID)
	}
	return ids
}

// Stop 关闭所有连接并清理在线状态
func (h *RealtimeHub) Stop() {
	logger.Log.Info("RealtimeHub stopping: clearing online status and closing connections...")

	var allUserIDs []uint
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, client := range s.clients {
			allUserIDs = append(allUserIDs, userID)
			close(client.Send)
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}

	if len(allUserIDs) > 0 {
		pipe := h.Redis.Pipeline()
		for _, userID := range allUserIDs {
			pipe.Del(h.ctx, fmt.Sprintf("social:presence:%d", userID))
		}
		pipe.Exec(h.ctx)
	}

	monitoring.WSConnections.Set(0) // 停机时清空指标
	logger.Log.Info("RealtimeHub stopped", zap.Int("closedConnections", len(allUserIDs)))
}

func (h *RealtimeHub) PushToUsers(userIDs []uint, ev Event) {
	// 避免二次序列化
	evBytes, _ := json.Marshal(ev)
	psMsg := PubSubMessage{
		TargetUsers: userIDs,
		Payload:     evBytes,
	}
	payload, _ := json.Marshal(psMsg)
	h.Redis.Publish(h.ctx, "social:events", payload)
}

func (h *RealtimeHub) pushToLocalRawUsers(userIDs []uint, payload []byte) {
	if len(userIDs) == 0 {
		for i := 0; i < shardCount; i++ {
			s := h.shards[i]
			s.mu.RLock()
			for _, client := range s.clients {
				select {
				case client.Send <- payload:
				default:
				}
			}
			s.mu.RUnlock()
		}
		return
	}

	for _, id := range userIDs {
		s := h.getShard(id)
		s.mu.RLock()
		if client, ok := s.clients[id]; ok {
			select {
			case client.Send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

func (h *RealtimeHub) IsUserOnline(userID uint) bool {
	// 查本地分片
	s := h.getShard(userID)
	s.mu.RLock()
	_, ok := s.clients[userID]
	s.mu.RUnlock()
	if ok {
		return true
	}

	// 查 Redis (多实例部署)
	val, err := h.Redis.Get(h.ctx, fmt.Sprintf("social:presence:%d", userID)).Result()
	return err == nil && val == "true"
}

func ServeWs(hub *RealtimeHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(30), 50), // 每秒30条，允许突发50条
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
