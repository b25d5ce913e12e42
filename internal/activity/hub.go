// Package activity pushes social events (new posts, likes, follows) to
// connected websocket clients. With Redis configured every instance
// receives every event through a pattern subscription, so a user can be
// connected to any instance.
package activity

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"backend-socialmedia/internal/logging"

	"github.com/redis/go-redis/v9"
)

const (
	EventPostCreated = "post_created"
	EventPostLiked   = "post_liked"
	EventFollowed    = "followed"

	channelPrefix  = "activity:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix

	clientBuffer = 32
)

type Event struct {
	Type    string    `json:"type"`
	ActorID string    `json:"actorId"`
	PostID  string    `json:"postId,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher is what the domain services depend on.
type Publisher interface {
	Publish(ctx context.Context, userID string, evt Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, string, Event) {}

type Client struct {
	UserID string
	Send   chan []byte
}

type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

var _ Publisher = (*Hub)(nil)

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}
	if redisClient == nil {
		return h
	}

	ctx := context.Background()
	pubsub := redisClient.PSubscribe(ctx, channelPattern)
	// Wait for the subscription confirmation so events published right
	// after construction are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		l := logging.L()
		l.Error().Err(err).Msg("activity: redis subscribe failed, delivering locally")
		_ = pubsub.Close()
		h.redis = nil
		return h
	}
	h.pubsub = pubsub
	h.wg.Add(1)
	go h.forward(pubsub.Channel())
	return h
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.Send)
}

// Connected reports how many clients userID has on this instance.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish sends evt to userID. Delivery is best effort: failures are
// logged and slow clients miss events.
func (h *Hub) Publish(ctx context.Context, userID string, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}

	if h.redis != nil {
		err := h.redis.Publish(ctx, channelFor(userID), payload).Err()
		if err == nil {
			return
		}
		l := logging.Ctx(ctx)
		l.Warn().Err(err).Str("event", evt.Type).Msg("activity: redis publish failed, delivering locally")
	}
	h.deliver(userID, payload)
}

func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forward(messages <-chan *redis.Message) {
	defer h.wg.Done()
	for msg := range messages {
		userID := userIDFromChannel(msg.Channel)
		if userID == "" {
			continue
		}
		h.deliver(userID, []byte(msg.Payload))
	}
}

// Close stops the Redis subscription. Connected clients are left to their
// handlers.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	err := h.pubsub.Close()
	h.wg.Wait()
	return err
}

func channelFor(userID string) string {
	return channelPrefix + userID + channelSuffix
}

// userIDFromChannel parses activity:{user}:events.
func userIDFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
