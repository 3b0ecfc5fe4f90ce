package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/eduinstitute/liveclass-server/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 100
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	Room   string
	Events chan Event
	Done   chan struct{}
}

type room struct {
	clients map[*Client]struct{}
	cancel  context.CancelFunc
}

// Broker tracks the clients of each room. With a Redis client, publishes go
// through Redis pub/sub so every instance delivers to its own clients;
// without one, publishes are delivered in process.
type Broker struct {
	redis  *redisclient.Client
	rooms  map[string]*room
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

var _ Publisher = (*Broker)(nil)

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:  redisClient,
		rooms:  make(map[string]*room),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *Broker) Subscribe(name string) *Client {
	client := &Client{
		Room:   name,
		Events: make(chan Event, clientBufferSize),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	r, ok := b.rooms[name]
	if !ok {
		r = &room{clients: make(map[*Client]struct{})}
		if b.redis != nil {
			roomCtx, cancel := context.WithCancel(b.ctx)
			r.cancel = cancel
			go b.subscribeToRedis(roomCtx, name)
		}
		b.rooms[name] = r
	}
	r.clients[client] = struct{}{}
	clientCount := len(r.clients)
	b.mu.Unlock()

	log.Info().
		Str("room", name).
		Int("clientCount", clientCount).
		Msg("fanout client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rooms[client.Room]
	if !ok {
		return
	}
	if _, ok := r.clients[client]; !ok {
		return
	}

	delete(r.clients, client)
	close(client.Done)

	if len(r.clients) == 0 {
		if r.cancel != nil {
			r.cancel()
		}
		delete(b.rooms, client.Room)
	}

	log.Info().
		Str("room", client.Room).
		Int("clientCount", len(r.clients)).
		Msg("fanout client unsubscribed")
}

func (b *Broker) Publish(ctx context.Context, name, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := Event{Type: eventType, Data: data}

	if b.redis == nil {
		b.broadcast(name, event)
		return nil
	}

	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, redisclient.RoomChannel(name), msg).Err()
}

func (b *Broker) subscribeToRedis(ctx context.Context, name string) {
	channel := redisclient.RoomChannel(name)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("room", name).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Str("room", name).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(name, event)
		}
	}
}

func (b *Broker) broadcast(name string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.rooms[name]
	if !ok {
		return
	}

	for client := range r.clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("room", name).
				Str("event", event.Type).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.rooms {
		for client := range r.clients {
			close(client.Done)
		}
	}
	b.rooms = make(map[string]*room)
}

func (b *Broker) ClientCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if r, ok := b.rooms[name]; ok {
		return len(r.clients)
	}
	return 0
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, r := range b.rooms {
		total += len(r.clients)
	}
	return total
}
