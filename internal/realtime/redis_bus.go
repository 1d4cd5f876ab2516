package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"onboarding/internal/logger"

	goredis "github.com/redis/go-redis/v9"
)

const defaultCatalogChannel = "catalog-events"

// redisBus carries committed catalog events between API instances over one
// Redis pub/sub channel. Ordering and replay stay with the catalog_events table;
// Redis only shortens the path to connected WebSocket clients.
type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string

	mu     sync.Mutex
	subs   []*goredis.PubSub
	closed bool
}

// NewRedisBus connects to addr and publishes on channel ("catalog-events" when blank)
func NewRedisBus(log *logger.Logger, addr, channel string) (Bus, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("missing REDIS_ADDR")
	}
	if log == nil {
		log = logger.Nop()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = defaultCatalogChannel
	}
	return &redisBus{
		log:     log.With("component", "catalog_bus", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode catalog event %d: %w", msg.Seq, err)
	}
	receivers, err := b.rdb.Publish(ctx, b.channel, raw).Result()
	if err != nil {
		return fmt.Errorf("redis publish catalog event %d: %w", msg.Seq, err)
	}
	b.log.Debug("catalog event published", "seq", msg.Seq, "receivers", receivers)
	return nil
}

// StartForwarder subscribes and hands every decoded message to onMsg until ctx is
// cancelled or the bus is closed.
func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m Message)) error {
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("bus closed")
	}
	b.mu.Unlock()

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go b.forward(ctx, sub, onMsg)
	return nil
}

func (b *redisBus) forward(ctx context.Context, sub *goredis.PubSub, onMsg func(m Message)) {
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				if !b.isClosed() {
					b.log.Warn("redis subscription channel closed; live catalog updates stop until restart")
				}
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.log.Warn("dropping undecodable catalog payload", "error", err)
				continue
			}
			onMsg(msg)
		}
	}
}

func (b *redisBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close ends every forwarder and the client connection
func (b *redisBus) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return b.rdb.Close()
}
