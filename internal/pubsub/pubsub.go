// Package pubsub fans messages out to every API instance.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Provider publishes and subscribes to named channels
type Provider interface {
	Publish(channel string, message []byte) error
	// Subscribe delivers messages until ctx is done or the provider is closed
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// NoOp is used by single-instance deployments
type NoOp struct{}

// Publish drops the message
func (NoOp) Publish(channel string, message []byte) error { return nil }

// Subscribe returns a channel that closes when ctx is done
func (NoOp) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	msgCh := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(msgCh)
	}()
	return msgCh, nil
}

// Close does nothing
func (NoOp) Close() error { return nil }

// Redis implements Provider on Redis Pub/Sub. The client is shared with the
// rest of the application and is not closed by Close.
type Redis struct {
	client redis.UniversalClient
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[*redis.PubSub]struct{}
}

// NewRedis checks the client and creates the provider.
func NewRedis(client redis.UniversalClient) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for pubsub")
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis client failed ping check: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Redis{
		client: client,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[*redis.PubSub]struct{}),
	}, nil
}

// Publish sends message to every subscriber of channel
func (p *Redis) Publish(channel string, message []byte) error {
	if err := p.client.Publish(p.ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers channel messages until ctx is done
func (p *Redis) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := p.client.Subscribe(p.ctx, channel)
	if _, err := sub.Receive(p.ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to redis channel %s: %w", channel, err)
	}

	p.mu.Lock()
	p.subs[sub] = struct{}{}
	p.mu.Unlock()
	log.Printf("[PubSub] subscribed to channel '%s'", channel)

	msgCh := make(chan []byte, 100)
	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.subs, sub)
			p.mu.Unlock()
			sub.Close()
			close(msgCh)
			log.Printf("[PubSub] unsubscribed from channel '%s'", channel)
		}()

		redisCh := sub.Channel()
		for {
			select {
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case msgCh <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				case <-p.ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			case <-p.ctx.Done():
				return
			}
		}
	}()
	return msgCh, nil
}

// Close ends every subscription.
func (p *Redis) Close() error {
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	var lastErr error
	for sub := range p.subs {
		if err := sub.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
