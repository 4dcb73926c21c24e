package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "board-realtime"

// RedisBridge fans hub payloads out across server processes over Redis
// Pub/Sub. Each process publishes to one shared channel and re-delivers
// what other processes published to its own local subscribers.
type RedisBridge struct {
	client *redis.Client
	hub    *Hub
	id     string
	cancel context.CancelFunc
}

// NewRedisBridge connects to Redis, verifies the connection and starts
// the receive loop. The returned bridge must be attached to the hub with
// SetBridge before connections are served.
func NewRedisBridge(addr string, hub *Hub) (*RedisBridge, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())
	b := &RedisBridge{
		client: client,
		hub:    hub,
		id:     uuid.NewString(),
		cancel: loopCancel,
	}
	go b.receive(loopCtx)
	return b, nil
}

// Forward publishes a hub payload to the shared channel.
func (b *RedisBridge) Forward(topic string, payload []byte) {
	env := struct {
		Origin  string          `json:"origin"`
		Topic   string          `json:"topic"`
		Payload json.RawMessage `json:"payload"`
	}{Origin: b.id, Topic: topic, Payload: payload}

	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("realtime: marshal redis envelope: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, redisChannel, data).Err(); err != nil {
		log.Printf("realtime: redis publish: %v", err)
	}
}

func (b *RedisBridge) receive(ctx context.Context) {
	sub := b.client.Subscribe(ctx, redisChannel)
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("realtime: redis receive: %v", err)
			time.Sleep(time.Second)
			continue
		}

		var env struct {
			Origin  string          `json:"origin"`
			Topic   string          `json:"topic"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("realtime: bad redis envelope: %v", err)
			continue
		}
		if env.Origin == b.id {
			continue // already delivered locally before forwarding
		}
		b.hub.deliver(env.Topic, env.Payload)
	}
}

// Close stops the receive loop and releases the Redis connection.
func (b *RedisBridge) Close() error {
	b.cancel()
	return b.client.Close()
}
