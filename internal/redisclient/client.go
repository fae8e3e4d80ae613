package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const orderCacheTTL = 30 * time.Second

// Client caches order views for the read path of the orders service.
// Entries are invalidated on status transitions and expire quickly anyway,
// so a stale read window is bounded by the TTL.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetOrder returns a cached order view, or (nil, nil) on a cache miss
func (c *Client) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	data, err := c.rdb.Get(ctx, orderKey(orderID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SetOrder caches an order view with a short TTL
func (c *Client) SetOrder(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, orderKey(order.ID), data, orderCacheTTL).Err()
}

// InvalidateOrder drops a cached order view after a status transition
func (c *Client) InvalidateOrder(ctx context.Context, orderID uuid.UUID) error {
	return c.rdb.Del(ctx, orderKey(orderID)).Err()
}

func orderKey(orderID uuid.UUID) string {
	return fmt.Sprintf("order:%s", orderID)
}
