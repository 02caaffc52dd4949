// Package redis stores periodic price-history snapshots in Redis lists,
// one list per instrument symbol.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/sink"
)

// Options represents configuration options for the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// HistorySink implements sink.HistorySink backed by Redis
type HistorySink struct {
	client    *redis.Client
	keyPrefix string
	maxLen    int64
}

type snapshotEntry struct {
	Price   float64   `json:"price"`
	DayHigh float64   `json:"dayHigh"`
	DayLow  float64   `json:"dayLow"`
	Volume  int64     `json:"volume"`
	Trades  int64     `json:"trades"`
	At      time.Time `json:"at"`
}

// NewHistorySink connects to Redis and returns a history sink. Each
// instrument's history is capped at maxLen entries.
func NewHistorySink(opts Options, keyPrefix string, maxLen int64) (*HistorySink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if keyPrefix == "" {
		keyPrefix = "tradesim:history"
	}
	if maxLen <= 0 {
		maxLen = 1000
	}

	return &HistorySink{
		client:    client,
		keyPrefix: keyPrefix,
		maxLen:    maxLen,
	}, nil
}

// AppendSnapshot pushes one entry per instrument and trims each list
func (h *HistorySink) AppendSnapshot(views []core.InstrumentView) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	pipe := h.client.Pipeline()

	for _, v := range views {
		entry := snapshotEntry{
			Price:   v.Price,
			DayHigh: v.DayHigh,
			DayLow:  v.DayLow,
			Volume:  v.Volume,
			Trades:  v.Trades,
			At:      now,
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot for %s: %w", v.Symbol, err)
		}

		key := fmt.Sprintf("%s:%s", h.keyPrefix, v.Symbol)
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -h.maxLen, -1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append snapshot: %w", err)
	}

	return nil
}

// Close closes the Redis client
func (h *HistorySink) Close() error {
	return h.client.Close()
}

var _ sink.HistorySink = (*HistorySink)(nil)
