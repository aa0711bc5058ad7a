// go-uhf
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uhf.
//
// go-uhf is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uhf is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uhf; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package events announces scans to other services.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ZaparooProject/go-uhf/internal/config"
	"github.com/ZaparooProject/go-uhf/internal/store"
)

// ErrDisabled is returned by NewRedisPublisher when redis is switched off
var ErrDisabled = errors.New("redis is not enabled")

// EventScan is the only event type published today
const EventScan = "scan"

// Event is the JSON payload published for each scan
type Event struct {
	Type string           `json:"type"`
	Scan store.ScanRecord `json:"scan"`
}

// Encode renders the event published for rec
func Encode(rec store.ScanRecord) ([]byte, error) {
	data, err := json.Marshal(Event{Type: EventScan, Scan: rec})
	if err != nil {
		return nil, fmt.Errorf("encode scan event: %w", err)
	}
	return data, nil
}

// Publisher delivers scan events
type Publisher interface {
	Publish(ctx context.Context, rec store.ScanRecord) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, store.ScanRecord) error { return nil }

// HealthCheck always succeeds
func (NopPublisher) HealthCheck(context.Context) error { return nil }

// Close does nothing
func (NopPublisher) Close() error { return nil }

// RedisPublisher publishes each scan on a channel and keeps the last tag
// under a key
type RedisPublisher struct {
	client     *redis.Client
	channel    string
	lastTagKey string
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*RedisPublisher)(nil)
)

// NewRedisPublisher connects and pings the server
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig) (*RedisPublisher, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return NewRedisPublisherWithClient(rdb, cfg.Channel, cfg.LastTagKey), nil
}

// NewRedisPublisherWithClient wraps an existing client
func NewRedisPublisherWithClient(client *redis.Client, channel, lastTagKey string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, lastTagKey: lastTagKey}
}

// Publish sends the event and records the tag as the last one seen
func (p *RedisPublisher) Publish(ctx context.Context, rec store.ScanRecord) error {
	payload, err := Encode(rec)
	if err != nil {
		return err
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, payload)
		if p.lastTagKey != "" {
			pipe.Set(ctx, p.lastTagKey, rec.TagID, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish scan %s: %w", rec.ID, err)
	}
	return nil
}

// HealthCheck pings the server
func (p *RedisPublisher) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
