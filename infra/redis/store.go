// Package redis stores vehicle statuses in Redis so other processes can read
// the kernel's view of the fleet.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kilianp07/agvkernel/core/vehiclestatus"
)

// Config defines the Redis connection of the status store.
type Config struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	// Prefix namespaces all keys. Defaults to "agvkernel".
	Prefix string `json:"prefix" yaml:"prefix"`
}

// Store implements vehiclestatus.Store. The status and the last decision of a
// vehicle live under separate keys so status updates never overwrite
// decisions.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ vehiclestatus.Store = (*Store)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return NewStore(client, cfg.Prefix), nil
}

// NewStore wraps an existing client.
func NewStore(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "agvkernel"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) statusKey(id string) string { return fmt.Sprintf("%s:vehicle:%s:status", s.prefix, id) }
func (s *Store) decisionKey(id string) string {
	return fmt.Sprintf("%s:vehicle:%s:decision", s.prefix, id)
}
func (s *Store) allKey() string { return s.prefix + ":vehicles" }

func (s *Store) Set(ctx context.Context, st vehiclestatus.Status) error {
	st.LastDecision = vehiclestatus.LastDecision{}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.statusKey(st.VehicleID), data, 0)
	pipe.SAdd(ctx, s.allKey(), st.VehicleID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) RecordDecision(ctx context.Context, id string, dec vehiclestatus.LastDecision) error {
	data, err := json.Marshal(dec)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.decisionKey(id), data, 0)
	pipe.SAdd(ctx, s.allKey(), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (vehiclestatus.Status, bool, error) {
	vals, err := s.client.MGet(ctx, s.statusKey(id), s.decisionKey(id)).Result()
	if err != nil {
		return vehiclestatus.Status{}, false, err
	}
	return decode(id, vals[0], vals[1])
}

func (s *Store) List(ctx context.Context, f vehiclestatus.Filter) ([]vehiclestatus.Status, error) {
	ids, err := s.client.SMembers(ctx, s.allKey()).Result()
	if err != nil {
		return nil, err
	}
	res := make([]vehiclestatus.Status, 0, len(ids))
	for _, id := range ids {
		st, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok && f.Matches(st) {
			res = append(res, st)
		}
	}
	vehiclestatus.SortByID(res)
	return res, nil
}

// Remove deletes every key of a vehicle.
func (s *Store) Remove(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.statusKey(id), s.decisionKey(id))
	pipe.SRem(ctx, s.allKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

// decode merges the raw MGET values of a vehicle. Missing keys come back as
// nil.
func decode(id string, status, decision any) (vehiclestatus.Status, bool, error) {
	if status == nil && decision == nil {
		return vehiclestatus.Status{}, false, nil
	}
	st := vehiclestatus.Status{VehicleID: id}
	if raw, ok := status.(string); ok {
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return vehiclestatus.Status{}, false, fmt.Errorf("vehicle %s status: %w", id, err)
		}
	} else if status != nil {
		return vehiclestatus.Status{}, false, errors.New("unexpected status value type")
	}
	if raw, ok := decision.(string); ok {
		if err := json.Unmarshal([]byte(raw), &st.LastDecision); err != nil {
			return vehiclestatus.Status{}, false, fmt.Errorf("vehicle %s decision: %w", id, err)
		}
	}
	return st, true, nil
}
