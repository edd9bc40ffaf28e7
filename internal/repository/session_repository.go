package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-management-system/internal/model"
)

// DefaultSessionKey is the Redis hash bound sessions are mirrored into.
const DefaultSessionKey = "ems:sessions"

// SessionRepo mirrors bound sessions into a Redis hash, one field per
// session id holding the JSON-encoded model.Session.
type SessionRepo struct {
	RDB *redis.Client
	Key string
}

func NewSessionRepo(rdb *redis.Client, key string) *SessionRepo {
	if key == "" {
		key = DefaultSessionKey
	}
	return &SessionRepo{RDB: rdb, Key: key}
}

// Bind records s under its id, replacing any previous entry.
func (r *SessionRepo) Bind(ctx context.Context, s model.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.RDB.HSet(ctx, r.Key, field(s.ID), b).Err()
}

// Release removes the entry for id.
func (r *SessionRepo) Release(ctx context.Context, id int32) error {
	return r.RDB.HDel(ctx, r.Key, field(id)).Err()
}

// Reset drops every entry. The server calls it at startup since a
// previous run may have exited with sessions still bound.
func (r *SessionRepo) Reset(ctx context.Context) error {
	return r.RDB.Del(ctx, r.Key).Err()
}

// Get returns the entry for id or ErrNotFound.
func (r *SessionRepo) Get(ctx context.Context, id int32) (model.Session, error) {
	var s model.Session
	b, err := r.RDB.HGet(ctx, r.Key, field(id)).Bytes()
	if err == redis.Nil {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("decoding session %d: %w", id, err)
	}
	return s, nil
}

// List returns every mirrored session ordered by id.
func (r *SessionRepo) List(ctx context.Context) ([]model.Session, error) {
	all, err := r.RDB.HGetAll(ctx, r.Key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.Session, 0, len(all))
	for k, v := range all {
		var s model.Session
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			return nil, fmt.Errorf("decoding session %s: %w", k, err)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func field(id int32) string { return strconv.FormatInt(int64(id), 10) }
