// Package redisstore provides a Redis-backed session repository. Flows and
// bots stay in the primary store; sessions are hot, small and churn fast,
// which suits Redis better than files.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/chalique/botflow/pkg/models"
)

const keyPrefix = "botflow:session:"

// Store implements persistence.SessionRepository on top of Redis.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStore connects to Redis using a redis:// URL and verifies the
// connection with a ping.
func NewStore(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis session store", "addr", opts.Addr, "db", opts.DB)

	return &Store{client: client, logger: logger}, nil
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// HealthCheck pings Redis.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func sessionKey(botID, userID, sessionID string) string {
	return keyPrefix + botID + ":" + userID + ":" + sessionID
}

// Session loads a session snapshot, returning (nil, nil) when none exists.
func (s *Store) Session(ctx context.Context, botID, userID, sessionID string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(botID, userID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// PutSession writes a session snapshot, overwriting any previous one for
// the same key.
func (s *Store) PutSession(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKey(session.BotID, session.UserID, session.SessionID)
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return nil
}

// DeleteIdleSessions scans the session keyspace and removes sessions not
// updated since olderThan.
func (s *Store) DeleteIdleSessions(ctx context.Context, olderThan time.Time) (int, error) {
	removed := 0

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}

			return removed, fmt.Errorf("failed to read session %s: %w", key, err)
		}

		var session models.Session
		if err := json.Unmarshal(data, &session); err != nil {
			// An unreadable snapshot is stale by definition.
			s.logger.WarnContext(ctx, "Dropping undecodable session", "key", key, "error", err)
		} else if session.UpdatedAt.After(olderThan) {
			continue
		}

		if err := s.client.Del(ctx, key).Err(); err != nil {
			return removed, fmt.Errorf("failed to delete session %s: %w", key, err)
		}

		removed++
	}

	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("session scan failed: %w", err)
	}

	return removed, nil
}
