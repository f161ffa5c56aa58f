package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"passkey_auth_ms/domain"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/hashicorp/go-uuid"
	"github.com/redis/go-redis/v9"
)

const ceremonyKeyPrefix = "ceremony:"

// CeremonySession is the short-lived record of one in-progress ceremony. The
// challenge lives inside Data; the session is immutable between Create and
// Take.
type CeremonySession struct {
	SessionID  string               `json:"session_id"`
	Kind       domain.CeremonyKind  `json:"kind"`
	UserPid    string               `json:"user_pid,omitempty"`
	DeviceName string               `json:"device_name,omitempty"`
	ExpiresAt  time.Time            `json:"expires_at"`
	Data       webauthn.SessionData `json:"data"`
}

type ISessionStore interface {
	Create(ctx context.Context, kind domain.CeremonyKind, userPid, deviceName string, data *webauthn.SessionData, ttl time.Duration) (string, error)
	Take(ctx context.Context, sessionID string) (*CeremonySession, error)
	SweepExpired(ctx context.Context) (int, error)
}

// RedisSessionStore keeps ceremony sessions in redis under a TTL. GETDEL is
// the single consumption point: exactly one concurrent caller observes the
// payload, which is what stops a duplicated finish request from completing
// the same ceremony twice. The sweep exists for entries whose server-side TTL
// was lost (dump/restore, clock drift); redis normally expires them itself.
type RedisSessionStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, now: time.Now}
}

func (s *RedisSessionStore) Create(ctx context.Context, kind domain.CeremonyKind, userPid, deviceName string, data *webauthn.SessionData, ttl time.Duration) (string, error) {
	if data == nil {
		return "", errors.New("webauthn session data is required")
	}
	sessionID, err := uuid.GenerateUUID()
	if err != nil {
		return "", err
	}
	session := CeremonySession{
		SessionID:  sessionID,
		Kind:       kind,
		UserPid:    userPid,
		DeviceName: deviceName,
		ExpiresAt:  s.now().Add(ttl),
		Data:       *data,
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, ceremonyKeyPrefix+sessionID, payload, ttl).Err(); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Take atomically reads and deletes a session. It returns nil for a session
// that is absent, already consumed, or expired; the three cases are
// indistinguishable on purpose.
func (s *RedisSessionStore) Take(ctx context.Context, sessionID string) (*CeremonySession, error) {
	val, err := s.rdb.GetDel(ctx, ceremonyKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session CeremonySession
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("decode ceremony session: %w", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, nil
	}
	return &session, nil
}

// SweepExpired walks the ceremony keyspace and removes sessions past their
// deadline. Safe to run concurrently with Create and Take.
func (s *RedisSessionStore) SweepExpired(ctx context.Context) (int, error) {
	var (
		cursor uint64
		swept  int
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, ceremonyKeyPrefix+"*", 100).Result()
		if err != nil {
			return swept, err
		}
		for _, key := range keys {
			val, err := s.rdb.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return swept, err
			}
			var session CeremonySession
			if err := json.Unmarshal([]byte(val), &session); err != nil {
				// unreadable payload is as good as expired
				s.rdb.Del(ctx, key)
				swept++
				continue
			}
			if !s.now().Before(session.ExpiresAt) {
				if deleted, err := s.rdb.Del(ctx, key).Result(); err == nil && deleted > 0 {
					swept++
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return swept, nil
		}
	}
}
