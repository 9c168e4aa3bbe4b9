package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"joblink/internal/database"
)

const (
	sessionKeyPrefix = "session:"
	userSetKeyPrefix = "user_sessions:"
)

// ErrNotFound 表示会话不存在或已过期。
var ErrNotFound = errors.New("session not found")

// Session 是请求级的认证上下文：持有人与角色。
type Session struct {
	UserID         uint              `json:"user_id"`
	Role           database.UserRole `json:"role"`
	Email          string            `json:"email"`
	LoginSessionID uint              `json:"login_session_id"`
}

// Store 把不透明会话保存在 Redis 中，令牌即 Cookie 值。
type Store struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewStore 构造会话存储。
func NewStore(redisClient redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{redis: redisClient, ttl: ttl}
}

// TTL 暴露会话有效期，供 Cookie MaxAge 使用。
func (s *Store) TTL() time.Duration { return s.ttl }

// Create 生成新令牌并写入会话，同时登记到用户的令牌集合，
// 以支持「退出所有设备」。
func (s *Store) Create(ctx context.Context, sess Session) (string, error) {
	token := uuid.NewString()

	payload, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	if err := s.redis.Set(ctx, sessionKeyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	userKey := userSetKey(sess.UserID)
	if err := s.redis.SAdd(ctx, userKey, token).Err(); err != nil {
		return "", fmt.Errorf("register session token: %w", err)
	}
	// 集合的有效期跟随最长会话，防止遗留键。
	_ = s.redis.Expire(ctx, userKey, s.ttl).Err()

	return token, nil
}

// Get 按令牌取回会话。
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	payload, err := s.redis.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete 删除单个会话。
func (s *Store) Delete(ctx context.Context, token string) error {
	sess, err := s.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.redis.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	_ = s.redis.SRem(ctx, userSetKey(sess.UserID), token).Err()
	return nil
}

// DeleteAllForUser 删除用户的全部会话。
func (s *Store) DeleteAllForUser(ctx context.Context, userID uint) error {
	userKey := userSetKey(userID)
	tokens, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list session tokens: %w", err)
	}

	for _, token := range tokens {
		_ = s.redis.Del(ctx, sessionKeyPrefix+token).Err()
	}
	if err := s.redis.Del(ctx, userKey).Err(); err != nil {
		return fmt.Errorf("clear session token set: %w", err)
	}
	return nil
}

func userSetKey(userID uint) string {
	return fmt.Sprintf("%s%d", userSetKeyPrefix, userID)
}
