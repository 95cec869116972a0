package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps bearer-token sessions in Redis. Tokens are opaque
// ids; everything about them lives server-side so revocation takes
// effect on the next request.
type TokenStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTokenStore(rdb *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{rdb: rdb, ttl: ttl}
}

type Session struct {
	UserID    string `json:"uid"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func key(tok string) string        { return fmt.Sprintf("lib:sess:%s", tok) }
func userSetKey(uid string) string { return fmt.Sprintf("lib:user_sessions:%s", uid) }

func (s *TokenStore) Create(ctx context.Context, tok, userID, role string) error {
	now := time.Now()
	b, _ := json.Marshal(Session{
		UserID:    userID,
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(tok), b, s.ttl)
	pipe.SAdd(ctx, userSetKey(userID), tok)
	pipe.Expire(ctx, userSetKey(userID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *TokenStore) Get(ctx context.Context, tok string) (*Session, error) {
	b, err := s.rdb.Get(ctx, key(tok)).Bytes()
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *TokenStore) Delete(ctx context.Context, tok string) error {
	sess, _ := s.Get(ctx, tok) // 忽略失败
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(tok))
	if sess != nil {
		pipe.SRem(ctx, userSetKey(sess.UserID), tok)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForUser drops every live session of a user, used when an
// admin deletes the account or changes its role.
func (s *TokenStore) RevokeAllForUser(ctx context.Context, userID string) error {
	toks, err := s.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, t := range toks {
		pipe.Del(ctx, key(t))
	}
	pipe.Del(ctx, userSetKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
