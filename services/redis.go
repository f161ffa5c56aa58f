package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type IRedisService interface {
	SetRefreshToken(ctx context.Context, userPid string, refreshToken string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, userPid string) (string, error)
	DelRefreshToken(ctx context.Context, userPid string) error
}

type RedisService struct {
	rdb *redis.Client
}

func NewRedisService(rdb *redis.Client) *RedisService {
	return &RedisService{rdb: rdb}
}

func (s *RedisService) SetRefreshToken(ctx context.Context, userPid string, refreshToken string, ttl time.Duration) error {
	return s.rdb.SetEx(ctx, refreshKey(userPid), refreshToken, ttl).Err()
}

func (s *RedisService) GetRefreshToken(ctx context.Context, userPid string) (string, error) {
	return s.rdb.Get(ctx, refreshKey(userPid)).Result()
}

func (s *RedisService) DelRefreshToken(ctx context.Context, userPid string) error {
	return s.rdb.Del(ctx, refreshKey(userPid)).Err()
}

func refreshKey(userPid string) string {
	return fmt.Sprintf("refresh:%s", userPid)
}
