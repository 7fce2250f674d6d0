package otc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrCodeNotFound = errors.New("code not found")

const codePrefix = "museum:otc:"

// Grant is what a one-time code is exchanged for after a federated sign-in.
type Grant struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Session   model.Session `json:"session"`
}

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		rdb: rdb,
		ttl: ttl,
	}
}

func (r *Redis) CreateCode(ctx context.Context, g Grant) (string, error) {
	var sb strings.Builder
	err := json.NewEncoder(&sb).Encode(g)
	if err != nil {
		return "", fmt.Errorf("serialize grant: %w", err)
	}

	for range 3 {
		code := generateCode()
		ok, err := r.rdb.SetNX(ctx, codePrefix+code, sb.String(), r.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("store code in redis: %w", err)
		}
		if ok {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique code")
}

// RedeemCode returns the grant and deletes the code; a code can be redeemed once.
func (r *Redis) RedeemCode(ctx context.Context, code string) (Grant, error) {
	val, err := r.rdb.GetDel(ctx, codePrefix+code).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Grant{}, ErrCodeNotFound
		}

		return Grant{}, fmt.Errorf("retrieve code from redis: %w", err)
	}

	var g Grant
	err = json.NewDecoder(strings.NewReader(val)).Decode(&g)
	if err != nil {
		return Grant{}, fmt.Errorf("deserialize grant: %w", err)
	}

	return g, nil
}

func generateCode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(uuid.New().String()))
}
