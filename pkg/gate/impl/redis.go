package impl

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/textileio/go-autopay/pkg/gate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisConfig describes the redis connection of a RedisStore.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type redisRecord struct {
	Address          string `json:"address"`
	LastTransferTime uint64 `json:"last_transfer_time"`
}

// RedisStore persists the subscription state of an address as a JSON value in redis.
type RedisStore struct {
	client  *redis.Client
	address common.Address
	key     string
}

var _ gate.StateStore = (*RedisStore)(nil)

// NewRedisStore connects to redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, address common.Address) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is empty")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "autopay"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return &RedisStore{
		client:  client,
		address: address,
		key:     fmt.Sprintf("%s:subscription:%s", prefix, strings.ToLower(address.Hex())),
	}, nil
}

// Load returns the stored state, or the zero state if the key doesn't exist.
func (s *RedisStore) Load(ctx context.Context) (gate.SubscriptionState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return gate.SubscriptionState{}, nil
	}
	if err != nil {
		return gate.SubscriptionState{}, errors.Wrap(err, "getting subscription state")
	}

	var rec redisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return gate.SubscriptionState{}, errors.Wrap(err, "decoding subscription state")
	}
	return gate.SubscriptionState{LastTransferTime: rec.LastTransferTime}, nil
}

// Save stores the state without expiration.
func (s *RedisStore) Save(ctx context.Context, state gate.SubscriptionState) error {
	data, err := json.Marshal(redisRecord{
		Address:          s.address.Hex(),
		LastTransferTime: state.LastTransferTime,
	})
	if err != nil {
		return errors.Wrap(err, "encoding subscription state")
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return errors.Wrap(err, "setting subscription state")
	}
	return nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
