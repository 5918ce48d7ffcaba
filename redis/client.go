package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
	"text2phenotype.com/postagger/utils/maps"
)

type DB int
type ReleaseLock func() error

var ErrNotFound = errors.New("redis key not found")

type Config struct {
	LockExpirationSeconds   int     `envconfig:"MDL_COMN_REDIS_LOCK_EXPIRATION" default:"3"`
	LockRetries             int     `envconfig:"MDL_COMN_REDIS_LOCK_RETRIES" default:"20"`
	Host                    string  `envconfig:"MDL_COMN_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"MDL_COMN_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"MDL_COMN_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"MDL_COMN_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"MDL_COMN_REDIS_AUTH_PASSWORD" default:"0"`
	AuthRequired            bool    `envconfig:"MDL_COMN_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"MDL_COMN_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"MDL_COMN_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

// Client stores JSON documents in one redis database. Updates are
// serialized across processes with a redislock lock per key.
type Client struct {
	client         redis.UniversalClient
	locker         *redislock.Client
	lockExpiration time.Duration
	lockRetries    int
}

func NewClient(db DB) (Client, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Client{}, err
	}
	return NewClientFromConfig(cfg, db), nil
}

func NewClientFromConfig(cfg Config, db DB) Client {
	client := redis.NewUniversalClient(options(cfg, db))
	return Client{
		client:         client,
		locker:         redislock.New(client),
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
		lockRetries:    cfg.LockRetries,
	}
}

// options selects a sentinel failover client in HA mode and a single node client otherwise.
func options(cfg Config, db DB) *redis.UniversalOptions {
	opts := redis.UniversalOptions{
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.HAMode {
		timeout := time.Duration(float64(cfg.HASentinelSocketTimeout) * float64(time.Second))
		opts.Addrs = []string{net.JoinHostPort(cfg.Host, cfg.HASentinelPort)}
		opts.MasterName = cfg.HASentinelMasterName
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	} else {
		opts.Addrs = []string{net.JoinHostPort(cfg.Host, cfg.Port)}
	}
	if cfg.AuthRequired {
		opts.Password = cfg.Password
	}
	return &opts
}

func (client *Client) GetPartialDocument(ctx context.Context, redisKey string, doc maps.PartialDocument) error {
	b, err := client.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", ErrNotFound, redisKey)
	}
	if err != nil {
		return err
	}
	if err = maps.Decode(b, doc); err != nil {
		return fmt.Errorf("document %s: %w", redisKey, err)
	}
	return nil
}

// UpdatePartialDocument reads doc under the key lock, calls update and saves the result.
func (client *Client) UpdatePartialDocument(
	ctx context.Context,
	redisKey string,
	doc maps.PartialDocument,
	update func()) (err error) {
	releaseLock, err := client.Lock(ctx, redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := releaseLock(); err == nil {
			err = releaseErr
		}
	}()
	if err = client.GetPartialDocument(ctx, redisKey, doc); err != nil {
		return err
	}
	update()
	return client.SaveDoc(ctx, redisKey, doc)
}

func (client *Client) Lock(ctx context.Context, redisKey string) (ReleaseLock, error) {
	strategy := redislock.LimitRetry(redislock.LinearBackoff(time.Second), client.lockRetries)
	lock, err := client.locker.Obtain(ctx, lockKey(redisKey), client.lockExpiration, &redislock.Options{RetryStrategy: strategy})
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", redisKey, err)
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

func (client *Client) SaveDoc(ctx context.Context, redisKey string, document maps.PartialDocument) error {
	b, err := maps.Encode(document)
	if err != nil {
		return err
	}
	return client.client.Set(ctx, redisKey, b, 0).Err()
}

func (client *Client) Close() error {
	return client.client.Close()
}

func lockKey(redisKey string) string {
	return "lock:" + redisKey
}
