package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"fieldservice_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueQuoteExpiry queues a sweep of quotes whose validity window has
// passed. The task is deduplicated while a previous one is still pending.
func (c *Client) EnqueueQuoteExpiry(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, NewQuoteExpireDueTask(), asynq.Queue(c.queue), asynq.TaskID(TaskQuoteExpireDue))
	if asynqDuplicate(err) {
		return nil
	}
	return err
}

// EnqueuePhotoSweep queues a sweep of stale pending photo uploads.
func (c *Client) EnqueuePhotoSweep(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, NewPhotoSweepStaleTask(), asynq.Queue(c.queue), asynq.TaskID(TaskPhotoSweepStale))
	if asynqDuplicate(err) {
		return nil
	}
	return err
}

func asynqDuplicate(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict)
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
