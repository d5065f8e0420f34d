package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/e1ixyz/ReportSystem-sub000/internal/config"
)

// chatPayload is the wire shape published on the chat channel by the host
// platform bridge.
type chatPayload struct {
	Speaker string `json:"speaker"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
	TSMilli int64  `json:"ts"`
}

// loginPayload is the wire shape published on the login channel.
type loginPayload struct {
	Identity string `json:"identity"`
	TSMilli  int64  `json:"ts"`
}

// Source subscribes to the platform's chat and login channels over Redis
// pub/sub and feeds decoded events into the ingest pipeline.
type Source struct {
	client       *redis.Client
	ingest       *Ingest
	logger       *zap.Logger
	chatChannel  string
	loginChannel string
}

// NewSource connects the Redis client. Connectivity problems are reported
// as a warning; the subscription itself retries through the client.
func NewSource(cfg config.RedisConfig, in *Ingest, logger *zap.Logger) *Source {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}
	return &Source{
		client:       client,
		ingest:       in,
		logger:       logger,
		chatChannel:  cfg.ChatChannel,
		loginChannel: cfg.LoginChannel,
	}
}

// Run consumes the subscription until the context is cancelled. Malformed
// payloads are logged and skipped.
func (s *Source) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.chatChannel, s.loginChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.dispatch(ctx, msg)
		}
	}
}

func (s *Source) dispatch(ctx context.Context, msg *redis.Message) {
	switch msg.Channel {
	case s.chatChannel:
		var p chatPayload
		if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
			s.logger.Warn("malformed chat payload", zap.Error(err))
			return
		}
		s.ingest.HandleChat(ctx, ChatEvent{
			Speaker:   p.Speaker,
			Channel:   p.Channel,
			Text:      p.Text,
			Timestamp: time.UnixMilli(p.TSMilli),
		})
	case s.loginChannel:
		var p loginPayload
		if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
			s.logger.Warn("malformed login payload", zap.Error(err))
			return
		}
		s.ingest.HandleLogin(ctx, p.Identity, time.UnixMilli(p.TSMilli))
	}
}

// Close releases the Redis client.
func (s *Source) Close() error {
	return s.client.Close()
}
