package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/totegamma/officechat/internal/domain"
)

// Signal is the envelope mirrored to redis for every fanned-out event.
// Target is empty for broadcasts.
type Signal struct {
	Target string       `json:"target,omitempty"`
	Event  domain.Event `json:"event"`
}

// SignalService mirrors events onto a redis pub/sub channel for external observers.
type SignalService struct {
	rdb     *redis.Client
	channel string
}

func NewSignalService(redisClient *redis.Client, channel string) *SignalService {
	return &SignalService{
		rdb:     redisClient,
		channel: channel,
	}
}

func (s *SignalService) Publish(ctx context.Context, target string, event domain.Event) error {

	jsonstr, err := json.Marshal(Signal{Target: target, Event: event})
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, s.channel, jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}
