package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/ports"
)

const keyPrefix = "call:"

// Service keeps summaries of finished calls for a while. With an archive
// attached every record is also written there and cache misses fall back to it.
type Service struct {
	cache   ports.Cache
	archive ports.CallHistory
	ttl     time.Duration
	log     *zap.Logger
}

func NewService(cache ports.Cache, ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{cache: cache, ttl: ttl, log: log}
}

// WithArchive attaches durable storage behind the cache
func (s *Service) WithArchive(archive ports.CallHistory) *Service {
	s.archive = archive
	return s
}

func (s *Service) Save(ctx context.Context, record domain.CallRecord) error {
	if record.CallID == "" {
		return fmt.Errorf("call record without id")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}
	if err := s.cache.Set(ctx, keyPrefix+record.CallID, string(data), s.ttl); err != nil {
		return fmt.Errorf("store call record: %w", err)
	}
	if s.archive != nil {
		if err := s.archive.Save(ctx, record); err != nil {
			return fmt.Errorf("archive call record: %w", err)
		}
	}

	s.log.Debug("Call recorded", zap.String("call_id", record.CallID))
	return nil
}

func (s *Service) Get(ctx context.Context, callID string) (*domain.CallRecord, error) {
	data, err := s.cache.Get(ctx, keyPrefix+callID)
	if err == nil && data == "" {
		err = fmt.Errorf("call %s: %w", callID, domain.ErrNotFound)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && s.archive != nil {
			return s.archive.Get(ctx, callID)
		}
		return nil, err
	}

	var record domain.CallRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("unmarshal call record: %w", err)
	}
	return &record, nil
}
