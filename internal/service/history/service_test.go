package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/mocks"
)

func TestService_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMockCache()
	svc := NewService(cache, time.Hour, zap.NewNop())

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	record := domain.CallRecord{
		CallID:       "abc",
		CallerNumber: "1000",
		Gender:       domain.GenderFemale,
		Stage:        domain.StageHungUp,
		Questions:    12,
		ResultKind:   "answer",
		ResultText:   "I think of Marie Curie",
		HangupReason: "completed",
		StartedAt:    started,
		EndedAt:      started.Add(4 * time.Minute),
	}

	if err := svc.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if ttl := cache.TTL("call:abc"); ttl != time.Hour {
		t.Errorf("expected 1h ttl, got %v", ttl)
	}

	got, err := svc.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ResultText != record.ResultText || got.Questions != 12 || !got.EndedAt.Equal(record.EndedAt) {
		t.Errorf("unexpected record %+v", got)
	}
}

func TestService_GetMissing(t *testing.T) {
	svc := NewService(mocks.NewMockCache(), 0, zap.NewNop())
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_SaveWithoutID(t *testing.T) {
	svc := NewService(mocks.NewMockCache(), 0, zap.NewNop())
	if err := svc.Save(context.Background(), domain.CallRecord{}); err == nil {
		t.Error("expected error for record without id")
	}
}

func TestService_CacheFailure(t *testing.T) {
	cache := mocks.NewMockCache()
	cache.SetFunc = func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
		return errors.New("redis unavailable")
	}
	svc := NewService(cache, time.Minute, zap.NewNop())
	if err := svc.Save(context.Background(), domain.CallRecord{CallID: "x"}); err == nil {
		t.Error("expected cache error")
	}
}

func TestService_ArchiveFallback(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMockCache()
	archive := mocks.NewMockCallHistory()
	svc := NewService(cache, time.Minute, zap.NewNop()).WithArchive(archive)

	if err := svc.Save(ctx, domain.CallRecord{CallID: "old", Questions: 7}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := archive.Get(ctx, "old"); err != nil {
		t.Fatalf("record not archived: %v", err)
	}

	// simulate the cache entry expiring
	if err := cache.Delete(ctx, "call:old"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := svc.Get(ctx, "old")
	if err != nil {
		t.Fatalf("Get should fall back to the archive: %v", err)
	}
	if got.Questions != 7 {
		t.Errorf("unexpected record %+v", got)
	}

	if _, err := svc.Get(ctx, "never"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound from archive, got %v", err)
	}
}

func TestService_ArchiveFailure(t *testing.T) {
	archive := mocks.NewMockCallHistory()
	archive.SaveFunc = func(ctx context.Context, record domain.CallRecord) error {
		return errors.New("database is down")
	}
	svc := NewService(mocks.NewMockCache(), time.Minute, zap.NewNop()).WithArchive(archive)

	if err := svc.Save(context.Background(), domain.CallRecord{CallID: "x"}); err == nil {
		t.Error("expected archive error")
	}
}
