package redis_repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/newsrag/models"
)

func newTestRepo(t *testing.T) (*historyRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewHistoryRepository(client, time.Hour), mr
}

func TestHistoryRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	turns := []models.ConversationTurn{
		{Role: models.RoleUser, Content: "hello", Timestamp: "2025-01-01T00:00:00Z"},
		{Role: models.RoleAssistant, Content: "hi there", Timestamp: "2025-01-01T00:00:01Z"},
	}
	if err := repo.StoreHistory(ctx, "s1", turns); err != nil {
		t.Fatalf("StoreHistory: %v", err)
	}

	got, err := repo.GetHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	for i := range turns {
		if got[i] != turns[i] {
			t.Fatalf("turn %d mismatch: got %+v want %+v", i, got[i], turns[i])
		}
	}
}

func TestHistoryOverwrites(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if err := repo.StoreHistory(ctx, "s1", []models.ConversationTurn{{Role: models.RoleUser, Content: "first"}}); err != nil {
		t.Fatalf("StoreHistory: %v", err)
	}
	if err := repo.StoreHistory(ctx, "s1", []models.ConversationTurn{{Role: models.RoleUser, Content: "second"}}); err != nil {
		t.Fatalf("StoreHistory: %v", err)
	}

	got, err := repo.GetHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(got) != 1 || got[0].Content != "second" {
		t.Fatalf("expected last write to win, got %+v", got)
	}
}

func TestHistoryAbsentIsEmpty(t *testing.T) {
	repo, _ := newTestRepo(t)

	got, err := repo.GetHistory(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(got))
	}
}

func TestHistoryExpires(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	if err := repo.StoreHistory(ctx, "s1", []models.ConversationTurn{{Role: models.RoleUser, Content: "hello"}}); err != nil {
		t.Fatalf("StoreHistory: %v", err)
	}
	if ttl := mr.TTL(historyKey("s1")); ttl != time.Hour {
		t.Fatalf("expected 1h TTL, got %v", ttl)
	}

	mr.FastForward(time.Hour + time.Second)

	got, err := repo.GetHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("GetHistory after expiry: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected expired history to be empty, got %d turns", len(got))
	}
}

func TestClearHistoryIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if err := repo.StoreHistory(ctx, "s1", []models.ConversationTurn{{Role: models.RoleUser, Content: "hello"}}); err != nil {
		t.Fatalf("StoreHistory: %v", err)
	}
	if err := repo.ClearHistory(ctx, "s1"); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if err := repo.ClearHistory(ctx, "s1"); err != nil {
		t.Fatalf("ClearHistory twice: %v", err)
	}

	got, err := repo.GetHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected cleared history to be empty, got %d turns", len(got))
	}
}

func TestHistoryUnavailable(t *testing.T) {
	repo, mr := newTestRepo(t)
	mr.Close()

	if _, err := repo.GetHistory(context.Background(), "s1"); err == nil {
		t.Fatal("expected error when redis is down")
	} else if !errors.Is(err, models.ErrSessionStore) {
		t.Fatalf("expected ErrSessionStore, got %v", err)
	}
}
