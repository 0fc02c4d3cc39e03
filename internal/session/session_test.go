package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreRoundTripCopiesValues(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	s := &Session{ActorID: 5, Flow: "student_registration", Step: 1, Values: map[string]string{"full_name": "Aru"}}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Values["full_name"] = "changed"

	got, err := store.Get(ctx, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Values["full_name"] != "Aru" || got.Step != 1 {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, &Session{ActorID: 1, Mode: ModeEmployer}); err != nil {
		t.Fatalf("save: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestLoadReturnsFreshSession(t *testing.T) {
	store := NewMemoryStore(0)
	s, err := Load(context.Background(), store, 9)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ActorID != 9 || s.InFlow() {
		t.Fatalf("unexpected fresh session: %+v", s)
	}
}
