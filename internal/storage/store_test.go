package storage

import (
	"database/sql"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func row(id, conv string) GameRow {
	return GameRow{
		ID:             id,
		ConversationID: conv,
		State:          "completed",
		WinnerID:       "alice",
		SessionJSON:    `{"id":"` + id + `"}`,
		CreatedAt:      time.Now().Add(-time.Minute),
		CompletedAt:    time.Now(),
	}
}

func TestSaveAndGetGame(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveGame(row("g1", "conv1")); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetGame("g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ConversationID != "conv1" || got.WinnerID != "alice" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestSaveGameUpsert(t *testing.T) {
	s := newTestStore(t)
	r := row("g1", "conv1")
	if err := s.SaveGame(r); err != nil {
		t.Fatalf("save: %v", err)
	}
	r.State = "abandoned"
	r.WinnerID = ""
	if err := s.SaveGame(r); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetGame("g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != "abandoned" || got.WinnerID != "" {
		t.Fatalf("expected upserted values, got %+v", got)
	}
}

func TestListGamesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	old := row("g1", "conv1")
	old.CompletedAt = time.Now().Add(-time.Hour)
	s.SaveGame(old)
	s.SaveGame(row("g2", "conv1"))
	s.SaveGame(row("g3", "conv2"))

	rows, err := s.ListGames("conv1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != "g2" || rows[1].ID != "g1" {
		t.Fatalf("expected newest first, got %s then %s", rows[0].ID, rows[1].ID)
	}

	rows, err = s.ListGames("conv1", 1)
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "g2" {
		t.Fatalf("expected limit to keep the newest row, got %+v", rows)
	}
}

func TestGetGameNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetGame("nonexistent")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
