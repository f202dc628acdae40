package store

import (
	"context"
	"path/filepath"
	"testing"

	logx "appwatch/pkg/logx"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "versions.db")
	s, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestFirstRunEmptySnapshot(t *testing.T) {
	s, _ := openTemp(t)
	if !s.FirstRun() {
		t.Fatal("fresh database must report FirstRun")
	}
	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("fresh snapshot = %v", snap)
	}
}

func TestApplyAndReload(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)

	if err := s.Apply(ctx, map[string]string{"544007664": "19.05", "389801252": "324.0"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap["544007664"] != "19.05" || snap["389801252"] != "324.0" {
		t.Fatalf("snapshot = %v", snap)
	}

	// Upsert overwrites.
	if err := s.Apply(ctx, map[string]string{"544007664": "19.06"}); err != nil {
		t.Fatalf("Apply upsert: %v", err)
	}
	snap, _ = s.Load(ctx)
	if snap["544007664"] != "19.06" || len(snap) != 2 {
		t.Fatalf("after upsert: %v", snap)
	}

	// Durable across reopen, and no longer a first run.
	_ = s.Close()
	s2, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if s2.FirstRun() {
		t.Fatal("reopened database must not report FirstRun")
	}
	snap, err = s2.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if snap["544007664"] != "19.06" || snap["389801252"] != "324.0" {
		t.Fatalf("reloaded snapshot = %v", snap)
	}
}

func TestApplyEmptyDeltaIsNoop(t *testing.T) {
	s, _ := openTemp(t)
	if err := s.Apply(context.Background(), nil); err != nil {
		t.Fatalf("Apply(nil): %v", err)
	}
}

func TestApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	// A cancelled context aborts the transaction; nothing may stick.
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Apply(cctx, map[string]string{"A": "1", "B": "2"}); err == nil {
		t.Fatal("expected error from cancelled Apply")
	}
	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("partial commit visible: %v", snap)
	}
}
