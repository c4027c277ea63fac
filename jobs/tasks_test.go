package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

type stubReloader struct {
	calls int
	err   error
}

func (s *stubReloader) Reload(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestSnapshotRefreshHandler(t *testing.T) {
	reloader := &stubReloader{}
	handler := NewSnapshotRefreshHandler(reloader, slog.Default())

	if err := handler(context.Background(), NewSnapshotRefreshTask()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloader.calls != 1 {
		t.Fatalf("expected one reload, got %d", reloader.calls)
	}
}

func TestSnapshotRefreshHandlerPropagatesError(t *testing.T) {
	boom := errors.New("storage down")
	reloader := &stubReloader{err: boom}
	handler := NewSnapshotRefreshHandler(reloader, slog.Default())

	if err := handler(context.Background(), NewSnapshotRefreshTask()); !errors.Is(err, boom) {
		t.Fatalf("expected reload error to propagate, got %v", err)
	}
}
