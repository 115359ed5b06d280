package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	pkglogger "github.com/BradenHooton/deptaccess/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCleaner struct {
	runs    atomic.Int64
	err     error
	deleted int
}

func (f *fakeCleaner) CleanupExpired(ctx context.Context) (int, error) {
	f.runs.Add(1)
	return f.deleted, f.err
}

func newTestManager(cleaner ExpiredTokenCleaner, interval time.Duration) *CleanupManager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCleanupManager(cleaner, logger, pkglogger.NewAuditLogger(logger), interval)
}

func TestCleanupManager_RunsImmediatelyAndOnTick(t *testing.T) {
	cleaner := &fakeCleaner{deleted: 2}
	cm := newTestManager(cleaner, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cm.Stop()
	cm.Stop()
	<-done
}

func TestCleanupManager_StopsOnContextCancel(t *testing.T) {
	cleaner := &fakeCleaner{}
	cm := newTestManager(cleaner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop after cancellation")
	}
}

func TestCleanupManager_KeepsRunningAfterError(t *testing.T) {
	cleaner := &fakeCleaner{err: errors.New("store down")}
	cm := newTestManager(cleaner, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cm.Stop()
	<-done
}
