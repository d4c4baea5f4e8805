package connectors

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomaszgubala/car-dealer/config"
)

type blockingConnector struct {
	release chan struct{}
	started chan struct{}
	fetches int32
}

func (c *blockingConnector) Name() string { return "blocking" }

func (c *blockingConnector) Fetch(ctx context.Context) ConnectorResult {
	atomic.AddInt32(&c.fetches, 1)
	close(c.started)
	<-c.release
	return ConnectorResult{}
}

func TestTick_SkipsWhileRunInProgress(t *testing.T) {
	store := newMemStore()
	conn := &blockingConnector{
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	sched := &Scheduler{
		Importer: newTestImporter(store, &countingCache{}, conn),
		Interval: time.Minute,
		Logger:   config.GetLogger(),
	}

	firstDone := make(chan bool, 1)
	go func() {
		_, ran := sched.Tick(context.Background())
		firstDone <- ran
	}()

	select {
	case <-conn.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first tick never started fetching")
	}

	// A tick arriving mid-run is dropped, not queued.
	if _, ran := sched.Tick(context.Background()); ran {
		t.Fatal("overlapping tick must be skipped")
	}
	if got := atomic.LoadInt32(&conn.fetches); got != 1 {
		t.Fatalf("skipped tick must not fetch, got %d fetches", got)
	}

	close(conn.release)
	if ran := <-firstDone; !ran {
		t.Fatal("first tick should have run")
	}

	store.mu.Lock()
	jobs := len(store.jobs)
	store.mu.Unlock()
	if jobs != 1 {
		t.Fatalf("expected exactly 1 job row, got %d", jobs)
	}

	// With the run finished the guard clears and the next tick runs.
	conn.release = make(chan struct{})
	conn.started = make(chan struct{})
	close(conn.release)
	if _, ran := sched.Tick(context.Background()); !ran {
		t.Fatal("tick after completion should run")
	}
	if got := atomic.LoadInt32(&conn.fetches); got != 2 {
		t.Fatalf("expected 2 fetches total, got %d", got)
	}
}
