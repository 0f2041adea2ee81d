package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolNeverExceedsLimit(t *testing.T) {
	p := newPool(3, 0, 0)
	var active, peak, calls int32

	tasks := make([]task, 12)
	for i := range tasks {
		tasks[i] = task{index: i}
	}
	left := p.run(context.Background(), tasks, func(task) {
		n := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		atomic.AddInt32(&calls, 1)
	})

	if len(left) != 0 {
		t.Fatalf("expected all tasks launched, %d left", len(left))
	}
	if calls != 12 {
		t.Fatalf("expected 12 executions, got %d", calls)
	}
	if peak > 3 {
		t.Fatalf("peak concurrency %d exceeds limit 3", peak)
	}
}

func TestPoolStartsFourthItemOnlyAfterACompletion(t *testing.T) {
	p := newPool(3, 0, 0)
	started := make(chan int, 5)
	release := make([]chan struct{}, 5)
	for i := range release {
		release[i] = make(chan struct{})
	}

	tasks := make([]task, 5)
	for i := range tasks {
		tasks[i] = task{index: i}
	}
	finished := make(chan []task, 1)
	go func() {
		finished <- p.run(context.Background(), tasks, func(t task) {
			started <- t.index
			<-release[t.index]
		})
	}()

	first := map[int]bool{}
	for i := 0; i < 3; i++ {
		select {
		case idx := <-started:
			first[idx] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for the first three items")
		}
	}
	if !first[0] || !first[1] || !first[2] {
		t.Fatalf("expected items 1-3 to start first, got %v", first)
	}

	select {
	case idx := <-started:
		t.Fatalf("item %d started while all slots were busy", idx+1)
	case <-time.After(30 * time.Millisecond):
	}

	close(release[1])
	select {
	case idx := <-started:
		if idx != 3 {
			t.Fatalf("expected item 4 to start next, got item %d", idx+1)
		}
	case <-time.After(time.Second):
		t.Fatal("item 4 did not start after a slot was freed")
	}

	close(release[0])
	close(release[2])
	close(release[3])
	close(release[4])
	select {
	case left := <-finished:
		if len(left) != 0 {
			t.Fatalf("expected no unlaunched tasks, got %d", len(left))
		}
	case <-time.After(time.Second):
		t.Fatal("pool did not finish")
	}
}

func TestPoolDelayedTaskDoesNotBlockOthers(t *testing.T) {
	p := newPool(1, 0, 0)
	cooldown := 40 * time.Millisecond
	readyAt := time.Now().Add(cooldown)

	var mu sync.Mutex
	var order []int
	startedAt := map[int]time.Time{}

	tasks := []task{{index: 0, readyAt: readyAt}, {index: 1}}
	p.run(context.Background(), tasks, func(t task) {
		mu.Lock()
		order = append(order, t.index)
		startedAt[t.index] = time.Now()
		mu.Unlock()
	})

	if len(order) != 2 || order[0] != 1 || order[1] != 0 {
		t.Fatalf("expected ready task first, got order %v", order)
	}
	if startedAt[0].Before(readyAt) {
		t.Fatalf("cooling task started %s before it was ready", readyAt.Sub(startedAt[0]))
	}
}

func TestPoolStopsLaunchingWhenStopped(t *testing.T) {
	p := newPool(1, 0, 0)
	stop, cancel := context.WithCancel(context.Background())
	defer cancel()

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	tasks := []task{{index: 0}, {index: 1}, {index: 2}}
	finished := make(chan []task, 1)
	go func() {
		finished <- p.run(stop, tasks, func(task) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(entered)
				<-release
			}
		})
	}()

	<-entered
	cancel()
	close(release)

	select {
	case left := <-finished:
		if len(left) != 2 {
			t.Fatalf("expected 2 unlaunched tasks, got %d", len(left))
		}
	case <-time.After(time.Second):
		t.Fatal("pool did not return after stop")
	}
	if calls != 1 {
		t.Fatalf("expected only the in-flight task to run, got %d calls", calls)
	}
}

func TestPoolDispatchRateSpacesLaunches(t *testing.T) {
	p := newPool(4, 50, 1)
	var mu sync.Mutex
	var starts []time.Time

	tasks := []task{{index: 0}, {index: 1}, {index: 2}}
	p.run(context.Background(), tasks, func(task) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
	})

	if len(starts) != 3 {
		t.Fatalf("expected 3 launches, got %d", len(starts))
	}
	first, last := starts[0], starts[0]
	for _, at := range starts[1:] {
		if at.Before(first) {
			first = at
		}
		if at.After(last) {
			last = at
		}
	}
	if span := last.Sub(first); span < 30*time.Millisecond {
		t.Fatalf("expected limiter to spread launches, span %s", span)
	}
}
