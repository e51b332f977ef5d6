// Package loop is the controller's single thread of control.
//
// Every mutation of device state runs as a task on the loop: messages
// posted by transports, one-shot deferred tasks, periodic tasks and the
// per-pass tick hooks that advance animations. Tasks run to completion one
// at a time, so the state they touch needs no locking.
//
// Deferred tasks cannot be cancelled. A task scheduled against state that
// has since changed still runs and must tolerate that.
package loop

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/timeutil"
)

// DefaultInterval is the pass period of Run.
const DefaultInterval = 4 * time.Millisecond

type timer struct {
	seq    uint64
	due    time.Time
	period time.Duration
	name   string
	fn     func()
}

// Loop is a cooperative scheduler.
type Loop struct {
	clock    timeutil.Clock
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	queue  []func()
	timers []*timer
	hooks  []func(now time.Time)
	seq    uint64

	wake chan struct{}
}

// New creates a loop. A zero interval selects DefaultInterval.
func New(clock timeutil.Clock, interval time.Duration) *Loop {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		clock:    clock,
		interval: interval,
		log:      logging.Named("loop"),
		wake:     make(chan struct{}, 1),
	}
}

// Clock returns the loop's time source.
func (l *Loop) Clock() timeutil.Clock { return l.clock }

// Post queues fn to run on the loop. It never blocks and may be called from
// any goroutine, including from a task.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from a task: the loop would wait on itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// After schedules fn to run once, d from now.
func (l *Loop) After(name string, d time.Duration, fn func()) {
	l.schedule(name, d, 0, fn)
}

// Every schedules fn to run every d, first d from now.
func (l *Loop) Every(name string, d time.Duration, fn func()) {
	l.EveryAfter(name, d, d, fn)
}

// EveryAfter schedules fn to run every period, first after first.
func (l *Loop) EveryAfter(name string, first, period time.Duration, fn func()) {
	if period <= 0 {
		panic(fmt.Sprintf("loop: non-positive period for %q", name))
	}
	l.schedule(name, first, period, fn)
}

func (l *Loop) schedule(name string, d, period time.Duration, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.timers = append(l.timers, &timer{
		seq:    l.seq,
		due:    l.clock.Now().Add(d),
		period: period,
		name:   name,
		fn:     fn,
	})
}

// OnTick registers a hook that runs at the end of every pass.
func (l *Loop) OnTick(fn func(now time.Time)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, fn)
}

// Pending returns the number of scheduled timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Step runs one pass at now: queued messages, then every timer due at now
// in due order, then the tick hooks. Timers scheduled during the pass run
// on a later pass.
func (l *Loop) Step(now time.Time) {
	l.drain()

	for _, t := range l.takeDue(now) {
		l.run(t.name, t.fn)
	}

	l.mu.Lock()
	hooks := l.hooks
	l.mu.Unlock()
	for _, h := range hooks {
		l.run("tick", func() { h(now) })
	}
}

// Run drives the loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Debug("Run loop started", zap.Duration("interval", l.interval))
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("Run loop stopped")
			return ctx.Err()
		case <-l.wake:
			l.drain()
		case <-ticker.C():
			l.Step(l.clock.Now())
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		queue := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(queue) == 0 {
			return
		}
		for _, fn := range queue {
			l.run("message", fn)
		}
	}
}

// takeDue removes the timers due at now, re-arms the periodic ones and
// returns them in due order.
func (l *Loop) takeDue(now time.Time) []*timer {
	l.mu.Lock()
	defer l.mu.Unlock()

	var due []*timer
	kept := l.timers[:0]
	for _, t := range l.timers {
		if t.due.After(now) {
			kept = append(kept, t)
			continue
		}
		due = append(due, &timer{seq: t.seq, due: t.due, name: t.name, fn: t.fn})
		if t.period > 0 {
			t.due = t.due.Add(t.period)
			// A stalled loop does not replay missed periods.
			if !t.due.After(now) {
				t.due = now.Add(t.period)
			}
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(l.timers); i++ {
		l.timers[i] = nil
	}
	l.timers = kept

	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].seq < due[j].seq
		}
		return due[i].due.Before(due[j].due)
	})
	return due
}

func (l *Loop) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Task panicked",
				zap.String("task", name),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
