package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering and shutdown.
//
// OnDrop, when set, is called synchronously with every event the dispatcher gives
// up on: a full buffer in DropIfFull mode, or an event still queued when the
// flush deadline passes. total is the running drop count including this one.
type Config struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	FlushTimeout time.Duration
	OnDrop       func(event Event, total uint64)
}

// Dispatcher moves audit events from request goroutines to a single sink
// goroutine through a bounded queue.
type Dispatcher struct {
	cfg      Config
	sink     Sink
	queue    chan Event
	stopping chan struct{}
	stopped  chan struct{}

	// flushCtx is written before stopping is closed and read only after.
	flushCtx context.Context

	dropped  atomic.Uint64
	shutOnce sync.Once
}

// NewDispatcher starts the sink goroutine. It returns nil when audit is disabled;
// every method is safe on a nil Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		sink:     sink,
		queue:    make(chan Event, cfg.BufferSize),
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)

	for {
		// Stop wins over a ready queue so the flush deadline governs what remains.
		if d.isStopping() {
			d.flush(d.flushCtx)
			return
		}
		select {
		case ev := <-d.queue:
			d.sink.Emit(context.Background(), ev)
		case <-d.stopping:
		}
	}
}

// flush delivers what is still queued. Once ctx is done the remainder is counted
// as dropped instead of delivered.
func (d *Dispatcher) flush(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			if ctx.Err() != nil {
				d.drop(ev)
				continue
			}
			d.sink.Emit(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) drop(ev Event) {
	total := d.dropped.Add(1)
	if d.cfg.OnDrop != nil {
		d.cfg.OnDrop(ev, total)
	}
}

func (d *Dispatcher) isStopping() bool {
	select {
	case <-d.stopping:
		return true
	default:
		return false
	}
}

// Emit queues event. In DropIfFull mode a full queue drops it immediately;
// otherwise Emit waits for room until ctx is done or the dispatcher stops.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.isStopping() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stopping:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stopping:
	}
}

// Shutdown stops accepting events and flushes the queue until ctx is done. It
// returns ctx.Err() when the deadline cut the flush short; events left behind are
// counted as dropped. Only the first call's ctx bounds the flush.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if d == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.shutOnce.Do(func() {
		d.flushCtx = ctx
		close(d.stopping)
	})

	select {
	case <-d.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is Shutdown bounded by Config.FlushTimeout, or unbounded when it is <= 0.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	if d.cfg.FlushTimeout <= 0 {
		return d.Shutdown(context.Background())
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.FlushTimeout)
	defer cancel()
	return d.Shutdown(ctx)
}

// Dropped is the number of events that never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
