package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

type countingSink struct {
	mu sync.Mutex
	n  int
}

func (s *countingSink) Emit(context.Context, Event) {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false, BufferSize: 4}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "e"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher cannot drop")
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
	}
	d.Close()

	if got := sink.count(); got != 10 {
		t.Fatalf("expected 10 delivered events after Close, got %d", got)
	}
}

func TestBufferFullDropIfFullDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestBufferFullBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: false}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestBlockedEmitHonoursContext(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "e3"})
	if ctx.Err() == nil {
		t.Fatal("expected emit to return only after the context expired")
	}
}

func TestCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, &countingSink{})

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "e2"})
}

func TestOnDropReceivesEventAndRunningTotal(t *testing.T) {
	sink := newGateSink()
	var mu sync.Mutex
	var seen []string
	var last uint64
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		OnDrop: func(ev Event, total uint64) {
			mu.Lock()
			seen = append(seen, ev.EventType)
			last = total
			mu.Unlock()
		},
	}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	for i := 0; i < 6; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 {
		t.Fatal("expected OnDrop calls with a stalled sink")
	}
	if last != d.Dropped() || uint64(len(seen)) != last {
		t.Fatalf("OnDrop total %d, calls %d, Dropped %d", last, len(seen), d.Dropped())
	}
	if seen[0] != "login_success" {
		t.Fatalf("OnDrop got event %q", seen[0])
	}
}

func TestShutdownDeadlineDropsUnflushedEvents(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8, FlushTimeout: 30 * time.Millisecond}, sink)

	for i := 0; i < 4; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
	}

	start := time.Now()
	if err := d.Close(); err == nil {
		t.Fatal("expected Close to report the flush deadline")
	}
	if time.Since(start) > time.Second {
		t.Fatal("Close must return once FlushTimeout passes")
	}

	close(sink.gate)
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if d.Dropped() == 0 {
		t.Fatal("events left after the deadline must be counted as dropped")
	}
}

func TestShutdownWithoutDeadlineDeliversEverything(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 32}, sink)
	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if sink.count() != 20 || d.Dropped() != 0 {
		t.Fatalf("delivered %d dropped %d", sink.count(), d.Dropped())
	}
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		EventType: "login_success",
		UserID:    "u1",
		IP:        "127.0.0.1",
		Success:   true,
	})
	sink.Emit(context.Background(), Event{EventType: "logout"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected two JSON lines, got %d", len(lines))
	}
	var got map[string]any
	if err := json.Unmarshal(lines[0], &got); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if got["event_type"] != "login_success" || got["user_id"] != "u1" || got["success"] != true {
		t.Fatalf("unexpected fields: %v", got)
	}
	if _, ok := got["session_id"]; ok {
		t.Fatal("empty session id must be omitted")
	}
}

func TestZapSinkLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{
		EventType: "login_success",
		UserID:    "u1",
		SessionID: "s1",
		Success:   true,
		Metadata:  map[string]string{"role": "dj"},
	})
	sink.Emit(context.Background(), Event{
		EventType: "refresh_reuse_detected",
		SessionID: "s1",
		Error:     "refresh_reuse",
	})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}

	ok := entries[0]
	if ok.Level != zapcore.InfoLevel || ok.LoggerName != "audit" {
		t.Fatalf("unexpected success entry level=%s logger=%q", ok.Level, ok.LoggerName)
	}
	fields := ok.ContextMap()
	if fields["user_id"] != "u1" || fields["session_id"] != "s1" || fields["meta.role"] != "dj" {
		t.Fatalf("unexpected success fields: %v", fields)
	}

	bad := entries[1]
	if bad.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn for failure, got %s", bad.Level)
	}
	if bad.ContextMap()["error_code"] != "refresh_reuse" {
		t.Fatalf("expected error_code field, got %v", bad.ContextMap())
	}
	if _, present := bad.ContextMap()["user_id"]; present {
		t.Fatal("empty user id must be omitted")
	}
}

func TestChannelSinkDelivers(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Emit(context.Background(), Event{EventType: "logout"})

	select {
	case ev := <-sink.Events():
		if ev.EventType != "logout" {
			t.Fatalf("unexpected event %q", ev.EventType)
		}
	default:
		t.Fatal("expected buffered event")
	}
}
