package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Run events.
const (
	EventExported = "dataset:exported"
	EventImported = "dataset:imported"
	EventCompared = "dataset:compared"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their front end
// ─────────────────────────────────────────────────────────────

// EventEmitter receives a notification after each completed run.
// The CLI logs them; the MCP server forwards them to connected clients.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes events to the logger carried by ctx.
type LogEmitter struct{}

func (LogEmitter) Emit(ctx context.Context, event string, data any) {
	zerolog.Ctx(ctx).Debug().Str("event", event).Interface("data", data).Msg("run event")
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}
