package service_test

import (
	"context"
	"testing"
	"time"

	"dsjson/internal/service"
)

// ─────────────────────────────────────────────────────────────
// BusyGuard tests
// ─────────────────────────────────────────────────────────────

func TestBusyGuard_TryLock(t *testing.T) {
	var g service.ExportedBusyGuard

	if !g.TryLock("out/a.json") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("out/a.json") {
		t.Fatal("expected second TryLock for same target to fail")
	}
	if !g.TryLock("out/b.json") {
		t.Fatal("expected TryLock for different target to succeed")
	}
	g.Unlock("out/a.json")
	g.Unlock("out/b.json")

	if !g.TryLock("out/a.json") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("out/a.json")
}

func TestBusyGuard_WaitAll(t *testing.T) {
	var g service.ExportedBusyGuard

	if !g.TryLock("lib.db#class") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("lib.db#class")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

func TestDatasetService_WaitRunning_Immediate(t *testing.T) {
	svc := service.NewDatasetService(nil, &service.MockEmitter{})

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		svc.WaitRunning(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("WaitRunning hung with no running runs")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventExported, map[string]string{"dataset": "class"})
	m.Emit(ctx, service.EventImported, nil)

	if len(m.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(m.Events))
	}
	if m.Events[0].Event != service.EventExported {
		t.Errorf("expected %q, got %q", service.EventExported, m.Events[0].Event)
	}
}
