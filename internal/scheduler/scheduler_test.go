package scheduler

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"coinedge/internal/logger"
	"coinedge/internal/round"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type recordingEngine struct {
	mu    sync.Mutex
	calls []string
}

func (e *recordingEngine) record(call string) {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.mu.Unlock()
}

func (e *recordingEngine) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *recordingEngine) GenerateRound() (string, error) {
	e.record("generate")
	return "round-1", nil
}

func (e *recordingEngine) StartBetting() error {
	e.record("betting")
	return nil
}

func (e *recordingEngine) StartReveal() error {
	e.record("reveal")
	return nil
}

func (e *recordingEngine) Finish() (*round.FinishedRound, error) {
	e.record("finish")
	return &round.FinishedRound{RoundID: "round-1", Outcome: "heads"}, nil
}

type recordingSettler struct {
	engine *recordingEngine
}

func (s *recordingSettler) SettleRound(ctx context.Context, fr *round.FinishedRound) {
	s.engine.record("settle")
}

func TestPhaseSequenceRepeats(t *testing.T) {
	engine := &recordingEngine{}
	settler := &recordingSettler{engine: engine}

	s := New(engine, settler, time.Millisecond, time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(engine.snapshot()) < 10 {
		select {
		case <-deadline:
			t.Fatalf("scheduler made no progress: %v", engine.snapshot())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	calls := engine.snapshot()
	want := []string{"generate", "betting", "reveal", "finish", "settle"}
	for i, call := range calls[:10] {
		if call != want[i%len(want)] {
			t.Fatalf("call %d = %s, want %s (full: %v)", i, call, want[i%len(want)], calls)
		}
	}
}

func TestStopsOnCancel(t *testing.T) {
	engine := &recordingEngine{}
	s := New(engine, &recordingSettler{engine: engine}, time.Millisecond, time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("scheduler did not stop on cancel")
	}
}
