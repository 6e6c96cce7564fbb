package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/goliatone/go-formflow/pkg/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sink struct {
	mu     sync.Mutex
	writes []model.Values
	signal chan struct{}
	err    error
}

func newSink() *sink {
	return &sink{signal: make(chan struct{}, 16)}
}

func (s *sink) save(_ context.Context, values model.Values) error {
	s.mu.Lock()
	s.writes = append(s.writes, values)
	err := s.err
	s.mu.Unlock()
	s.signal <- struct{}{}
	return err
}

func (s *sink) Writes() []model.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Values(nil), s.writes...)
}

func TestScheduleCoalescesEdits(t *testing.T) {
	s := newSink()
	a, err := New(20*time.Millisecond, s.save)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close(context.Background(), false)

	_ = a.Schedule(model.Values{"notes": "d"})
	_ = a.Schedule(model.Values{"notes": "dr"})
	_ = a.Schedule(model.Values{"notes": "draft"})

	select {
	case <-s.signal:
	case <-time.After(2 * time.Second):
		t.Fatalf("autosave did not fire")
	}
	// give a stray second write a chance to show up
	time.Sleep(50 * time.Millisecond)

	if diff := cmp.Diff([]model.Values{{"notes": "draft"}}, s.Writes()); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
	if a.Pending() {
		t.Fatalf("nothing should be pending after the write")
	}
}

func TestScheduleSnapshotsValues(t *testing.T) {
	s := newSink()
	a, _ := New(time.Hour, s.save)

	values := model.Values{"tags": []string{"a"}}
	_ = a.Schedule(values)
	values["tags"].([]string)[0] = "mutated"

	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if diff := cmp.Diff([]model.Values{{"tags": []string{"a"}}}, s.Writes()); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
	_ = a.Close(context.Background(), false)
}

func TestCloseWithFlushWritesPending(t *testing.T) {
	s := newSink()
	var results []error
	a, _ := New(time.Hour, s.save, WithResultHandler(func(err error) { results = append(results, err) }))

	_ = a.Schedule(model.Values{"notes": "last words"})
	if err := a.Close(context.Background(), true); err != nil {
		t.Fatalf("close: %v", err)
	}

	if diff := cmp.Diff([]model.Values{{"notes": "last words"}}, s.Writes()); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
	if len(results) != 1 || results[0] != nil {
		t.Fatalf("unexpected results %v", results)
	}
	if err := a.Schedule(model.Values{"notes": "late"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCloseWithoutFlushNeverWrites(t *testing.T) {
	s := newSink()
	a, _ := New(10*time.Millisecond, s.save)

	_ = a.Schedule(model.Values{"notes": "discard me"})
	if err := a.Close(context.Background(), false); err != nil {
		t.Fatalf("close: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	if n := len(s.Writes()); n != 0 {
		t.Fatalf("expected no writes after close, got %d", n)
	}
}

func TestCancelDropsPending(t *testing.T) {
	s := newSink()
	a, _ := New(10*time.Millisecond, s.save)
	defer a.Close(context.Background(), true)

	_ = a.Schedule(model.Values{"notes": "x"})
	a.Cancel()
	time.Sleep(40 * time.Millisecond)

	if n := len(s.Writes()); n != 0 {
		t.Fatalf("expected no writes after cancel, got %d", n)
	}
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush with nothing pending: %v", err)
	}
}

func TestFlushReturnsSaveError(t *testing.T) {
	s := newSink()
	s.err = errors.New("backend down")
	a, _ := New(time.Hour, s.save)
	defer a.Close(context.Background(), false)

	_ = a.Schedule(model.Values{"notes": "x"})
	if err := a.Flush(context.Background()); err == nil || err.Error() != "backend down" {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := newSink()
	a, _ := New(time.Hour, s.save)
	_ = a.Schedule(model.Values{"notes": "x"})

	if err := a.Close(context.Background(), true); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := a.Close(context.Background(), true); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if n := len(s.Writes()); n != 1 {
		t.Fatalf("expected a single write, got %d", n)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(time.Second, nil); err == nil {
		t.Fatalf("expected error for nil save func")
	}
	if _, err := New(0, func(context.Context, model.Values) error { return nil }); err == nil {
		t.Fatalf("expected error for zero delay")
	}
}
