package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cdpops/segment-copier/internal/models"
)

// statusSequence serves successive statuses per attempt id.
type statusSequence struct {
	mu       sync.Mutex
	statuses map[string][]string
}

func (s *statusSequence) next(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.statuses[id]
	if len(seq) == 0 {
		return "success"
	}
	status := seq[0]
	if len(seq) > 1 {
		s.statuses[id] = seq[1:]
	}
	return status
}

func pollServer(t *testing.T, seq *statusSequence) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/attempts/"):]
		json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "status": seq.next(id)})
	}))
}

func fastPollConfig() PollConfig {
	return PollConfig{
		Initial:   time.Millisecond,
		Max:       5 * time.Millisecond,
		Factor:    1.5,
		MaxErrors: 3,
		Timeout:   5 * time.Second,
		Tick:      time.Millisecond,
	}
}

func TestWaitAll_MixedOutcomes(t *testing.T) {
	seq := &statusSequence{statuses: map[string][]string{
		"a1": {"running", "running", "success"},
		"a2": {"running", "failed"},
	}}
	ts := pollServer(t, seq)
	defer ts.Close()

	m := testManager(ts)
	attempts := []*Attempt{
		{ID: "a1", Database: "db1"},
		{ID: "a2", Database: "db2"},
	}
	completed, failed, err := m.WaitAll(context.Background(), attempts, fastPollConfig(), func(models.Event) {})
	if err != nil {
		t.Fatalf("WaitAll returned error: %v", err)
	}
	if completed != 1 || failed != 1 {
		t.Errorf("completed=%d failed=%d, want 1 and 1", completed, failed)
	}
}

func TestWaitAll_GlobalTimeout(t *testing.T) {
	seq := &statusSequence{statuses: map[string][]string{
		"a1": {"running", "running", "running", "running", "running", "running"},
	}}
	// Never leaves running: the sequence repeats its last entry.
	seq.statuses["a1"] = append(seq.statuses["a1"], "running")
	ts := pollServer(t, seq)
	defer ts.Close()

	cfg := fastPollConfig()
	cfg.Timeout = 50 * time.Millisecond

	m := testManager(ts)
	completed, failed, err := m.WaitAll(context.Background(), []*Attempt{{ID: "a1", Database: "db1"}}, cfg, func(models.Event) {})
	if err != nil {
		t.Fatalf("WaitAll returned error: %v", err)
	}
	if completed != 0 || failed != 1 {
		t.Errorf("completed=%d failed=%d, want 0 and 1 (timeout)", completed, failed)
	}
}

func TestWaitAll_StatusErrorsGiveUpEventually(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no such attempt"}`))
	}))
	defer ts.Close()

	m := testManager(ts)
	completed, failed, err := m.WaitAll(context.Background(), []*Attempt{{ID: "gone", Database: "db1"}}, fastPollConfig(), func(models.Event) {})
	if err != nil {
		t.Fatalf("WaitAll returned error: %v", err)
	}
	if completed != 0 || failed != 1 {
		t.Errorf("completed=%d failed=%d, want 0 and 1", completed, failed)
	}
}

func TestWaitAll_ContextCancel(t *testing.T) {
	seq := &statusSequence{statuses: map[string][]string{"a1": {"running", "running"}}}
	ts := pollServer(t, seq)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := testManager(ts)
	_, _, err := m.WaitAll(ctx, []*Attempt{{ID: "a1", Database: "db1"}}, fastPollConfig(), func(models.Event) {})
	if err == nil {
		t.Fatal("WaitAll should return the context error after cancellation")
	}
}
