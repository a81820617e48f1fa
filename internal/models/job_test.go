package models

import (
	"context"
	"testing"
	"time"
)

func TestJob_EventsSince(t *testing.T) {
	store := NewJobStore()
	job := store.Create("segment-copy")

	job.AppendEvent(Progress("one"))
	job.AppendEvent(Progress("two"))

	events := job.EventsSince(0)
	if len(events) != 2 {
		t.Fatalf("EventsSince(0) = %d events, want 2", len(events))
	}
	if events[1].Message != "two" {
		t.Errorf("second message = %q, want two", events[1].Message)
	}
	if got := job.EventsSince(2); got != nil {
		t.Errorf("EventsSince(2) = %v, want nil", got)
	}

	job.AppendEvent(ErrorEvent("boom: %d", 3))
	events = job.EventsSince(2)
	if len(events) != 1 || events[0].Type != EventError || events[0].Message != "boom: 3" {
		t.Errorf("EventsSince(2) = %v", events)
	}
}

func TestJob_CancelInvokesCancelFunc(t *testing.T) {
	job := NewJobStore().Create("segment-copy")
	ctx, cancel := context.WithCancel(context.Background())
	job.SetCancel(cancel)

	job.Cancel()
	select {
	case <-ctx.Done():
	default:
		t.Error("cancel func was not invoked")
	}
	if job.CurrentStatus() != "cancelled" {
		t.Errorf("status = %q, want cancelled", job.CurrentStatus())
	}
	if !job.Done() {
		t.Error("Done() = false after cancel")
	}
}

func TestJob_TerminalStatusSticks(t *testing.T) {
	job := NewJobStore().Create("segment-copy")
	job.Complete()
	job.Fail("late error")
	if job.CurrentStatus() != "completed" {
		t.Errorf("status = %q, want completed to stick", job.CurrentStatus())
	}

	failed := NewJobStore().Create("segment-copy")
	failed.Fail("boom")
	failed.Cancel()
	if failed.CurrentStatus() != "failed" {
		t.Errorf("status = %q, want failed to stick", failed.CurrentStatus())
	}
	if failed.Error != "boom" {
		t.Errorf("Error = %q, want boom", failed.Error)
	}
}

func TestJobStore_ListMostRecentFirst(t *testing.T) {
	store := NewJobStore()
	first := store.Create("segment-copy")
	first.StartedAt = time.Now().Add(-time.Hour)
	second := store.Create("segment-copy")

	jobs := store.List()
	if len(jobs) != 2 {
		t.Fatalf("List = %d jobs, want 2", len(jobs))
	}
	if jobs[0].ID != second.ID {
		t.Errorf("jobs[0] = %s, want most recent %s", jobs[0].ID, second.ID)
	}
	if store.Get(first.ID) != first {
		t.Error("Get did not return the stored job")
	}
	if store.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}
