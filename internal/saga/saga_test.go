package saga

import (
	"context"
	"errors"
	"testing"
)

func TestExecuteRunsAllSteps(t *testing.T) {
	var order []string
	err := Execute(context.Background(), []Step{
		{Name: "first", Run: func(context.Context) error { order = append(order, "first"); return nil }},
		{Name: "second", Run: func(context.Context) error { order = append(order, "second"); return nil }},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestExecuteCompensatesInReverseOrder(t *testing.T) {
	boom := errors.New("boom")
	var undone []string
	err := Execute(context.Background(), []Step{
		{
			Name:       "a",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { undone = append(undone, "a"); return nil },
		},
		{
			Name:       "b",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { undone = append(undone, "b"); return nil },
		},
		{Name: "c", Run: func(context.Context) error { return boom }},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error to surface, got %v", err)
	}
	if len(undone) != 2 || undone[0] != "b" || undone[1] != "a" {
		t.Fatalf("expected reverse-order compensation, got %v", undone)
	}
}

func TestExecuteShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	err := Execute(context.Background(), []Step{
		{Name: "fails", Run: func(context.Context) error { return boom }},
		{Name: "never", Run: func(context.Context) error { ran = true; return nil }},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if ran {
		t.Fatal("subsequent step must not run after a failure")
	}
}

func TestExecuteSurfacesCompensationFailures(t *testing.T) {
	boom := errors.New("boom")
	undoFail := errors.New("undo failed")
	err := Execute(context.Background(), []Step{
		{
			Name:       "write",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { return undoFail },
		},
		{Name: "fails", Run: func(context.Context) error { return boom }},
	})

	if !errors.Is(err, boom) {
		t.Fatalf("original error must still match, got %v", err)
	}
	var cerr *CompensationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompensationError, got %T", err)
	}
	if len(cerr.Failed) != 1 || !errors.Is(cerr.Failed[0], undoFail) {
		t.Fatalf("compensation failure not collected: %v", cerr.Failed)
	}
}
