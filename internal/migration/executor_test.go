package migration

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/loykin/dolphin/internal/apperr"
	"github.com/loykin/dolphin/internal/common"
)

func run(t *testing.T, f *fakeEngine, opts Options) error {
	t.Helper()
	return NewExecutor(f, opts, common.Discard()).Execute(context.Background())
}

func TestExecute_ApplyAll(t *testing.T) {
	f := newFakeEngine("00001_a", "00002_b", "00003_c")
	if err := run(t, f, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.applyAllCalls != 1 {
		t.Fatalf("expected one ApplyAll call, got %d", f.applyAllCalls)
	}
	if len(f.applyToCalls) != 0 {
		t.Fatalf("ApplyTo should not be used for apply-all, got %v", f.applyToCalls)
	}
	if f.applied != 3 {
		t.Fatalf("expected all migrations applied, got %d", f.applied)
	}
}

func TestExecute_ApplyAllNothingPending(t *testing.T) {
	f := newFakeEngine("00001_a").withApplied(1)
	if err := run(t, f, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.applied != 1 {
		t.Fatalf("state changed: %d applied", f.applied)
	}
}

func TestExecute_ApplyNamedRunsPrefixInOrder(t *testing.T) {
	f := newFakeEngine("00001_a", "00002_b", "00003_c", "00004_d").withApplied(1)
	if err := run(t, f, Options{MigrationName: "00003_c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"00002_b", "00003_c"}
	if !reflect.DeepEqual(f.applyToCalls, want) {
		t.Fatalf("apply order = %v, want %v", f.applyToCalls, want)
	}
	if got := f.appliedNames(); !reflect.DeepEqual(got, []string{"00001_a", "00002_b", "00003_c"}) {
		t.Fatalf("applied = %v", got)
	}
	if f.applyAllCalls != 0 {
		t.Fatalf("ApplyAll should not be called for a named target")
	}
}

func TestExecute_ApplyNamedByVersion(t *testing.T) {
	f := newFakeEngine("00001_a", "00002_b", "00003_c")
	if err := run(t, f, Options{MigrationName: "2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.applied != 2 {
		t.Fatalf("expected 2 applied, got %d", f.applied)
	}
}

func TestExecute_ApplyNamedNotPending(t *testing.T) {
	cases := map[string]*fakeEngine{
		"unknown":         newFakeEngine("00001_a", "00002_b"),
		"already applied": newFakeEngine("00001_a", "00002_b").withApplied(1),
	}
	target := map[string]string{"unknown": "00009_zzz", "already applied": "00001_a"}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			before := f.applied
			err := run(t, f, Options{MigrationName: target[name]})
			if !apperr.Is(err, apperr.KindMigrationNotFound) {
				t.Fatalf("expected migration not found, got %v", err)
			}
			want := "Migration '" + target[name] + "' not found in pending migrations"
			if err.Error() != want {
				t.Fatalf("message = %q, want %q", err.Error(), want)
			}
			if f.applied != before || len(f.applyToCalls) != 0 {
				t.Fatalf("nothing should be applied: applied=%d calls=%v", f.applied, f.applyToCalls)
			}
		})
	}
}

func TestExecute_RevertLast(t *testing.T) {
	f := newFakeEngine("00001_a", "00002_b", "00003_c").withApplied(3)
	if err := run(t, f, Options{Revert: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(f.revertCalls, []int64{2}) {
		t.Fatalf("revert calls = %v, want [2]", f.revertCalls)
	}
	if got := f.appliedNames(); !reflect.DeepEqual(got, []string{"00001_a", "00002_b"}) {
		t.Fatalf("applied = %v", got)
	}
}

func TestExecute_RevertLastSingle(t *testing.T) {
	f := newFakeEngine("00001_a").withApplied(1)
	if err := run(t, f, Options{Revert: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(f.revertCalls, []int64{0}) {
		t.Fatalf("revert calls = %v, want [0]", f.revertCalls)
	}
	if f.applied != 0 {
		t.Fatalf("expected nothing applied, got %d", f.applied)
	}
}

func TestExecute_RevertLastNothingApplied(t *testing.T) {
	f := newFakeEngine("00001_a", "00002_b")
	if err := run(t, f, Options{Revert: true}); err != nil {
		t.Fatalf("reverting an empty ledger should succeed, got %v", err)
	}
	if len(f.revertCalls) != 0 {
		t.Fatalf("no revert expected, got %v", f.revertCalls)
	}
}

func TestExecute_RevertToNamed(t *testing.T) {
	f := newFakeEngine("00001_a", "00002_b", "00003_c", "00004_d").withApplied(4)
	if err := run(t, f, Options{Revert: true, MigrationName: "00002_b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(f.revertCalls, []int64{2}) {
		t.Fatalf("revert calls = %v, want [2]", f.revertCalls)
	}
	if got := f.appliedNames(); !reflect.DeepEqual(got, []string{"00001_a", "00002_b"}) {
		t.Fatalf("target must stay applied, got %v", got)
	}
}

func TestExecute_RevertToNamedNewestIsNoop(t *testing.T) {
	f := newFakeEngine("00001_a", "00002_b").withApplied(2)
	if err := run(t, f, Options{Revert: true, MigrationName: "00002_b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.applied != 2 {
		t.Fatalf("expected state unchanged, got %d applied", f.applied)
	}
}

func TestExecute_RevertToUnknown(t *testing.T) {
	f := newFakeEngine("00001_a", "00002_b").withApplied(1)
	err := run(t, f, Options{Revert: true, MigrationName: "00002_b"})
	if !apperr.Is(err, apperr.KindMigrationNotFound) {
		t.Fatalf("expected migration not found, got %v", err)
	}
	if err.Error() != "Migration '00002_b' not found in applied migrations" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if len(f.revertCalls) != 0 || f.applied != 1 {
		t.Fatalf("state changed: calls=%v applied=%d", f.revertCalls, f.applied)
	}
}

func TestExecute_PingFailure(t *testing.T) {
	f := newFakeEngine("00001_a")
	f.pingErr = errBoom
	err := run(t, f, Options{})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected ping error, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindUnexpected {
		t.Fatalf("expected unexpected kind, got %v", apperr.KindOf(err))
	}
	if f.applyAllCalls != 0 {
		t.Fatalf("nothing should run after failed ping")
	}
}

func TestExecute_EngineErrorPropagates(t *testing.T) {
	f := newFakeEngine("00001_a", "00002_b")
	f.applyErr = errBoom
	err := run(t, f, Options{MigrationName: "00002_b"})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected engine error, got %v", err)
	}
	if len(f.applyToCalls) != 1 {
		t.Fatalf("expected to stop at first failure, calls=%v", f.applyToCalls)
	}
}

func TestExecute_CancelledBetweenSteps(t *testing.T) {
	f := newFakeEngine("00001_a", "00002_b", "00003_c")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.cancel = cancel
	f.cancelAfter = 1

	err := NewExecutor(f, Options{MigrationName: "00003_c"}, common.Discard()).Execute(ctx)
	if !apperr.Is(err, apperr.KindCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if !reflect.DeepEqual(f.applyToCalls, []string{"00001_a"}) {
		t.Fatalf("no step should start after cancellation, calls=%v", f.applyToCalls)
	}
}

func TestExecute_DeadlineExceeded(t *testing.T) {
	f := newFakeEngine("00001_a")
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := NewExecutor(f, Options{}, common.Discard()).Execute(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !apperr.Is(err, apperr.KindCancelled) {
		t.Fatalf("expected cancelled kind, got %v", apperr.KindOf(err))
	}
}
