package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain", errors.New("boom"), KindUnexpected},
		{"configuration", New(KindConfiguration, "Missing required configuration settings: %s", "server"), KindConfiguration},
		{"wrapped not found", fmt.Errorf("execute: %w", New(KindMigrationNotFound, "missing")), KindMigrationNotFound},
		{"deadline", fmt.Errorf("ping: %w", context.DeadlineExceeded), KindCancelled},
		{"canceled", context.Canceled, KindCancelled},
		{"explicit wins over context", Wrap(KindUnexpected, context.Canceled, "driver"), KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf=%v want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	e := Wrap(KindCancelled, context.DeadlineExceeded, "migration operation was cancelled")
	if e.Error() != "migration operation was cancelled: context deadline exceeded" {
		t.Fatalf("unexpected message %q", e.Error())
	}
	if !errors.Is(e, context.DeadlineExceeded) {
		t.Fatal("Wrap should keep the cause reachable")
	}
	if Wrap(KindUnexpected, nil, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	if got := (&Error{Err: errors.New("only cause")}).Error(); got != "only cause" {
		t.Fatalf("got %q", got)
	}
}

func TestIs(t *testing.T) {
	if Is(nil, KindUnexpected) {
		t.Fatal("nil error has no kind")
	}
	if !Is(New(KindMigrationNotFound, "x"), KindMigrationNotFound) {
		t.Fatal("expected not found kind")
	}
}
