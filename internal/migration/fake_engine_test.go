package migration

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// fakeEngine keeps an in-memory ledger over an ordered list of migrations.
type fakeEngine struct {
	all     []Migration
	applied int

	pingErr  error
	applyErr error
	// cancelAfter cancels the context after that many ApplyTo calls.
	cancelAfter int
	cancel      context.CancelFunc

	applyAllCalls int
	applyToCalls  []string
	revertCalls   []int64
	closed        bool
}

func newFakeEngine(names ...string) *fakeEngine {
	f := &fakeEngine{}
	for i, n := range names {
		f.all = append(f.all, Migration{Version: int64(i + 1), Name: n})
	}
	return f
}

func (f *fakeEngine) withApplied(n int) *fakeEngine {
	f.applied = n
	return f
}

func (f *fakeEngine) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.pingErr
}

func (f *fakeEngine) Applied(ctx context.Context) ([]Migration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Migration, 0, f.applied)
	for _, m := range f.all[:f.applied] {
		m.AppliedAt = time.Unix(1700000000, 0)
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeEngine) Pending(ctx context.Context) ([]Migration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]Migration(nil), f.all[f.applied:]...), nil
}

func (f *fakeEngine) ApplyAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.applyAllCalls++
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = len(f.all)
	return nil
}

func (f *fakeEngine) ApplyTo(ctx context.Context, target Migration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.applyToCalls = append(f.applyToCalls, target.Name)
	if f.applyErr != nil {
		return f.applyErr
	}
	for i, m := range f.all {
		if m.Version == target.Version {
			if i+1 > f.applied {
				f.applied = i + 1
			}
			break
		}
	}
	if f.cancel != nil && len(f.applyToCalls) == f.cancelAfter {
		f.cancel()
	}
	return nil
}

func (f *fakeEngine) RevertTo(ctx context.Context, version int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.revertCalls = append(f.revertCalls, version)
	if version == 0 {
		f.applied = 0
		return nil
	}
	for i, m := range f.all[:f.applied] {
		if m.Version == version {
			f.applied = i + 1
			return nil
		}
	}
	return fmt.Errorf("version %d is not applied", version)
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func (f *fakeEngine) appliedNames() []string {
	names := make([]string, 0, f.applied)
	for _, m := range f.all[:f.applied] {
		names = append(names, m.Name)
	}
	return names
}

var errBoom = errors.New("boom")
