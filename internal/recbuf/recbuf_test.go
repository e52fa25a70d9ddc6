package recbuf

import (
	"errors"
	"testing"
)

func TestAppendDoublesCapacity(t *testing.T) {
	b, err := New[int](2, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wantCaps := []int{2, 2, 4, 4, 8}
	for i, want := range wantCaps {
		if err := b.Append(i); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
		if got := b.Cap(); got != want {
			t.Fatalf("after %d appends cap = %d, want %d", i+1, got, want)
		}
	}

	got := b.Finalize()
	if len(got) != len(wantCaps) || cap(got) != len(wantCaps) {
		t.Fatalf("Finalize len/cap = %d/%d, want %d/%d", len(got), cap(got), len(wantCaps), len(wantCaps))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("record %d = %d, want %d", i, v, i)
		}
	}
}

func TestAppendClampsToLimit(t *testing.T) {
	b, err := New[int](4, 6)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 6; i++ {
		if err := b.Append(i); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
	if b.Cap() != 6 {
		t.Fatalf("cap = %d, want 6", b.Cap())
	}

	err = b.Append(6)
	if !errors.Is(err, ErrAllocFailed) {
		t.Fatalf("Append past limit err = %v, want ErrAllocFailed", err)
	}
	if b.Len() != 0 {
		t.Fatalf("failed buffer kept %d records", b.Len())
	}
	if got := b.Finalize(); got != nil {
		t.Fatalf("Finalize after failure = %v, want nil", got)
	}
}

func TestFinalizeEmptyIsNil(t *testing.T) {
	b, err := New[string](8, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := b.Finalize(); got != nil {
		t.Fatalf("Finalize = %v, want nil", got)
	}
}

func TestNewRejectsBadCapacity(t *testing.T) {
	for _, tc := range []struct{ initial, max int }{{0, 10}, {-1, 10}, {11, 10}} {
		if _, err := New[int](tc.initial, tc.max); !errors.Is(err, ErrAllocFailed) {
			t.Fatalf("New(%d, %d) err = %v, want ErrAllocFailed", tc.initial, tc.max, err)
		}
	}
}

func TestAppendAfterRelease(t *testing.T) {
	b, _ := New[int](1, 0)
	b.Release()
	b.Release()
	if err := b.Append(1); !errors.Is(err, ErrAllocFailed) {
		t.Fatalf("Append after Release err = %v", err)
	}
}
