package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWalksWrappedChain(t *testing.T) {
	t.Parallel()

	base := New(RateLimited, "classify", errors.New("429"))
	wrapped := fmt.Errorf("article abc: %w", base)

	if got := KindOf(wrapped); got != RateLimited {
		t.Fatalf("KindOf = %s, want %s", got, RateLimited)
	}
	if !Is(wrapped, RateLimited) {
		t.Fatalf("Is(wrapped, RateLimited) = false")
	}
	if KindOf(errors.New("plain")) != Unknown {
		t.Fatalf("plain error should be Unknown")
	}
	if KindOf(nil) != "" {
		t.Fatalf("nil error should have empty kind")
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	t.Parallel()

	err := New(Timeout, "summarize", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
}

func TestKindClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind      Kind
		retryable bool
		fatal     bool
	}{
		{UpstreamUnavailable, false, true},
		{NoBackendAvailable, false, true},
		{MissingCredential, false, true},
		{ModelLoadError, false, true},
		{AuthError, false, true},
		{RateLimited, true, false},
		{Timeout, true, false},
		{InferenceError, false, false},
	}

	for _, c := range cases {
		if c.kind.Retryable() != c.retryable {
			t.Errorf("%s.Retryable() = %v", c.kind, c.kind.Retryable())
		}
		if c.kind.Fatal() != c.fatal {
			t.Errorf("%s.Fatal() = %v", c.kind, c.kind.Fatal())
		}
	}
}
