package provider

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := &Error{Kind: KindRateLimited, Op: "transactions/sync", Code: "TRANSACTIONS_LIMIT", RetryAfter: 2 * time.Second, Err: cause}

	assert.Equal(t, "transactions/sync: ProviderRateLimited (TRANSACTIONS_LIMIT): boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable())

	wrapped := fmt.Errorf("outer: %w", err)
	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindRateLimited, kind)
	assert.Equal(t, 2*time.Second, RetryAfterOf(wrapped))

	_, ok = KindOf(cause)
	assert.False(t, ok)
	assert.Zero(t, RetryAfterOf(cause))
}

func TestError_Retryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want bool
	}{
		{KindUnavailable, true},
		{KindRateLimited, true},
		{KindRejected, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, (&Error{Kind: tt.kind}).Retryable())
		})
	}
}
