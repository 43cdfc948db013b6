package backend

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"classified rate limit", NewError(KindRateLimited, "gigachat", errors.New("429")), KindRateLimited},
		{"classified auth", NewError(KindAuth, "deepseek", errors.New("401")), KindAuth},
		{"wrapped classified", errors.Wrap(NewError(KindTimeout, "ark", errors.New("late")), "outer"), KindTimeout},
		{"bare deadline", context.DeadlineExceeded, KindTimeout},
		{"bare cancellation", context.Canceled, KindTimeout},
		{"unclassified", errors.New("boom"), KindUpstream},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(NewError(KindRateLimited, "gigachat", errors.New("429"))))
	assert.True(t, Retryable(NewError(KindTimeout, "gigachat", errors.New("late"))))
	assert.True(t, Retryable(NewError(KindUpstream, "gigachat", errors.New("500"))))
	assert.False(t, Retryable(NewError(KindAuth, "gigachat", errors.New("401"))))
}
