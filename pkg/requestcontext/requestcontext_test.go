package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow_FallbackToRealTime(t *testing.T) {
	before := time.Now()
	result := Now(context.Background())
	after := time.Now()

	assert.False(t, result.Before(before))
	assert.False(t, result.After(after))
}

func TestWithTime_OverridesExistingTime(t *testing.T) {
	original := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	ctx := WithTime(context.Background(), original)
	ctx = WithTime(ctx, updated)

	assert.Equal(t, updated, Now(ctx))
}

func TestRequestScopedValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, PsuDevice(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithPsuDevice(ctx, "Firefox on Linux")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "Firefox on Linux", PsuDevice(ctx))
}
