package app

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.NoError(t, ValidateSchedule("@hourly"))
	assert.NoError(t, ValidateSchedule("@every 10m"))
	assert.Error(t, ValidateSchedule("every now and then"))
	assert.Error(t, ValidateSchedule("* * * * * *"))
}

func TestRunSchedule(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	var runs atomic.Int32

	err := RunSchedule(ctx, "@every 1s", log, func(ctx context.Context) {
		runs.Add(1)
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestRunSchedule_InvalidSpec(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := RunSchedule(context.Background(), "nope", log, func(ctx context.Context) {})

	assert.Error(t, err)
}
