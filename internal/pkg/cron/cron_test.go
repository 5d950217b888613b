package cron

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/prodviz_server/internal/pkg/logger"
)

type fakeResetter struct {
	calls int32
	err   error
}

func (f *fakeResetter) ResetDueCycles(ctx context.Context) (int, error) {
	atomic.AddInt32(&f.calls, 1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return 3, f.err
}

func TestNewService_InvalidSchedule(t *testing.T) {
	_, err := NewService(&fakeResetter{}, "not a schedule", logger.Discard())
	assert.Error(t, err)
}

func TestService_RunNow(t *testing.T) {
	var buf bytes.Buffer
	resetter := &fakeResetter{}
	svc, err := NewService(resetter, "@hourly", logger.NewWithOutput("info", "json", &buf))
	require.NoError(t, err)

	svc.RunNow()
	assert.Equal(t, int32(1), atomic.LoadInt32(&resetter.calls))
	assert.Contains(t, buf.String(), `"reset":3`)

	resetter.err = errors.New("db down")
	svc.RunNow()
	assert.Contains(t, buf.String(), "billing cycle reset failed")
}

func TestService_Schedule(t *testing.T) {
	resetter := &fakeResetter{}
	svc, err := NewService(resetter, "@every 1s", logger.Discard())
	require.NoError(t, err)

	svc.Start()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&resetter.calls) > 0
	}, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Stop(ctx)
}

func TestFields(t *testing.T) {
	f := fields([]interface{}{"entry", 1, "dangling"})
	assert.Equal(t, 1, f["entry"])
	assert.Len(t, f, 1)
}
