package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
)

type runLog struct {
	mu   sync.Mutex
	runs []string
}

func (r *runLog) add(s string) func() {
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.runs = append(r.runs, s)
	}
}

func (r *runLog) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	d := NewDebouncer(clock, 500*time.Millisecond)
	var log runLog

	d.Schedule(log.add("a"))
	clock.Advance(100 * time.Millisecond).MustWait(ctx)
	d.Schedule(log.add("b"))
	clock.Advance(100 * time.Millisecond).MustWait(ctx)
	d.Schedule(log.add("c"))
	assert.True(t, d.Pending())

	clock.Advance(500 * time.Millisecond).MustWait(ctx)
	assert.Equal(t, []string{"c"}, log.get())
	assert.False(t, d.Pending())
}

func TestDebouncer_CancelPreventsRun(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	d := NewDebouncer(clock, 500*time.Millisecond)
	var log runLog

	d.Schedule(log.add("a"))
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	clock.Advance(500 * time.Millisecond).MustWait(ctx)
	assert.Empty(t, log.get())
}

func TestDebouncer_ExclusiveSupersedesPending(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	d := NewDebouncer(clock, 500*time.Millisecond)
	var log runLog

	d.Schedule(log.add("switch"))
	d.Exclusive(log.add("stop"))
	clock.Advance(500 * time.Millisecond).MustWait(ctx)

	assert.Equal(t, []string{"stop"}, log.get())
}
