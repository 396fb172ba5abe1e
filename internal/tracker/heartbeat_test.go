package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeartbeat_FlushesPeriodically(t *testing.T) {
	env := newTestEnv(t, "youtube.com")
	hb := NewHeartbeat(env.clock, DefaultHeartbeat, func(ctx context.Context) {
		env.engine.Accrue(ctx, ReasonHeartbeat)
	})
	t.Cleanup(hb.Stop)

	env.engine.SwitchTo(env.ctx, 1, "https://youtube.com/")
	assert.True(t, hb.Start(env.ctx))
	assert.False(t, hb.Start(env.ctx), "second start is a no-op")
	assert.True(t, hb.Running())

	env.advance(t, 30*time.Second)
	assert.Equal(t, int64(30), env.site(t, "youtube.com").DailyTime)

	env.advance(t, 30*time.Second)
	assert.Equal(t, int64(60), env.site(t, "youtube.com").DailyTime)

	hb.Stop()
	assert.False(t, hb.Running())
	env.advance(t, 30*time.Second)
	assert.Equal(t, int64(60), env.site(t, "youtube.com").DailyTime)

	hb.Stop()
	assert.True(t, hb.Start(env.ctx), "stopped heartbeat can start again")
	env.advance(t, 30*time.Second)
	assert.Equal(t, int64(120), env.site(t, "youtube.com").DailyTime)
}

func TestHeartbeat_DefaultPeriod(t *testing.T) {
	hb := NewHeartbeat(nil, 0, func(context.Context) {})
	assert.Equal(t, DefaultHeartbeat, hb.period)
}
