package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/detox/internal/storage"
)

const testDebounce = 500 * time.Millisecond

type coalescerEnv struct {
	*testEnv
	tabs      *fakeTabs
	heartbeat *Heartbeat
	c         *Coalescer
}

func newCoalescerEnv(t *testing.T, tabs ...Tab) *coalescerEnv {
	t.Helper()
	env := newTestEnv(t, "youtube.com", "reddit.com", "github.com")
	ce := &coalescerEnv{testEnv: env, tabs: newFakeTabs(tabs...)}
	ce.heartbeat = NewHeartbeat(env.clock, DefaultHeartbeat, func(ctx context.Context) {
		env.engine.Accrue(ctx, ReasonHeartbeat)
	})
	t.Cleanup(ce.heartbeat.Stop)
	ce.c = NewCoalescer(env.engine, ce.tabs, ce.heartbeat, NewDebouncer(env.clock, testDebounce), env.logger)
	return ce
}

func (ce *coalescerEnv) trackedTab(t *testing.T) (int, bool) {
	t.Helper()
	tabID, _, ok := ce.engine.Current()
	return tabID, ok
}

var (
	ytTab     = Tab{ID: 1, WindowID: 1, URL: "https://www.youtube.com/", Status: "complete", Active: true}
	redditTab = Tab{ID: 2, WindowID: 1, URL: "https://reddit.com/", Status: "complete"}
	githubTab = Tab{ID: 3, WindowID: 1, URL: "https://github.com/", Status: "complete"}
)

func TestCoalescer_TabActivationIsDebounced(t *testing.T) {
	ce := newCoalescerEnv(t, ytTab)

	ce.c.TabActivated(ce.ctx, ytTab.ID)
	_, ok := ce.trackedTab(t)
	assert.False(t, ok, "switch waits for the debounce window")

	ce.advance(t, testDebounce)
	tabID, ok := ce.trackedTab(t)
	require.True(t, ok)
	assert.Equal(t, ytTab.ID, tabID)
}

func TestCoalescer_RapidSwitchesCreditOnlyLast(t *testing.T) {
	ce := newCoalescerEnv(t, ytTab, redditTab, githubTab)

	ce.c.TabActivated(ce.ctx, ytTab.ID)
	ce.advance(t, 100*time.Millisecond)
	ce.c.TabActivated(ce.ctx, redditTab.ID)
	ce.advance(t, 100*time.Millisecond)
	ce.c.TabActivated(ce.ctx, githubTab.ID)
	ce.advance(t, testDebounce)

	tabID, ok := ce.trackedTab(t)
	require.True(t, ok)
	assert.Equal(t, githubTab.ID, tabID)

	ce.advance(t, 10*time.Second)
	ce.engine.Accrue(ce.ctx, ReasonHeartbeat)
	assert.Equal(t, int64(10), ce.site(t, "github.com").DailyTime)
	assert.Zero(t, ce.site(t, "youtube.com").DailyTime)
	assert.Zero(t, ce.site(t, "reddit.com").DailyTime)
}

func TestCoalescer_FocusLostFlushesAndCancelsPending(t *testing.T) {
	ce := newCoalescerEnv(t, ytTab, redditTab)

	ce.c.TabActivated(ce.ctx, ytTab.ID)
	ce.advance(t, testDebounce)
	ce.advance(t, 10*time.Second)

	ce.c.TabActivated(ce.ctx, redditTab.ID)
	ce.c.WindowFocusChanged(ce.ctx, 1, false)
	assert.Equal(t, int64(10), ce.site(t, "youtube.com").DailyTime)

	ce.advance(t, testDebounce)
	_, ok := ce.trackedTab(t)
	assert.False(t, ok, "canceled switch must not run")
	assert.Zero(t, ce.site(t, "reddit.com").DailyTime)
}

func TestCoalescer_FocusRegainedTracksActiveTab(t *testing.T) {
	ce := newCoalescerEnv(t, ytTab)

	ce.c.WindowFocusChanged(ce.ctx, 1, true)
	ce.advance(t, testDebounce)

	tabID, ok := ce.trackedTab(t)
	require.True(t, ok)
	assert.Equal(t, ytTab.ID, tabID)
}

func TestCoalescer_IdleStopsAndActiveResumes(t *testing.T) {
	ce := newCoalescerEnv(t, ytTab)
	ce.tabs.Focus(ytTab.ID)

	ce.c.TabActivated(ce.ctx, ytTab.ID)
	ce.advance(t, testDebounce)
	ce.advance(t, 7*time.Second)

	ce.c.IdleStateChanged(ce.ctx, IdleLocked)
	assert.Equal(t, int64(7), ce.site(t, "youtube.com").DailyTime)
	_, ok := ce.trackedTab(t)
	assert.False(t, ok)

	ce.c.IdleStateChanged(ce.ctx, "hibernating")
	ce.c.IdleStateChanged(ce.ctx, IdleActive)
	ce.advance(t, testDebounce)
	ce.advance(t, 3*time.Second)
	ce.c.IdleStateChanged(ce.ctx, IdleIdle)
	assert.Equal(t, int64(10), ce.site(t, "youtube.com").DailyTime)
}

func TestCoalescer_TabRemoved(t *testing.T) {
	ce := newCoalescerEnv(t, ytTab, redditTab)

	ce.c.TabActivated(ce.ctx, ytTab.ID)
	ce.advance(t, testDebounce)
	ce.advance(t, 4*time.Second)

	ce.c.TabRemoved(ce.ctx, redditTab.ID)
	_, ok := ce.trackedTab(t)
	assert.True(t, ok, "closing another tab changes nothing")
	assert.Zero(t, ce.site(t, "youtube.com").DailyTime)

	ce.c.TabRemoved(ce.ctx, ytTab.ID)
	_, ok = ce.trackedTab(t)
	assert.False(t, ok)
	assert.Equal(t, int64(4), ce.site(t, "youtube.com").DailyTime)
}

func TestCoalescer_TabUpdated(t *testing.T) {
	ce := newCoalescerEnv(t)

	ce.c.TabUpdated(ce.ctx, Tab{ID: 5, URL: "https://github.com/", Status: "loading", Active: true})
	ce.c.TabUpdated(ce.ctx, Tab{ID: 6, URL: "https://github.com/", Status: "complete", Active: false})
	ce.advance(t, testDebounce)
	_, ok := ce.trackedTab(t)
	assert.False(t, ok)

	ce.c.TabUpdated(ce.ctx, Tab{ID: 5, URL: "https://github.com/", Status: "complete", Active: true})
	ce.advance(t, testDebounce)
	ce.advance(t, 2*time.Second)

	ce.c.TabUpdated(ce.ctx, Tab{ID: 5, URL: "about:blank", Status: "complete", Active: true})
	ce.advance(t, testDebounce)
	_, ok = ce.trackedTab(t)
	assert.False(t, ok, "non-web page stops tracking")
	assert.Equal(t, int64(2), ce.site(t, "github.com").DailyTime)
}

func TestCoalescer_StartupAndSuspend(t *testing.T) {
	ce := newCoalescerEnv(t, ytTab)
	ce.tabs.Focus(ytTab.ID)
	ce.setSite(t, "reddit.com", storage.SitePatch{DailyTime: int64Ptr(50)})
	require.NoError(t, ce.store.SetConfig(ce.ctx, LastResetKey, "2024-03-09"))

	ce.c.Startup(ce.ctx)
	assert.Zero(t, ce.site(t, "reddit.com").DailyTime, "startup runs the daily reset")
	assert.True(t, ce.heartbeat.Running())
	tabID, ok := ce.trackedTab(t)
	require.True(t, ok, "focused tab is tracked without waiting")
	assert.Equal(t, ytTab.ID, tabID)

	ce.advance(t, DefaultHeartbeat)
	assert.Equal(t, int64(30), ce.site(t, "youtube.com").DailyTime)

	ce.advance(t, 5*time.Second)
	ce.c.Suspend(ce.ctx)
	assert.False(t, ce.heartbeat.Running())
	assert.Equal(t, int64(35), ce.site(t, "youtube.com").DailyTime)
	_, ok = ce.trackedTab(t)
	assert.False(t, ok)
}

func TestCoalescer_ResumeAfterSuspendRestartsHeartbeat(t *testing.T) {
	ce := newCoalescerEnv(t, ytTab)
	ce.tabs.Focus(ytTab.ID)

	ce.c.Startup(ce.ctx)
	ce.c.Suspend(ce.ctx)
	require.False(t, ce.heartbeat.Running())

	ce.c.TabActivated(ce.ctx, ytTab.ID)
	assert.True(t, ce.heartbeat.Running())
	ce.advance(t, testDebounce)
	_, ok := ce.trackedTab(t)
	require.True(t, ok)

	// No further lifecycle events: only the heartbeat flushes.
	ce.advance(t, DefaultHeartbeat-testDebounce)
	assert.Equal(t, int64(29), ce.site(t, "youtube.com").DailyTime)
	ce.advance(t, DefaultHeartbeat)
	assert.Equal(t, int64(59), ce.site(t, "youtube.com").DailyTime)
}

func TestCoalescer_RemovedTabPendingSwitchIsDropped(t *testing.T) {
	ce := newCoalescerEnv(t, ytTab, redditTab)

	ce.c.TabActivated(ce.ctx, ytTab.ID)
	ce.advance(t, testDebounce)

	ce.c.TabActivated(ce.ctx, redditTab.ID)
	ce.c.TabRemoved(ce.ctx, redditTab.ID)
	ce.advance(t, testDebounce)

	tabID, ok := ce.trackedTab(t)
	require.True(t, ok)
	assert.Equal(t, ytTab.ID, tabID, "closed tab is never tracked")

	ce.advance(t, 4500*time.Millisecond)
	ce.engine.Accrue(ce.ctx, ReasonHeartbeat)
	assert.Equal(t, int64(5), ce.site(t, "youtube.com").DailyTime)
	assert.Zero(t, ce.site(t, "reddit.com").DailyTime)
}
