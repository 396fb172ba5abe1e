// Package tracker attributes browsing time to tracked sites.
//
// The Engine owns the session (active tab, domain and tracking start) and
// is the only writer of accrued time. Browser lifecycle signals reach it
// through the Coalescer, which debounces bursts into switch and stop
// actions. A Heartbeat forces periodic accrual, DailyReset zeroes daily
// counters once per calendar day, and BudgetMonitor blocks a site once its
// daily limit is reached.
//
// Accrual is idempotent by interval: the session's open interval is cut and
// re-armed in one step under the engine lock, so every wall-clock span is
// handed to persistence at most once. Re-arming happens before the write
// is committed; a failed or interrupted write loses that interval instead
// of counting it twice.
package tracker
