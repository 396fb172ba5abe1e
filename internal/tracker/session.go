package tracker

import (
	"time"

	"github.com/runnerr0/detox/internal/storage"
)

// Interval is a span of tracked time cut from the session and waiting to be
// merged into the store.
type Interval struct {
	Domain  string
	TabID   int
	Date    string
	Seconds int64
	Reason  string
}

// Session is the process-local tracking state. It is not safe for
// concurrent use; the Engine guards it.
type Session struct {
	tabID     int
	hasTab    bool
	domain    string
	startedAt time.Time

	totals map[string]time.Duration
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{totals: make(map[string]time.Duration)}
}

// Current returns the tracked tab and domain.
func (s *Session) Current() (tabID int, domain string, ok bool) {
	return s.tabID, s.domain, s.hasTab && s.domain != ""
}

// cut closes the open interval at now and re-arms the start instant. Whole
// seconds are handed out; the sub-second remainder stays in the session so
// repeated cuts do not drift.
func (s *Session) cut(now time.Time, loc *time.Location) (Interval, bool) {
	if s.domain == "" {
		return Interval{}, false
	}
	if s.startedAt.IsZero() {
		s.startedAt = now
		return Interval{}, false
	}

	elapsed := now.Sub(s.startedAt)
	if elapsed < 0 {
		// Wall clock stepped backwards: drop the span.
		s.startedAt = now
		return Interval{}, false
	}

	secs := int64(elapsed / time.Second)
	s.startedAt = s.startedAt.Add(time.Duration(secs) * time.Second)
	if secs == 0 {
		return Interval{}, false
	}

	s.totals[registrableDomain(s.domain)] += time.Duration(secs) * time.Second
	return Interval{
		Domain:  s.domain,
		TabID:   s.tabID,
		Date:    now.In(loc).Format(storage.DateLayout),
		Seconds: secs,
	}, true
}

// switchTo makes domain the tracked domain. When the domain changes, the
// previous domain's open interval is returned for flushing and tracking
// restarts at now; the same domain keeps its running interval.
func (s *Session) switchTo(tabID int, domain string, now time.Time, loc *time.Location) (Interval, bool) {
	if domain == s.domain && !s.startedAt.IsZero() {
		s.tabID, s.hasTab = tabID, true
		return Interval{}, false
	}
	iv, ok := s.cut(now, loc)
	s.tabID, s.hasTab = tabID, true
	s.domain = domain
	s.startedAt = now
	return iv, ok
}

// clear closes the open interval and stops tracking.
func (s *Session) clear(now time.Time, loc *time.Location) (Interval, bool) {
	iv, ok := s.cut(now, loc)
	s.tabID, s.hasTab = 0, false
	s.domain = ""
	s.startedAt = time.Time{}
	return iv, ok
}

// Totals returns a copy of the in-memory time per registrable domain. It is
// diagnostic only and lost on restart.
func (s *Session) Totals() map[string]time.Duration {
	out := make(map[string]time.Duration, len(s.totals))
	for k, v := range s.totals {
		out[k] = v
	}
	return out
}

// coalesce merges intervals for the same domain and date, keeping the order
// of first appearance and the latest reason and tab.
func coalesce(batch []Interval) []Interval {
	if len(batch) < 2 {
		return batch
	}
	type key struct{ domain, date string }
	index := make(map[key]int, len(batch))
	out := make([]Interval, 0, len(batch))
	for _, iv := range batch {
		k := key{iv.Domain, iv.Date}
		if i, ok := index[k]; ok {
			out[i].Seconds += iv.Seconds
			out[i].Reason = iv.Reason
			out[i].TabID = iv.TabID
			continue
		}
		index[k] = len(out)
		out = append(out, iv)
	}
	return out
}
