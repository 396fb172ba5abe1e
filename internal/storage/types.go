package storage

import (
	"errors"
	"time"
)

// MaxDateEntries bounds the per-site history kept in DateTracking.
const MaxDateEntries = 30

// DateLayout is the calendar-date format used for history entries and the
// last-reset marker.
const DateLayout = "2006-01-02"

// ErrSiteNotFound is returned when an update targets an unknown site id.
var ErrSiteNotFound = errors.New("site not found")

// Site is one tracked domain and its accumulated metrics. JSON field names
// are the wire contract for anything that reads the store.
type Site struct {
	ID                string      `json:"id"`
	Domain            string      `json:"domain"`
	IsTrackingAllowed bool        `json:"isTrackingAllowed"`
	IsBlocked         bool        `json:"isBlocked"`
	DailyTime         int64       `json:"dailyTime"`  // seconds
	DailyLimit        *int        `json:"dailyLimit"` // minutes, nil = unlimited
	DateTracking      []DateEntry `json:"dateTracking"`
}

// DateEntry is the time spent on a site for one calendar date.
type DateEntry struct {
	Date      string `json:"date"`
	TimeSpent int64  `json:"timeSpent"` // seconds
}

// SitePatch carries a partial update. Nil fields are left untouched.
type SitePatch struct {
	Domain            *string
	IsTrackingAllowed *bool
	IsBlocked         *bool
	DailyTime         *int64
	DailyLimit        **int
	DateTracking      []DateEntry // nil = untouched, empty = cleared
}

// Entry returns the history entry for date, if present.
func (s *Site) Entry(date string) (DateEntry, bool) {
	for _, e := range s.DateTracking {
		if e.Date == date {
			return e, true
		}
	}
	return DateEntry{}, false
}

// AddTime adds seconds to the history entry for date, creating the entry at
// the end when absent and evicting the oldest entries beyond MaxDateEntries.
func (s *Site) AddTime(date string, seconds int64) {
	for i := range s.DateTracking {
		if s.DateTracking[i].Date == date {
			s.DateTracking[i].TimeSpent += seconds
			return
		}
	}
	s.DateTracking = append(s.DateTracking, DateEntry{Date: date, TimeSpent: seconds})
	if over := len(s.DateTracking) - MaxDateEntries; over > 0 {
		s.DateTracking = append([]DateEntry(nil), s.DateTracking[over:]...)
	}
}

// OverLimit reports whether the site's daily time has reached its limit.
func (s *Site) OverLimit() bool {
	if s.DailyLimit == nil {
		return false
	}
	return s.DailyTime >= int64(*s.DailyLimit)*60
}

// Clone returns a deep copy of s.
func (s Site) Clone() Site {
	out := s
	if s.DailyLimit != nil {
		l := *s.DailyLimit
		out.DailyLimit = &l
	}
	out.DateTracking = append([]DateEntry(nil), s.DateTracking...)
	return out
}

// Stats holds aggregate statistics about the site database.
type Stats struct {
	TotalSites   int64
	BlockedSites int64
	TodaySeconds int64
	OldestDate   time.Time
	NewestDate   time.Time
}
