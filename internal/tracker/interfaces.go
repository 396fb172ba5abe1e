package tracker

import (
	"context"

	"github.com/runnerr0/detox/internal/storage"
)

// LastResetKey is the config key holding the date of the last daily reset.
const LastResetKey = "lastResetDate"

// SiteStore is the durable site list the engine reads and merges into.
type SiteStore interface {
	GetAll(ctx context.Context) ([]storage.Site, error)
	Update(ctx context.Context, id string, patch storage.SitePatch) error
}

// KV stores scalars kept apart from the site list.
type KV interface {
	GetConfig(ctx context.Context, key string) (string, bool, error)
	SetConfig(ctx context.Context, key, value string) error
}

// Messenger delivers notifications to a browser tab.
type Messenger interface {
	SendBlock(ctx context.Context, tabID int) error
}

// Tab is the browser's view of a tab at query time.
type Tab struct {
	ID       int
	WindowID int
	URL      string
	Status   string
	Active   bool
}

// TabQuerier answers questions about current browser tabs.
type TabQuerier interface {
	Tab(ctx context.Context, tabID int) (Tab, bool, error)
	ActiveTab(ctx context.Context, windowID int) (Tab, bool, error)
	FocusedTab(ctx context.Context) (Tab, bool, error)
}
