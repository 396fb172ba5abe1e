package host

import (
	"context"
	"sync"

	"github.com/runnerr0/detox/internal/tracker"
)

// windowIDNone is the browser's window id for "no window has focus".
const windowIDNone = -1

// TabState is a tab as reported by the extension.
type TabState struct {
	TabID    int    `json:"tabId"`
	WindowID int    `json:"windowId"`
	URL      string `json:"url,omitempty"`
	Status   string `json:"status,omitempty"`
	Active   bool   `json:"active,omitempty"`
}

// Tabs mirrors the browser's tabs from inbound events and answers the
// tracker's tab queries.
type Tabs struct {
	mu       sync.Mutex
	tabs     map[int]tracker.Tab
	focused  int
	hasFocus bool
}

// NewTabs returns an empty registry.
func NewTabs() *Tabs {
	return &Tabs{tabs: make(map[int]tracker.Tab)}
}

// Reset replaces the registry with a snapshot. focusedWindow is the window
// holding OS focus, or windowIDNone.
func (t *Tabs) Reset(snapshot []TabState, focusedWindow int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tabs = make(map[int]tracker.Tab, len(snapshot))
	for _, s := range snapshot {
		t.tabs[s.TabID] = tracker.Tab{ID: s.TabID, WindowID: s.WindowID, URL: s.URL, Status: s.Status, Active: s.Active}
	}
	t.setFocusLocked(focusedWindow)
}

// Activate marks tabID as the active tab of windowID.
func (t *Tabs) Activate(tabID, windowID int, url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, tab := range t.tabs {
		if tab.WindowID == windowID && tab.Active {
			tab.Active = false
			t.tabs[id] = tab
		}
	}
	tab := t.tabs[tabID]
	tab.ID, tab.WindowID, tab.Active = tabID, windowID, true
	if url != "" {
		tab.URL = url
	}
	t.tabs[tabID] = tab
}

// Update records a tab's latest state and returns it.
func (t *Tabs) Update(s TabState) tracker.Tab {
	t.mu.Lock()
	defer t.mu.Unlock()
	tab := t.tabs[s.TabID]
	tab.ID = s.TabID
	if s.WindowID != 0 {
		tab.WindowID = s.WindowID
	}
	if s.URL != "" {
		tab.URL = s.URL
	}
	if s.Status != "" {
		tab.Status = s.Status
	}
	tab.Active = s.Active
	t.tabs[s.TabID] = tab
	return tab
}

// Remove forgets a closed tab.
func (t *Tabs) Remove(tabID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tabs, tabID)
}

// SetFocus records which window has OS focus.
func (t *Tabs) SetFocus(windowID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setFocusLocked(windowID)
}

func (t *Tabs) setFocusLocked(windowID int) {
	t.focused = windowID
	t.hasFocus = windowID != windowIDNone
}

// Tab implements tracker.TabQuerier.
func (t *Tabs) Tab(_ context.Context, tabID int) (tracker.Tab, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tab, ok := t.tabs[tabID]
	return tab, ok, nil
}

// ActiveTab implements tracker.TabQuerier.
func (t *Tabs) ActiveTab(_ context.Context, windowID int) (tracker.Tab, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeLocked(windowID)
}

// FocusedTab implements tracker.TabQuerier.
func (t *Tabs) FocusedTab(_ context.Context) (tracker.Tab, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasFocus {
		return tracker.Tab{}, false, nil
	}
	return t.activeLocked(t.focused)
}

func (t *Tabs) activeLocked(windowID int) (tracker.Tab, bool, error) {
	for _, tab := range t.tabs {
		if tab.WindowID == windowID && tab.Active {
			return tab, true, nil
		}
	}
	return tracker.Tab{}, false, nil
}
