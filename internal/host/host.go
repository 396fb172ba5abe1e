package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"cdr.dev/slog/v3"

	"github.com/runnerr0/detox/internal/tracker"
)

// Inbound event names.
const (
	EventStartup            = "startup"
	EventSuspend            = "suspend"
	EventTabActivated       = "tabActivated"
	EventTabUpdated         = "tabUpdated"
	EventTabRemoved         = "tabRemoved"
	EventWindowFocusChanged = "windowFocusChanged"
	EventIdleStateChanged   = "idleStateChanged"
)

// ActionBlockSite tells the extension to show the block overlay in a tab.
const ActionBlockSite = "blockSite"

// Event is one inbound message from the extension.
type Event struct {
	Event    string     `json:"event"`
	TabID    int        `json:"tabId,omitempty"`
	WindowID int        `json:"windowId,omitempty"`
	URL      string     `json:"url,omitempty"`
	Status   string     `json:"status,omitempty"`
	Active   bool       `json:"active,omitempty"`
	State    string     `json:"state,omitempty"`
	Tabs     []TabState `json:"tabs,omitempty"`
}

// Action is one outbound message to the extension.
type Action struct {
	Action string `json:"action"`
	TabID  int    `json:"tabId"`
}

// Handler receives browser lifecycle signals. tracker.Coalescer implements
// it.
type Handler interface {
	Startup(ctx context.Context)
	Suspend(ctx context.Context)
	TabActivated(ctx context.Context, tabID int)
	TabUpdated(ctx context.Context, tab tracker.Tab)
	TabRemoved(ctx context.Context, tabID int)
	WindowFocusChanged(ctx context.Context, windowID int, focused bool)
	IdleStateChanged(ctx context.Context, state string)
}

// Host is a native messaging endpoint. Frames are read from in and written
// to out; writes are serialized.
type Host struct {
	in     io.ReadCloser
	logger slog.Logger
	tabs   *Tabs

	wmu sync.Mutex
	out io.Writer
}

// New returns a Host on the given streams, normally stdin and stdout.
func New(in io.ReadCloser, out io.Writer, logger slog.Logger) *Host {
	return &Host{
		in:     in,
		out:    out,
		logger: logger.Named("host"),
		tabs:   NewTabs(),
	}
}

// Tabs returns the host's tab registry.
func (h *Host) Tabs() *Tabs {
	return h.tabs
}

// SendBlock implements tracker.Messenger.
func (h *Host) SendBlock(ctx context.Context, tabID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.wmu.Lock()
	defer h.wmu.Unlock()
	return WriteMessage(h.out, Action{Action: ActionBlockSite, TabID: tabID})
}

// Run reads events until the input closes or ctx is done, dispatching each
// to handler in arrival order. Either way the handler is suspended before
// Run returns so the open interval is flushed. A clean end of input returns
// nil.
func (h *Host) Run(ctx context.Context, handler Handler) error {
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go h.readLoop(ctx, frames, readErr)

	handler.Startup(ctx)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info(ctx, "host stopping", slog.Error(ctx.Err()))
			handler.Suspend(context.WithoutCancel(ctx))
			_ = h.in.Close()
			return nil
		case err := <-readErr:
			handler.Suspend(context.WithoutCancel(ctx))
			if errors.Is(err, io.EOF) {
				h.logger.Info(ctx, "browser disconnected")
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		case payload := <-frames:
			h.handle(ctx, handler, payload)
		}
	}
}

func (h *Host) readLoop(ctx context.Context, frames chan<- []byte, readErr chan<- error) {
	for {
		payload, err := ReadMessage(h.in)
		if errors.Is(err, ErrMessageTooLarge) {
			h.logger.Warn(ctx, "skipping oversize message", slog.Error(err))
			continue
		}
		if err != nil {
			readErr <- err
			return
		}
		select {
		case frames <- payload:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Host) handle(ctx context.Context, handler Handler, payload []byte) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		h.logger.Warn(ctx, "skipping malformed message", slog.Error(err), slog.F("num_bytes", len(payload)))
		return
	}
	h.logger.Debug(ctx, "event", slog.F("event", ev.Event), slog.F("tab_id", ev.TabID), slog.F("window_id", ev.WindowID))

	switch ev.Event {
	case EventStartup:
		if ev.Tabs != nil {
			h.tabs.Reset(ev.Tabs, ev.WindowID)
		}
		handler.Startup(ctx)
	case EventSuspend:
		handler.Suspend(ctx)
	case EventTabActivated:
		h.tabs.Activate(ev.TabID, ev.WindowID, ev.URL)
		handler.TabActivated(ctx, ev.TabID)
	case EventTabUpdated:
		tab := h.tabs.Update(TabState{
			TabID:    ev.TabID,
			WindowID: ev.WindowID,
			URL:      ev.URL,
			Status:   ev.Status,
			Active:   ev.Active,
		})
		handler.TabUpdated(ctx, tab)
	case EventTabRemoved:
		h.tabs.Remove(ev.TabID)
		handler.TabRemoved(ctx, ev.TabID)
	case EventWindowFocusChanged:
		h.tabs.SetFocus(ev.WindowID)
		handler.WindowFocusChanged(ctx, ev.WindowID, ev.WindowID != windowIDNone)
	case EventIdleStateChanged:
		handler.IdleStateChanged(ctx, ev.State)
	default:
		h.logger.Warn(ctx, "skipping unknown event", slog.F("event", ev.Event))
	}
}
