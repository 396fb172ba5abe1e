package storage

import "sync"

// feed fans site lists out to subscribers. Each subscriber channel holds at
// most one pending list; a newer list replaces an unread one.
type feed struct {
	mu     sync.Mutex
	subs   map[int]chan []Site
	next   int
	closed bool
}

func newFeed() *feed {
	return &feed{subs: make(map[int]chan []Site)}
}

func (f *feed) active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs) > 0
}

func (f *feed) subscribe() (<-chan []Site, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan []Site, 1)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	id := f.next
	f.next++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
}

func (f *feed) publish(sites []Site) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- cloneSites(sites)
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

func cloneSites(sites []Site) []Site {
	out := make([]Site, len(sites))
	for i, s := range sites {
		out[i] = s.Clone()
	}
	return out
}
