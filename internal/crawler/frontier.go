package crawler

import "sync"

// Entry is a URL waiting in the frontier.
type Entry struct {
	// URL is the normalized key.
	URL string

	// Depth is the number of links followed from the seed.
	Depth int

	// Seq is the first-seen order of URL across the crawl.
	Seq int
}

// Frontier is the FIFO queue of a breadth-first crawl together with its
// visited set. A URL is marked visited when it is enqueued, so it can
// never be queued twice. All methods are safe for concurrent use.
type Frontier struct {
	mu      sync.Mutex
	queue   []Entry
	visited map[string]struct{}
	nextSeq int
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		visited: make(map[string]struct{}),
	}
}

// Push enqueues url at depth unless it was already seen.
// It reports whether the URL was added.
func (f *Frontier) Push(url string, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[url]; ok {
		return false
	}
	f.visited[url] = struct{}{}
	f.queue = append(f.queue, Entry{URL: url, Depth: depth, Seq: f.nextSeq})
	f.nextSeq++
	return true
}

// Pop removes and returns the oldest entry.
func (f *Frontier) Pop() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return Entry{}, false
	}
	e := f.queue[0]
	f.queue = f.queue[1:]
	return e, true
}

// PopLevel removes and returns every queued entry that shares the depth
// of the oldest one. Entries are enqueued in non-decreasing depth order,
// so this is exactly one BFS level.
func (f *Frontier) PopLevel() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return nil
	}
	depth := f.queue[0].Depth
	n := 0
	for n < len(f.queue) && f.queue[n].Depth == depth {
		n++
	}
	level := make([]Entry, n)
	copy(level, f.queue[:n])
	f.queue = f.queue[n:]
	return level
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Seen reports whether url was ever enqueued.
func (f *Frontier) Seen(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[url]
	return ok
}

// VisitedCount returns the number of distinct URLs ever enqueued.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}
