package ingest

import "sync"

// pathLocks serializes work on the same target path. Entries are dropped
// once nobody holds or waits for them.
type pathLocks struct {
	mutex sync.Mutex
	held  map[string]*pathLock
}

type pathLock struct {
	mutex sync.Mutex
	refs  int
}

func newPathLocks() *pathLocks {
	return &pathLocks{held: make(map[string]*pathLock)}
}

// lock blocks until path is free and returns the matching unlock
func (l *pathLocks) lock(path string) func() {
	l.mutex.Lock()
	entry, ok := l.held[path]
	if !ok {
		entry = &pathLock{}
		l.held[path] = entry
	}
	entry.refs++
	l.mutex.Unlock()

	entry.mutex.Lock()
	return func() {
		entry.mutex.Unlock()

		l.mutex.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, path)
		}
		l.mutex.Unlock()
	}
}
