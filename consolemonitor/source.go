package consolemonitor

import "sync"

// Kind distinguishes console messages from uncaught page errors.
type Kind int

const (
	// KindConsole is a console API call; Type holds the level ("error", "warning", "log", ...).
	KindConsole Kind = iota
	// KindPageError is an exception that escaped page scripts.
	KindPageError
)

// Event is one browser-side diagnostic.
type Event struct {
	Kind Kind
	Type string
	Text string
}

// Listener receives events from a Source.
type Listener func(Event)

// Subscription is returned by Source.Subscribe. Release stops delivery; it is idempotent.
type Subscription interface {
	Release()
}

// Source delivers browser events. Browser driver adapters implement it.
type Source interface {
	Subscribe(l Listener) Subscription
}

// MemorySource is an in-process Source. Emit calls deliver synchronously to every live listener.
type MemorySource struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{listeners: make(map[int]Listener)}
}

// Subscribe registers l until the returned Subscription is released.
func (s *MemorySource) Subscribe(l Listener) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return &subscription{release: func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}}
}

// Listeners returns the number of live subscriptions.
func (s *MemorySource) Listeners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// EmitConsole publishes a console message of the given type.
func (s *MemorySource) EmitConsole(typ, text string) {
	s.emit(Event{Kind: KindConsole, Type: typ, Text: text})
}

// EmitPageError publishes an uncaught exception message.
func (s *MemorySource) EmitPageError(msg string) {
	s.emit(Event{Kind: KindPageError, Text: msg})
}

func (s *MemorySource) emit(e Event) {
	s.mu.RLock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.RUnlock()
	for _, l := range ls {
		l(e)
	}
}

type subscription struct {
	once    sync.Once
	release func()
}

func (s *subscription) Release() {
	s.once.Do(s.release)
}
