package radio

import "sync"

// LogKind classifies a log event for display purposes.
type LogKind int

const (
	// LogInfo is a neutral informational message
	LogInfo LogKind = iota

	// LogSuccess marks a completed operation
	LogSuccess

	// LogError marks a failure
	LogError

	// LogTX traces a transmitted message
	LogTX

	// LogRX traces a received message
	LogRX
)

// Event is a session event delivered to bus subscribers. The concrete types
// are LogEvent, ProgressEvent, and StatusEvent.
type Event interface {
	isEvent()
}

// LogEvent is a human-readable session message.
type LogEvent struct {
	// Kind classifies the message
	Kind LogKind

	// Message is the display text
	Message string
}

func (LogEvent) isEvent() {}

// ProgressEvent reports completion of a long-running operation.
type ProgressEvent struct {
	// Operation names the running operation ("flash", "backup", "restore")
	Operation string

	// Current is the number of units completed
	Current int

	// Total is the number of units overall
	Total int

	// Percent is the completion percentage, 0 to 100. It reaches 100 only
	// when the operation has fully completed.
	Percent int
}

func (ProgressEvent) isEvent() {}

// StatusEvent reports a connection state change.
type StatusEvent struct {
	// Connected is the new connection state
	Connected bool

	// Err carries the failure that caused a disconnect, if any
	Err error
}

func (StatusEvent) isEvent() {}

// Bus fans session events out to any number of subscribers. Subscribing and
// unsubscribing are safe at any time, including while operations run.
//
// Events are delivered synchronously on the publishing goroutine, so
// subscribers should return quickly to avoid stalling the session.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// Subscribe registers a subscriber and returns a function that removes it.
//
// Example:
//
//	cancel := sess.Events().Subscribe(func(e radio.Event) {
//	    if p, ok := e.(radio.ProgressEvent); ok {
//	        fmt.Printf("\r%3d%%", p.Percent)
//	    }
//	})
//	defer cancel()
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[int]func(Event))
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// publish delivers an event to every current subscriber.
func (b *Bus) publish(e Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
