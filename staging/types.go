package staging

import "fmt"

// Handle identifies a slot in a Table. Handle 0 is reserved and always invalid.
type Handle uint32

// State is the slot's position in the staging state machine.
type State uint8

const (
	StateEmpty State = iota
	StatePending
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePending:
		return "pending"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// EventType identifies a slot transition.
type EventType uint8

const (
	EventStaged EventType = iota
	EventSuperseded
	EventFetched
	EventDiscarded
)

func (t EventType) String() string {
	switch t {
	case EventStaged:
		return "staged"
	case EventSuperseded:
		return "superseded"
	case EventFetched:
		return "fetched"
	case EventDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event is a slot lifecycle notification. Size is the length of the result
// the transition applies to.
type Event struct {
	Handle Handle
	Type   EventType
	Size   uint64
}

// Observer receives slot lifecycle events.
type Observer interface {
	OnSlotEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnSlotEvent(e Event) { f(e) }
