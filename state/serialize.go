package state

import "fmt"

// TickMode selects which tables a router reads from during a tick.
type TickMode int

const (
	// Sequential updates routers in registration order; later routers see tables already updated in the same tick.
	Sequential TickMode = iota
	// Synchronous makes every router read the tables as they were at the start of the tick.
	Synchronous
)

func (m TickMode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Synchronous:
		return "synchronous"
	default:
		return fmt.Sprintf("TickMode(%d)", int(m))
	}
}

func (m TickMode) MarshalText() ([]byte, error) {
	switch m {
	case Sequential, Synchronous:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("unknown tick mode %d", int(m))
}

func (m *TickMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "sequential":
		*m = Sequential
	case "synchronous":
		*m = Synchronous
	default:
		return fmt.Errorf("unknown tick mode %q, expected sequential or synchronous", string(text))
	}
	return nil
}
