package state

import (
	"errors"
	"fmt"
)

var (
	ErrSelfLink        = errors.New("a router cannot be linked to itself")
	ErrUnknownRouter   = errors.New("router does not exist")
	ErrDuplicateRouter = errors.New("router already exists")
	ErrInvalidMetric   = errors.New("link metric must be finite")
)

// ConfigError is returned synchronously by the setup interface. It never occurs once a simulation is running.
type ConfigError struct {
	Op     string
	Router RouterId
	Peer   RouterId
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s %s -> %s: %v", e.Op, e.Router, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Router, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
