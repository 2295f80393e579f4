package state

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
)

func TestTickModeText(t *testing.T) {
	for _, m := range []TickMode{Sequential, Synchronous} {
		b, err := m.MarshalText()
		assert.NoError(t, err)
		var got TickMode
		assert.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, m, got)
	}

	_, err := TickMode(3).MarshalText()
	assert.Error(t, err)

	var m TickMode = Synchronous
	assert.NoError(t, m.UnmarshalText(nil))
	assert.Equal(t, Sequential, m)
	assert.Error(t, m.UnmarshalText([]byte("jacobi")))
}

func TestSerializeSnapshot(t *testing.T) {
	snap := Snapshot{
		Id:         "R1",
		Position:   Position{X: 150, Y: 100},
		Neighbours: []NeighbourLink{{Peer: "R2", Metric: 1}},
		Table:      []TableRow{{Dest: "R2", NextHop: "R2", Metric: 1}},
	}
	out, err := yaml.Marshal(snap)
	assert.NoError(t, err)
	var got Snapshot
	assert.NoError(t, yaml.Unmarshal(out, &got))
	assert.Equal(t, snap, got)
}

func TestDeserializeInvalid(t *testing.T) {
	x := `routers:
  - id: a
    position:
      x: left
`
	cfg := TopologyCfg{}
	err := yaml.Unmarshal([]byte(x), &cfg)
	assert.Error(t, err)
}
