package dc

import (
	"encoding/json"

	"github.com/kevinxiao27/multiselect/keys"
)

type State int

const (
	Uninitialized State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "uninitialized"
}

type OpType string

const (
	Resize   OpType = "resize"
	SetRange OpType = "set"
	Commit   OpType = "commit"
)

// Item is the wire form of one row.
type Item struct {
	Key    keys.Key
	Label  string
	Fields map[string]any // generated by extra data generators
}

// MarshalJSON flattens Fields next to key and label.
func (it Item) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(it.Fields)+2)
	for k, v := range it.Fields {
		m[k] = v
	}
	m["key"] = it.Key
	m["label"] = it.Label
	return json.Marshal(m)
}

type Op struct {
	Type     OpType `json:"type"`
	Size     int    `json:"size,omitempty"`   // resize
	Offset   int    `json:"offset,omitempty"` // set
	Items    []Item `json:"items,omitempty"`  // set
	UpdateID int    `json:"id,omitempty"`     // commit
	Filter   string `json:"filter"`           // commit, echoed
}

// Batch is applied by the remote view as a whole before it confirms ID.
type Batch struct {
	ID     int    `json:"id"`
	Filter string `json:"filter"`
	Ops    []Op   `json:"ops"`
}

// Window is the slice a remote view asked for.
type Window struct {
	Offset int
	Length int
	Filter string
}

// Remote receives what the communicator pushes to a remote view.
type Remote interface {
	Apply(b Batch) error
	SetSelectedItems(items []Item) error
}

// DataGenerator adds extra fields to a row.
type DataGenerator[T any] func(item T, fields map[string]any) error
