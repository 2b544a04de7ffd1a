// Package protocol is the JSON boundary between a remote view and a
// multiselect widget.
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kevinxiao27/multiselect/dc"
)

var ErrUnknownMessage = errors.New("protocol: unknown message type")

// Inbound message types.
const (
	TypeRequestRange  = "requestRange"
	TypeSetSelection  = "setSelection"
	TypeConfirmUpdate = "confirmUpdate"
)

// Outbound message types.
const (
	TypeBatch         = "batch"
	TypeSelectedItems = "selectedItems"
	TypeProperties    = "properties"
	TypeError         = "error"
)

type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type RangeRequest struct {
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Filter string `json:"filter"`
}

type SelectionChange struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

type Confirmation struct {
	ID int `json:"id"`
}

// Handler is what a remote view drives. *multiselect.MultiSelect satisfies it.
type Handler interface {
	RequestRange(offset, length int, filter string) error
	UpdateSelection(added, removed []string)
	ConfirmUpdate(id int) bool
	Flush(ctx context.Context) error
}

// Dispatch decodes msg, hands it to h and flushes whatever that scheduled.
func Dispatch(ctx context.Context, h Handler, msg Message) error {
	switch msg.Type {
	case TypeRequestRange:
		var req RangeRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		if err := h.RequestRange(req.Offset, req.Length, req.Filter); err != nil {
			return err
		}
	case TypeSetSelection:
		var change SelectionChange
		if err := decode(msg, &change); err != nil {
			return err
		}
		h.UpdateSelection(change.Added, change.Removed)
	case TypeConfirmUpdate:
		var c Confirmation
		if err := decode(msg, &c); err != nil {
			return err
		}
		h.ConfirmUpdate(c.ID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return h.Flush(ctx)
}

func decode(msg Message, v any) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("protocol: %s without data", msg.Type)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("protocol: decode %s: %w", msg.Type, err)
	}
	return nil
}

// Writer is satisfied by *websocket.Conn.
type Writer interface {
	WriteJSON(v any) error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Conn is a dc.Remote writing every push as one JSON message. Like the widget
// it serves, it is not safe for concurrent use.
type Conn struct {
	w Writer
}

var _ dc.Remote = (*Conn)(nil)

func NewConn(w Writer) *Conn {
	return &Conn{w: w}
}

func (c *Conn) Apply(b dc.Batch) error {
	return c.Send(TypeBatch, b)
}

func (c *Conn) SetSelectedItems(items []dc.Item) error {
	if items == nil {
		items = []dc.Item{}
	}
	return c.Send(TypeSelectedItems, items)
}

// Send writes an arbitrary outbound message.
func (c *Conn) Send(typ string, data any) error {
	if err := c.w.WriteJSON(envelope{Type: typ, Data: data}); err != nil {
		return fmt.Errorf("protocol: write %s: %w", typ, err)
	}
	return nil
}

// SendError reports err to the remote view.
func (c *Conn) SendError(err error) error {
	return c.Send(TypeError, map[string]string{"message": err.Error()})
}
