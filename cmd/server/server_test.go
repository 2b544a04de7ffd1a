package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinxiao27/multiselect/dc"
	"github.com/kevinxiao27/multiselect/internal/logging"
	"github.com/kevinxiao27/multiselect/label"
	"github.com/kevinxiao27/multiselect/multiselect"
	"github.com/kevinxiao27/multiselect/protocol"
	"github.com/kevinxiao27/multiselect/source"
)

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func read(t *testing.T, ws *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg inbound
	require.NoError(t, ws.ReadJSON(&msg))
	require.Equal(t, typ, msg.Type, string(msg.Data))
	return msg.Data
}

func send(t *testing.T, ws *websocket.Conn, typ string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(protocol.Message{Type: typ, Data: raw}))
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(logging.Nop(), source.NewBounded(demoRecords(120)...), multiselect.Properties{Label: "Fruit"},
		multiselect.WithIdentity(recordID),
		multiselect.WithItemLabelGenerator(label.Of(recordName)),
	)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestSession(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)

	var props multiselect.Properties
	require.NoError(t, json.Unmarshal(read(t, ws, protocol.TypeProperties), &props))
	assert.Equal(t, "Fruit", props.Label)
	assert.JSONEq(t, `[]`, string(read(t, ws, protocol.TypeSelectedItems)))

	var b dc.Batch
	require.NoError(t, json.Unmarshal(read(t, ws, protocol.TypeBatch), &b))
	assert.Equal(t, []dc.Op{{Type: dc.Resize, Size: 120}, {Type: dc.Commit, UpdateID: b.ID}}, b.Ops)

	send(t, ws, protocol.TypeRequestRange, protocol.RangeRequest{Offset: 50, Length: 50})
	var page dc.Batch
	require.NoError(t, json.Unmarshal(read(t, ws, protocol.TypeBatch), &page))
	require.Len(t, page.Ops, 2)
	assert.Equal(t, 50, page.Ops[0].Offset)
	require.Len(t, page.Ops[0].Items, 50)
	assert.Equal(t, "banana 3", page.Ops[0].Items[0].Label)

	send(t, ws, "render", map[string]string{})
	assert.Contains(t, string(read(t, ws, protocol.TypeError)), "unknown message type")

	resp, err := http.Get(ts.URL + "/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	var sessions map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sessions))
	assert.Equal(t, 1, sessions["sessions"])
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDemoRecords(t *testing.T) {
	recs := demoRecords(len(demoNames) + 1)
	assert.Equal(t, Record{ID: 1, Name: "apple"}, recs[0])
	assert.Equal(t, Record{ID: int64(len(demoNames) + 1), Name: "apple 2"}, recs[len(demoNames)])
}
