package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sanity-io/litter"

	"github.com/kevinxiao27/multiselect/dc"
	"github.com/kevinxiao27/multiselect/internal/logging"
	"github.com/kevinxiao27/multiselect/internal/metrics"
	"github.com/kevinxiao27/multiselect/multiselect"
	"github.com/kevinxiao27/multiselect/protocol"
	"github.com/kevinxiao27/multiselect/source"
)

// Record is one selectable row. Columns map by name when it is read from
// PostgreSQL.
type Record struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

func recordID(r Record) any      { return r.ID }
func recordName(r Record) string { return r.Name }

type Server struct {
	log      logging.Logger
	src      source.Source[Record]
	widget   []multiselect.Option[Record]
	props    multiselect.Properties
	sessions *xsync.MapOf[string, *websocket.Conn]
	upgrader websocket.Upgrader
}

func NewServer(log logging.Logger, src source.Source[Record], props multiselect.Properties, opts ...multiselect.Option[Record]) *Server {
	return &Server{
		log:      log,
		src:      src,
		props:    props,
		widget:   append([]multiselect.Option[Record]{multiselect.WithLogger[Record](log)}, opts...),
		sessions: xsync.NewMapOf[string, *websocket.Conn](),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	return r
}

// dumpRemote logs every push in full at debug level.
type dumpRemote struct {
	dc.Remote
	ctx context.Context
	log logging.Logger
}

func (d dumpRemote) Apply(b dc.Batch) error {
	d.log.DebugCtx(d.ctx, "batch", "dump", litter.Sdump(b))
	return d.Remote.Apply(b)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	id := uuid.NewString()
	ctx := logging.WithDefaultArgs(r.Context(), "session", id)
	conn := protocol.NewConn(ws)

	widget, err := multiselect.New(dumpRemote{Remote: conn, ctx: ctx, log: s.log}, s.widget...)
	if err != nil {
		s.log.ErrorCtx(ctx, "widget setup failed", "error", err)
		conn.SendError(err) //nolint:errcheck
		return
	}
	widget.SetProperties(s.props)
	if err := conn.Send(protocol.TypeProperties, widget.Properties()); err != nil {
		s.log.WarnCtx(ctx, "send properties failed", "error", err)
		return
	}
	if err := widget.SetDataProvider(ctx, s.src); err != nil {
		s.log.ErrorCtx(ctx, "data provider install failed", "error", err)
		conn.SendError(err) //nolint:errcheck
		return
	}
	if err := widget.Flush(ctx); err != nil {
		s.log.WarnCtx(ctx, "initial flush failed", "error", err)
	}

	s.sessions.Store(id, ws)
	metrics.Sessions.Inc()
	s.log.InfoCtx(ctx, "session opened", "remote", r.RemoteAddr)
	defer func() {
		s.sessions.Delete(id)
		metrics.Sessions.Dec()
		s.log.InfoCtx(ctx, "session closed")
	}()

	widget.AddValueChangeListener(func(ev multiselect.ValueChangeEvent[Record]) {
		s.log.InfoCtx(ctx, "value changed", "selected", len(ev.Value), "fromClient", ev.FromClient)
	})

	for {
		var msg protocol.Message
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.DebugCtx(ctx, "read failed", "error", err)
			}
			return
		}
		if err := protocol.Dispatch(ctx, widget, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.log.WarnCtx(ctx, "message failed", "type", msg.Type, "error", err)
			if err := conn.SendError(err); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"sessions": s.sessions.Size()}) //nolint:errcheck
}

// Close drops every open connection. Their handlers return on the next read.
func (s *Server) Close() {
	s.sessions.Range(func(_ string, ws *websocket.Conn) bool {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown")
		ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)) //nolint:errcheck
		ws.Close()
		return true
	})
}
