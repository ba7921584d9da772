package queryserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brightlane/pagewise/internal/btree"
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/logging"
	"github.com/brightlane/pagewise/internal/planner"
	"github.com/brightlane/pagewise/internal/schema"
)

// writeDeadline bounds how long a single row or control message may take
// to flush to a slow client.
const writeDeadline = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server plans and executes logical plans received over WebSocket
// connections against one already-open database.
type Server struct {
	Catalog *schema.Catalog
	DB      *btree.Database
}

// NewServer builds a Server over an opened catalog and btree handle.
func NewServer(cat *schema.Catalog, db *btree.Database) *Server {
	return &Server{Catalog: cat, DB: db}
}

// Handler upgrades the connection and runs exactly one query per
// connection: it reads one PlanNode message, streams back RowMessages,
// and closes with a DoneMessage or an ErrorMessage.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var node PlanNode
	if err := conn.ReadJSON(&node); err != nil {
		s.sendError(conn, err)
		return
	}

	logical, err := node.ToLogicalNode()
	if err != nil {
		s.sendError(conn, err)
		return
	}

	op, err := planner.Plan(logical, s.Catalog, s.DB)
	if err != nil {
		s.sendError(conn, err)
		return
	}

	seq, err := op.Execute()
	if err != nil {
		s.sendError(conn, err)
		return
	}

	count := 0
	for {
		row, err := seq.Next()
		if err != nil {
			if err == errs.ErrEndOfRow {
				break
			}
			s.sendError(conn, err)
			return
		}

		values := make([]string, len(row.Values))
		for i, v := range row.Values {
			values[i] = v.String()
		}
		conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteJSON(RowMessage{Type: "row", RowID: row.RowID, Values: values}); err != nil {
			logging.Error("websocket write failed", "error", err)
			return
		}
		count++
	}

	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	_ = conn.WriteJSON(DoneMessage{Type: "done", RowCount: count})
}

func (s *Server) sendError(conn *websocket.Conn, err error) {
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	_ = conn.WriteJSON(ErrorMessage{Type: "error", Message: err.Error()})
}
