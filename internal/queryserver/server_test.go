package queryserver

import (
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brightlane/pagewise/internal/btree"
	"github.com/brightlane/pagewise/internal/errs"
	"github.com/brightlane/pagewise/internal/page"
	"github.com/brightlane/pagewise/internal/schema"
	"github.com/brightlane/pagewise/internal/varint"
)

const testPageSize = 4096

type memPages map[uint32]*page.Page

func (m memPages) Get(pageID uint32) (*page.Page, error) {
	pg, ok := m[pageID]
	if !ok {
		return nil, &errs.IOError{Operation: "read", Message: "no such page"}
	}
	return pg, nil
}

func encodeText(s string) (serial int64, raw []byte) {
	return int64(13 + 2*len(s)), []byte(s)
}

func encodeInt(v int64) (serial int64, raw []byte) {
	if v == 0 {
		return 8, nil
	}
	if v == 1 {
		return 9, nil
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return 1, buf[7:8]
}

func buildRowPayload(cols []any) []byte {
	var serials []int64
	var values [][]byte
	for _, c := range cols {
		switch v := c.(type) {
		case string:
			s, raw := encodeText(v)
			serials, values = append(serials, s), append(values, raw)
		case int64:
			s, raw := encodeInt(v)
			serials, values = append(serials, s), append(values, raw)
		}
	}
	headerBody := make([]byte, 0, 32)
	for _, st := range serials {
		buf := make([]byte, varint.MaxLen)
		n := varint.Encode(buf, st)
		headerBody = append(headerBody, buf[:n]...)
	}
	for guess := 1; guess <= varint.MaxLen; guess++ {
		total := int64(guess + len(headerBody))
		lenBuf := make([]byte, varint.MaxLen)
		n := varint.Encode(lenBuf, total)
		if n == guess {
			out := append(append([]byte{}, lenBuf[:n]...), headerBody...)
			for _, val := range values {
				out = append(out, val...)
			}
			return out
		}
	}
	panic("unreachable")
}

func buildLeafTablePage(id uint32, rowPayloads map[int64][]byte, isPageOne bool) []byte {
	buf := make([]byte, testPageSize)
	headerAt := 0
	if isPageOne {
		headerAt = page.DatabaseHeaderSize
	}
	buf[headerAt] = byte(page.TypeLeafTable)

	rowids := make([]int64, 0, len(rowPayloads))
	for rowid := range rowPayloads {
		rowids = append(rowids, rowid)
	}
	for i := 0; i < len(rowids); i++ {
		for j := i + 1; j < len(rowids); j++ {
			if rowids[j] < rowids[i] {
				rowids[i], rowids[j] = rowids[j], rowids[i]
			}
		}
	}

	binary.BigEndian.PutUint16(buf[headerAt+3:], uint16(len(rowids)))
	contentStart := testPageSize
	cellPtrOff := headerAt + page.HeaderSizeLeaf
	offsets := make([]int, len(rowids))

	for i, rowid := range rowids {
		payload := rowPayloads[rowid]
		var scratch [32]byte
		n := varint.Encode(scratch[:], int64(len(payload)))
		n += varint.Encode(scratch[n:], rowid)
		cellLen := n + len(payload)
		contentStart -= cellLen
		copy(buf[contentStart:], scratch[:n])
		copy(buf[contentStart+n:], payload)
		offsets[i] = contentStart
	}
	for i, off := range offsets {
		binary.BigEndian.PutUint16(buf[cellPtrOff+i*2:], uint16(off))
	}
	binary.BigEndian.PutUint16(buf[headerAt+5:], uint16(contentStart))

	if isPageOne {
		copy(buf[0:16], page.Magic)
		binary.BigEndian.PutUint16(buf[16:18], uint16(testPageSize))
	}
	return buf
}

func mustParse(t *testing.T, id uint32, buf []byte) *page.Page {
	t.Helper()
	pg, err := page.Parse(id, buf)
	if err != nil {
		t.Fatalf("page.Parse(%d): %v", id, err)
	}
	return pg
}

// buildFixtureServer wires a one-table database (sqlite_master on page 1,
// a customer table on page 2) into a Server.
func buildFixtureServer(t *testing.T) *Server {
	t.Helper()

	masterRows := map[int64][]byte{
		1: buildRowPayload([]any{
			"table", "customer", "customer", int64(2),
			"CREATE TABLE customer (customer_id INTEGER, name TEXT)",
		}),
	}
	masterBuf := buildLeafTablePage(1, masterRows, true)

	customerRows := map[int64][]byte{
		1: buildRowPayload([]any{int64(1), "Ann"}),
		2: buildRowPayload([]any{int64(2), "Bo"}),
	}
	customerBuf := buildLeafTablePage(2, customerRows, false)

	pages := memPages{
		1: mustParse(t, 1, masterBuf),
		2: mustParse(t, 2, customerBuf),
	}
	db := btree.NewDatabase(pages, testPageSize)

	cat, err := schema.Load(db, 1)
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	return NewServer(cat, db)
}

func TestHandlerStreamsScanRows(t *testing.T) {
	srv := buildFixtureServer(t)
	httpSrv := httptest.NewServer(http.HandlerFunc(srv.Handler))
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(PlanNode{Type: "scan", Table: "customer"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var rows []RowMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var raw map[string]any
		if err := conn.ReadJSON(&raw); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		switch raw["type"] {
		case "row":
			rows = append(rows, RowMessage{
				Type:  "row",
				RowID: int64(raw["row_id"].(float64)),
			})
		case "done":
			if int(raw["row_count"].(float64)) != len(rows) {
				t.Fatalf("done row_count = %v, want %d", raw["row_count"], len(rows))
			}
			if len(rows) != 2 {
				t.Fatalf("got %d rows, want 2", len(rows))
			}
			return
		case "error":
			t.Fatalf("server reported error: %v", raw["message"])
		default:
			t.Fatalf("unexpected message type %v", raw["type"])
		}
	}
}

func TestHandlerReportsUnknownTable(t *testing.T) {
	srv := buildFixtureServer(t)
	httpSrv := httptest.NewServer(http.HandlerFunc(srv.Handler))
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(PlanNode{Type: "scan", Table: "ghost"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var raw map[string]any
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&raw); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if raw["type"] != "error" {
		t.Fatalf("type = %v, want error", raw["type"])
	}
}

func TestHandlerRejectsMalformedPlan(t *testing.T) {
	srv := buildFixtureServer(t)
	httpSrv := httptest.NewServer(http.HandlerFunc(srv.Handler))
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(PlanNode{Type: "aggregate"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var raw map[string]any
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&raw); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if raw["type"] != "error" {
		t.Fatalf("type = %v, want error", raw["type"])
	}
}
