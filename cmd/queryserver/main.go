// Command queryserver exposes one database file's read path over
// WebSocket: each connection sends a single JSON-described logical plan
// and receives the resulting rows as a stream of JSON messages.
package main

import (
	"fmt"
	"net/http"

	"github.com/alecthomas/kong"

	"github.com/brightlane/pagewise/internal/dbopen"
	"github.com/brightlane/pagewise/internal/logging"
	"github.com/brightlane/pagewise/internal/queryserver"
)

// CLI defines queryserver's command-line interface.
var CLI struct {
	DB   string `required:"" short:"d" help:"Path to a SQLite-compatible database file" type:"existingfile"`
	Addr string `short:"a" help:"Address to listen on" default:":8765"`
	Path string `help:"HTTP path the WebSocket endpoint is served on" default:"/query"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("queryserver"),
		kong.Description("Serves one database's read path over WebSocket"),
		kong.UsageOnError(),
	)

	db, err := dbopen.Open(CLI.DB)
	if err != nil {
		logging.Error("failed to open database", "path", CLI.DB, "error", err)
		fmt.Printf("queryserver: %v\n", err)
		return
	}
	defer db.Close()

	srv := queryserver.NewServer(db.Catalog, db.Tree)

	mux := http.NewServeMux()
	mux.HandleFunc(CLI.Path, srv.Handler)

	logging.Info("queryserver listening", "addr", CLI.Addr, "path", CLI.Path, "db", CLI.DB)
	if err := http.ListenAndServe(CLI.Addr, mux); err != nil {
		logging.Error("queryserver exited", "error", err)
	}
}
