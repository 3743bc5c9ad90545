// Command jobly manages companies and job postings.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Skryldev/jobly/cli"

	// Blank-import the drivers so they self-register with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], cli.Options{})
	stop()
	os.Exit(code)
}
