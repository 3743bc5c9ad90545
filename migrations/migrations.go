// Package migrations embeds the PostgreSQL schema migrations in
// golang-migrate's <version>_<name>.<up|down>.sql layout.
package migrations

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var FS embed.FS

// Source returns a golang-migrate source driver over the embedded files.
func Source() (source.Driver, error) {
	drv, err := iofs.New(FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return drv, nil
}
