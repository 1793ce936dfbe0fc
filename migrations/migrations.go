// Package migrations embeds the schema migrations of the rule and API key
// store, one directory per database driver.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed postgres/*.sql
var postgresMigrations embed.FS

// ForDriver returns the migration files for a database/sql driver name
// and the directory inside the returned FS that holds them.
func ForDriver(driver string) (fs.FS, string, error) {
	switch driver {
	case "sqlite3":
		return sqliteMigrations, "sqlite", nil
	case "postgres":
		return postgresMigrations, "postgres", nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}
