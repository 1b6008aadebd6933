package migrations

import (
	"database/sql"
	"embed"
	"log"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var migrationFiles embed.FS

// Migrate brings the room/shape schema up to date before the relay starts
// serving. Schema drift is fatal: the process must not accept drawings it
// cannot persist.
func Migrate(pgurl string) {
	db, err := sql.Open("pgx", pgurl)
	if err != nil {
		log.Fatal("migrations: open database: ", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationFiles)

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal("migrations: set dialect: ", err)
	}
	if err := goose.Up(db, "."); err != nil {
		log.Fatal("migrations: apply: ", err)
	}

	slog.Info("database schema up to date")
}
