package telemetry

import (
	"database/sql"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OpenDB opens an instrumented *sql.DB. The system attribute tags every span
// with the database product.
func OpenDB(driverName, dsn string, system attribute.KeyValue) (*sql.DB, error) {
	return otelsql.Open(driverName, dsn,
		otelsql.WithAttributes(system),
	)
}

func OpenPostgres(dsn string) (*sql.DB, error) {
	return OpenDB("postgres", dsn, semconv.DBSystemPostgreSQL)
}

func OpenSQLite(path string) (*sql.DB, error) {
	return OpenDB("sqlite3", path, semconv.DBSystemSqlite)
}
