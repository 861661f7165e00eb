package migrations

import "embed"

// Postgres holds the goose migrations applied by cmd/migrate.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// PostgresDir is the directory inside Postgres that goose reads from.
const PostgresDir = "postgres"
