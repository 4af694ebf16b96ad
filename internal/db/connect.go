package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:pathlight.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/pathlight?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  sections_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  payload_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS question_snapshots (
  id TEXT PRIMARY KEY,
  module_id TEXT NOT NULL UNIQUE,
  payload_json TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  module_id TEXT NOT NULL,
  enrollment_id TEXT NOT NULL,
  parent_id TEXT NOT NULL DEFAULT '',
  snapshot_id TEXT NOT NULL REFERENCES question_snapshots(id),
  status TEXT NOT NULL,
  start_time INTEGER,
  time_limit_sec INTEGER NOT NULL DEFAULT 0,
  remaining_sec INTEGER NOT NULL DEFAULT 0,
  score REAL NOT NULL DEFAULT 0,
  max_points REAL NOT NULL DEFAULT 0,
  passed INTEGER NOT NULL DEFAULT 0,
  current_index INTEGER NOT NULL DEFAULT 0,
  order_json TEXT NOT NULL,
  details_json TEXT NOT NULL,
  annotations_json TEXT NOT NULL DEFAULT '{}',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quiz_attempts_key
  ON quiz_attempts (user_id, module_id, parent_id, status);

CREATE TABLE IF NOT EXISTS practice_test_attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  status TEXT NOT NULL,
  score REAL NOT NULL DEFAULT 0,
  max_points REAL NOT NULL DEFAULT 0,
  next_module_id TEXT NOT NULL DEFAULT '',
  next_attempt_id TEXT NOT NULL DEFAULT '',
  section_ids_json TEXT NOT NULL,
  quiz_attempt_ids_json TEXT NOT NULL,
  snapshot_ids_json TEXT NOT NULL,
  scaled_json TEXT,
  started_at INTEGER NOT NULL,
  ended_at INTEGER,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_practice_attempts_key
  ON practice_test_attempts (user_id, course_id, status);

CREATE TABLE IF NOT EXISTS enrollments (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  status TEXT NOT NULL,
  progress INTEGER NOT NULL DEFAULT 0,
  grade REAL NOT NULL DEFAULT 0,
  quiz_points REAL NOT NULL DEFAULT 0,
  quiz_max_points REAL NOT NULL DEFAULT 0,
  completed_modules_json TEXT NOT NULL DEFAULT '{}',
  completed_content_json TEXT NOT NULL DEFAULT '{}',
  quiz_attempt_ids_json TEXT NOT NULL DEFAULT '[]',
  test_attempt_ids_json TEXT NOT NULL DEFAULT '[]',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  UNIQUE (user_id, course_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  sections_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  payload_json TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS question_snapshots (
  id TEXT PRIMARY KEY,
  module_id TEXT NOT NULL UNIQUE,
  payload_json TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  module_id TEXT NOT NULL,
  enrollment_id TEXT NOT NULL,
  parent_id TEXT NOT NULL DEFAULT '',
  snapshot_id TEXT NOT NULL REFERENCES question_snapshots(id),
  status TEXT NOT NULL,
  start_time BIGINT,
  time_limit_sec INTEGER NOT NULL DEFAULT 0,
  remaining_sec INTEGER NOT NULL DEFAULT 0,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  passed BOOLEAN NOT NULL DEFAULT FALSE,
  current_index INTEGER NOT NULL DEFAULT 0,
  order_json TEXT NOT NULL,
  details_json TEXT NOT NULL,
  annotations_json TEXT NOT NULL DEFAULT '{}',
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quiz_attempts_key
  ON quiz_attempts (user_id, module_id, parent_id, status);

CREATE TABLE IF NOT EXISTS practice_test_attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  status TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  next_module_id TEXT NOT NULL DEFAULT '',
  next_attempt_id TEXT NOT NULL DEFAULT '',
  section_ids_json TEXT NOT NULL,
  quiz_attempt_ids_json TEXT NOT NULL,
  snapshot_ids_json TEXT NOT NULL,
  scaled_json TEXT,
  started_at BIGINT NOT NULL,
  ended_at BIGINT,
  updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_practice_attempts_key
  ON practice_test_attempts (user_id, course_id, status);

CREATE TABLE IF NOT EXISTS enrollments (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  status TEXT NOT NULL,
  progress INTEGER NOT NULL DEFAULT 0,
  grade DOUBLE PRECISION NOT NULL DEFAULT 0,
  quiz_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  quiz_max_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  completed_modules_json TEXT NOT NULL DEFAULT '{}',
  completed_content_json TEXT NOT NULL DEFAULT '{}',
  quiz_attempt_ids_json TEXT NOT NULL DEFAULT '[]',
  test_attempt_ids_json TEXT NOT NULL DEFAULT '[]',
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (user_id, course_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  id BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
