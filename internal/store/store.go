package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/learngauge/learngauge/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver selects the database backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ErrNotFound is returned when a row is missing or soft-deleted.
var ErrNotFound = model.ErrNotFound

// sqlite connection options; foreign keys must be on for cascades
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type Store struct {
	db     *sql.DB
	driver Driver
}

// New opens a SQLite database at dbPath.
func New(dbPath string) (*Store, error) {
	return Open(context.Background(), DriverSQLite, dbPath)
}

// Open connects to driver at dsn and creates the schema if needed.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "learngauge.db"
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + sqlitePragmas
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/learngauge?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer; also keeps a :memory: database alive on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	schema := schemaSQLite
	if s.driver == DriverPostgres {
		schema = schemaPostgres
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS courses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS course_classes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	course_id INTEGER NOT NULL REFERENCES courses(id),
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS clo_types (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	weight REAL NOT NULL CHECK (weight >= 0 AND weight <= 100),
	created_at DATETIME NOT NULL,
	deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS exams (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	upload_id TEXT NOT NULL UNIQUE,
	course_class_id INTEGER NOT NULL REFERENCES course_classes(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	clo_type TEXT NOT NULL REFERENCES clo_types(code),
	exam_format TEXT NOT NULL,
	chapters_json TEXT NOT NULL,
	pass_expectation_rate REAL NOT NULL,
	clo_pass_threshold REAL NOT NULL,
	max_score REAL NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS exam_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	exam_id INTEGER NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
	student_code TEXT NOT NULL,
	student_name TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	total_questions INTEGER NOT NULL,
	total_easy_questions INTEGER NOT NULL,
	total_medium_questions INTEGER NOT NULL,
	total_hard_questions INTEGER NOT NULL,
	total_correct_easy_questions INTEGER NOT NULL,
	total_correct_medium_questions INTEGER NOT NULL,
	total_correct_hard_questions INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE (exam_id, student_code)
);

CREATE INDEX IF NOT EXISTS idx_exams_class ON exams(course_class_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS courses (
	id BIGSERIAL PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS course_classes (
	id BIGSERIAL PRIMARY KEY,
	course_id BIGINT NOT NULL REFERENCES courses(id),
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS clo_types (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	weight DOUBLE PRECISION NOT NULL CHECK (weight >= 0 AND weight <= 100),
	created_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS exams (
	id BIGSERIAL PRIMARY KEY,
	upload_id TEXT NOT NULL UNIQUE,
	course_class_id BIGINT NOT NULL REFERENCES course_classes(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	clo_type TEXT NOT NULL REFERENCES clo_types(code),
	exam_format TEXT NOT NULL,
	chapters_json TEXT NOT NULL,
	pass_expectation_rate DOUBLE PRECISION NOT NULL,
	clo_pass_threshold DOUBLE PRECISION NOT NULL,
	max_score DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS exam_results (
	id BIGSERIAL PRIMARY KEY,
	exam_id BIGINT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
	student_code TEXT NOT NULL,
	student_name TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	total_questions INTEGER NOT NULL,
	total_easy_questions INTEGER NOT NULL,
	total_medium_questions INTEGER NOT NULL,
	total_hard_questions INTEGER NOT NULL,
	total_correct_easy_questions INTEGER NOT NULL,
	total_correct_medium_questions INTEGER NOT NULL,
	total_correct_hard_questions INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (exam_id, student_code)
);

CREATE INDEX IF NOT EXISTS idx_exams_class ON exams(course_class_id);
`
