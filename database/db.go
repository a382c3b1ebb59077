package database

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound は対象の行が存在しない場合のエラーです。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate は一意制約違反 (仕入先名・バーコードの重複) です。
	ErrDuplicate = errors.New("duplicate entry")
	// ErrVendorInUse は品目が紐付いている仕入先を削除しようとした場合のエラーです。
	ErrVendorInUse = errors.New("vendor still has products")
)

// DBTX は *sqlx.DB と *sqlx.Tx の共通部分です。
type DBTX interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	Exec(query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

// Open はデータベースに接続します。driver は "sqlite3" か "pgx" です。
// クエリは ? で書き、sqlx の Rebind でドライバーに合わせて変換します。
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "sqlite3", "pgx":
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if driver == "pgx" {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxIdleTime(2 * time.Minute)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	log.Info().Str("driver", driver).Msg("Database connection successful.")
	return db, nil
}

// ApplySchema は埋め込みの schema.sql を実行します。何度実行しても安全です。
func ApplySchema(db *sqlx.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}
	return nil
}

// isUniqueViolation は SQLite / PostgreSQL の一意制約違反を判定します。
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// affectedOne は UPDATE / DELETE が1行以上に作用したかを確認します。
func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
