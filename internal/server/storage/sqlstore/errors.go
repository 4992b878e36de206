package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// PostgreSQL error codes
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// mapError переводит ошибки драйверов в sentinel ошибки storage.
// Исходная ошибка сохраняется в цепочке для логов.
func (s *Storage) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}

	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", storage.ErrDuplicateEntry, err)
	}

	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	}

	return err
}

func isUniqueViolation(err error) bool {
	if pgErr, ok := maybePgError(err); ok {
		return pgErr.Code == pgErrUniqueViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}

func isForeignKeyViolation(err error) bool {
	if pgErr, ok := maybePgError(err); ok {
		return pgErr.Code == pgErrForeignKeyViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}

	return false
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
