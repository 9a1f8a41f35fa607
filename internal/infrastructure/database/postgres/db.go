package postgres

import (
	"context"
	"errors"
	"fmt"
	"library-system/internal/infrastructure/monitoring"
	"library-system/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var errMsgFormat = "%w: %w"

// dialect builds the dynamic list queries. Prepared mode keeps every value a $n argument.
var dialect = goqu.Dialect("postgres")

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			contextLogger.Warn("Database foreign key violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %w", apperrors.ErrValidation, &apperrors.ValidationError{
				Message: "Referenced object does not exist.",
				Cause:   err,
			})
		case pgCheckViolation:
			contextLogger.Warn("Database check constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %w", apperrors.ErrValidation, &apperrors.ValidationError{
				Message: fmt.Sprintf("Constraint %s violated.", pgErr.ConstraintName),
				Cause:   err,
			})
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return apperrors.WrapDatabaseError(err, fmt.Sprintf("postgres error %s", pgErr.Code))
	}

	contextLogger.Error("Generic database error", "error", err)
	return apperrors.WrapDatabaseError(err, "query failed")
}

// observe records the query latency under queryName.
func observe(queryName string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		status = "error"
	}
	monitoring.RecordDBQuery(queryName, status, time.Since(start))
}

// txRepo holds the transaction plumbing shared by repositories that expose BeginTx.
type txRepo struct {
	db     DBPool
	logger *slog.Logger
}

func (r *txRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, apperrors.WrapDatabaseError(err, "could not begin transaction")
	}
	return tx, nil
}

func (r *txRepo) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return apperrors.WrapDatabaseError(err, "could not commit transaction")
	}
	return nil
}

func (r *txRepo) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return apperrors.WrapDatabaseError(err, "could not roll back transaction")
	}
	return nil
}

func countDataset(ds *goqu.SelectDataset) *goqu.SelectDataset {
	return ds.ClearOrder().ClearLimit().ClearOffset().ClearSelect().Select(goqu.COUNT(goqu.Star()))
}

// countAndPage runs a COUNT(*) over the filtered dataset before the page itself.
func countAndPage(ctx context.Context, db DBPool, ds *goqu.SelectDataset, queryName string) (int64, error) {
	countSQL, args, err := countDataset(ds).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("%w: build count query: %w", apperrors.ErrInternalServer, err)
	}
	start := time.Now()
	var total int64
	err = db.QueryRow(ctx, countSQL, args...).Scan(&total)
	observe(queryName+"_count", start, err)
	if err != nil {
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return total, nil
}

// lookupError turns a missing row into a descriptive ErrNotFound and translates everything else.
func lookupError(err error, logger *slog.Logger, what string, id int64) error {
	translated := translateDBError(err, logger)
	if errors.Is(translated, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: %s with ID %d not found", apperrors.ErrNotFound, what, id)
	}
	return translated
}
