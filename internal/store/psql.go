package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"volunteerhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Postgres error codes that are reported as types.ErrConstraintViolation.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// storageError classifies a driver error. Constraint failures become
// types.ErrConstraintViolation, everything else types.ErrStorage.
func storageError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgCheckViolation, pgForeignKeyViolation:
			return fmt.Errorf("%w: %s: %s", types.ErrConstraintViolation, op, pgErr.ConstraintName)
		}
	}

	return fmt.Errorf("%w: failed to %s: %v", types.ErrStorage, op, err)
}

// getOne runs a single-row query, mapping no rows to notFound.
func getOne(ctx context.Context, db pgxscan.Querier, dst any, notFound error, op string, query string, args ...any) error {
	err := pgxscan.Get(ctx, db, dst, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return notFound
		}
		return storageError(op, err)
	}
	return nil
}

// withTx runs fn in a transaction, committing when it returns nil.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return storageError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storageError("commit transaction", err)
	}

	return nil
}

func returning(columns []string) string {
	return "RETURNING " + strings.Join(columns, ", ")
}
