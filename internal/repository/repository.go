// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrForeignKey — нарушение ссылочной целостности.
	ErrForeignKey = errors.New("ссылка на несуществующую запись")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner позволяет выполнять операции в транзакции с ограниченным
// временем ожидания. Ожидание начала транзакции (захват соединения,
// локов) ограничено acquireTimeout, суммарное время транзакции —
// txTimeout: сервис никогда не блокируется на contention бесконечно.
type TxRunner struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	txTimeout      time.Duration
}

// NewTxRunner создаёт TxRunner для управления транзакциями.
func NewTxRunner(pool *pgxpool.Pool, acquireTimeout, txTimeout time.Duration) *TxRunner {
	return &TxRunner{
		pool:           pool,
		acquireTimeout: acquireTimeout,
		txTimeout:      txTimeout,
	}
}

// RunInTx выполняет fn внутри транзакции.
// При ошибке fn или истечении таймаута — транзакция откатывается.
// При успехе — коммитится. Контекст, передаваемый в fn, несёт
// ограничение txTimeout.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	beginCtx, cancelBegin := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancelBegin()

	tx, err := r.pool.BeginTx(beginCtx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}

	txCtx, cancelTx := context.WithTimeout(ctx, r.txTimeout)
	defer cancelTx()

	defer tx.Rollback(txCtx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(txCtx, tx); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}

// isForeignKeyViolation проверяет, является ли ошибка нарушением FK PostgreSQL.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}
