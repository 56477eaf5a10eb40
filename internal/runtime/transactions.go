package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mvp-joe/typedsql/internal/logger"
	"github.com/mvp-joe/typedsql/internal/procedure"
)

// Transactions keeps open transactions under caller visible ids.
// Statements run without an id auto-commit on the shared pool.
type Transactions struct {
	db *sql.DB

	mu   sync.Mutex
	open map[string]*sql.Tx
}

// NewTransactions creates a registry over db. The database is not owned and
// will not be closed.
func NewTransactions(db *sql.DB) *Transactions {
	return &Transactions{db: db, open: make(map[string]*sql.Tx)}
}

// Begin starts a transaction and returns its id.
func (t *Transactions) Begin(ctx context.Context) (string, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	id := uuid.NewString()

	t.mu.Lock()
	t.open[id] = tx
	t.mu.Unlock()

	logger.Get().Debug("transaction started", "id", id)
	return id, nil
}

// Commit commits and forgets the transaction.
func (t *Transactions) Commit(id string) error {
	tx, err := t.take(id)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction %s: %w", id, err)
	}
	logger.Get().Debug("transaction committed", "id", id)
	return nil
}

// Rollback rolls back and forgets the transaction.
func (t *Transactions) Rollback(id string) error {
	tx, err := t.take(id)
	if err != nil {
		return err
	}
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back transaction %s: %w", id, err)
	}
	logger.Get().Debug("transaction rolled back", "id", id)
	return nil
}

// Open returns the number of transactions not yet ended.
func (t *Transactions) Open() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// Querier returns the transaction registered under id, or the pool when id
// is empty.
func (t *Transactions) Querier(id string) (procedure.Querier, error) {
	if id == "" {
		return t.db, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tx, ok := t.open[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, id)
	}
	return tx, nil
}

func (t *Transactions) take(id string) (*sql.Tx, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tx, ok := t.open[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, id)
	}
	delete(t.open, id)
	return tx, nil
}
