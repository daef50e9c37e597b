package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// SessionRunner executes a callback inside a MongoDB session
// transaction. Both the raw client adapter and the circuit breaker
// protected client satisfy it.
type SessionRunner interface {
	WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error
}

// TransactionManager runs use-case callbacks inside a MongoDB
// transaction. The session context it passes down is what makes the
// event append, the balance writes and the outbox insert atomic.
type TransactionManager struct {
	runner SessionRunner
}

func NewTransactionManager(client *mongo.Client) *TransactionManager {
	return &TransactionManager{runner: clientRunner{client: client}}
}

// NewTransactionManagerWithRunner wires an alternative session runner,
// typically the circuit breaker protected client.
func NewTransactionManagerWithRunner(runner SessionRunner) *TransactionManager {
	return &TransactionManager{runner: runner}
}

func (m *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.runner.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}

type clientRunner struct {
	client *mongo.Client
}

func (r clientRunner) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
