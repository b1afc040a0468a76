package usecases

import "context"

// TransactionManager runs fn inside one database transaction.
type TransactionManager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
