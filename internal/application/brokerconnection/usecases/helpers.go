package usecases

import (
	stderrors "errors"

	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
)

// lockErr reports a contended lock as a conflict the caller may retry.
func lockErr(err error) error {
	if stderrors.Is(err, lock.ErrLockTimeout) {
		return errors.NewConflictError("another operation on this connection is in progress, try again")
	}
	return err
}
