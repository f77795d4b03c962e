package auth

import (
	"fmt"

	connerrors "github.com/troioi-vn/meo-gpt-connector/internal/errors"
)

// Outcomes reported to the Observer.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Operations reported to the Observer.
const (
	OperationAuthorize = "authorize"
	OperationCallback  = "callback"
	OperationToken     = "token"
	OperationRevoke    = "revoke"
)

func invalidRequest(err error) error {
	return fmt.Errorf("%w: %w", connerrors.ErrInvalidRequest, err)
}
