package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/coaching-center-api/internal/observability"
	"github.com/noah-isme/coaching-center-api/internal/policy"
)

var (
	// ErrUserNotFound indicates the user does not exist or was deleted.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken indicates another user already registered the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for any failed password check.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountInactive blocks login for users whose status is not enrolled.
	ErrAccountInactive = errors.New("account is not active")
	// ErrIdentifierUnavailable means no free identifier was found within the attempt budget.
	ErrIdentifierUnavailable = errors.New("no identifier available, retry later")
	// ErrIdentifierConflict means a generated identifier was taken before it was stored.
	ErrIdentifierConflict = errors.New("identifier was taken concurrently, retry the request")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrStandardNotFound   = errors.New("standard not found")
	ErrStandardExists     = errors.New("standard already exists")
	// ErrBatchRequired is returned when a student is registered without a batch.
	ErrBatchRequired = errors.New("batch is required for students")
	// ErrFieldNotApplicable is returned when a field does not apply to the user's role.
	ErrFieldNotApplicable = errors.New("field does not apply to this role")
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")
	// ErrRequesterUnknown means the authenticated user no longer exists.
	ErrRequesterUnknown = errors.New("authenticated user no longer exists")
)

// AccessDeniedError carries the policy decision behind a 403.
type AccessDeniedError struct {
	Resource policy.Resource
	Decision policy.Decision
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access to %s denied: %s", e.Resource, e.Decision.Reason)
}

// Reason returns the machine-readable denial code.
func (e *AccessDeniedError) Reason() policy.Reason {
	return e.Decision.Reason
}

func denied(resource policy.Resource, decision policy.Decision) error {
	observability.AccessDenials().WithLabelValues(string(resource), string(decision.Reason)).Inc()
	return &AccessDeniedError{Resource: resource, Decision: decision}
}
