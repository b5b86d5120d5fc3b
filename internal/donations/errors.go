package donations

import (
	"fmt"

	"zerowaste/internal/models"
)

// Stable machine-readable error codes surfaced to clients.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotAuthorized    = "NOT_AUTHORIZED"
	CodeOutOfRange       = "OUT_OF_RANGE"
	CodeStateConflict    = "STATE_CONFLICT"
	CodeAlreadyClaimed   = "ALREADY_CLAIMED"
	CodeExpired          = "EXPIRED"
	CodeNotFound         = "NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ErrorCode implements the coded-error contract.
func (e ValidationError) ErrorCode() string { return CodeValidation }

// AuthorizationError reports a role or ownership violation. For
// operational-radius rejections DistanceKm and AllowedKm carry the computed
// values so the client can explain the rejection.
type AuthorizationError struct {
	Reason     string
	DistanceKm float64
	AllowedKm  float64
}

func (e AuthorizationError) Error() string { return e.Reason }

func (e AuthorizationError) ErrorCode() string {
	if e.AllowedKm > 0 {
		return CodeOutOfRange
	}
	return CodeNotAuthorized
}

// StateConflictError reports a transition attempted against a donation that is
// not in the required precondition state, including the race where another
// claimant won. It is distinct from AuthorizationError so clients can tell
// "someone else already claimed this" from "you are not allowed".
type StateConflictError struct {
	Code    string
	Reason  string
	Current models.Status
}

func (e StateConflictError) Error() string { return e.Reason }

func (e StateConflictError) ErrorCode() string {
	if e.Code != "" {
		return e.Code
	}
	return CodeStateConflict
}

// NotFoundError reports an unknown donation or user id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e NotFoundError) ErrorCode() string { return CodeNotFound }

// StoreError wraps a persistence failure. Discovery callers may degrade to
// unfiltered results on it; write paths must surface it.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("donation store %s failed: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() error { return e.Err }

func (e StoreError) ErrorCode() string { return CodeStoreUnavailable }
