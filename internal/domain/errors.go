package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAlreadyResolved    = errors.New("ticket already resolved")
	ErrAlreadyAssigned    = errors.New("ticket already assigned")
	ErrNoEligibleWorker   = errors.New("no eligible worker")
	ErrCapacityExceeded   = errors.New("worker capacity exceeded")
	ErrDepartmentMismatch = errors.New("worker department does not match ticket department")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ErrVersionConflict is returned by repositories when a conditional update
// observes a version other than the expected one.
var ErrVersionConflict = errors.New("version conflict")
