package engine

import (
	"errors"
	"fmt"
)

// SyncError represents an error detected during a commit cycle.
//
// Sync errors include:
//   - Push failure: the mirror remote rejected the force-push
//   - Commit failure: staging or committing failed locally
//
// SyncError includes structured fields so the session controller can
// distinguish fatal push failures (teardown and exit) from local
// failures (logged, session continues).
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// RepoID identifies the affected repository.
	RepoID string

	// Message is a human-readable description.
	Message string

	// Err is the underlying git error.
	Err error
}

// SyncErrorCode categorizes commit cycle errors.
type SyncErrorCode string

const (
	// ErrCodePushFailed indicates the force-push to the mirror remote failed.
	ErrCodePushFailed SyncErrorCode = "PUSH_FAILED"

	// ErrCodeCommitFailed indicates staging or committing failed locally.
	ErrCodeCommitFailed SyncErrorCode = "COMMIT_FAILED"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (repo=%s): %v", e.Code, e.Message, e.RepoID, e.Err)
	}
	return fmt.Sprintf("%s: %s (repo=%s)", e.Code, e.Message, e.RepoID)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsPushFailure returns true if the error is a mirror push failure.
// Uses errors.As to handle wrapped errors.
func IsPushFailure(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == ErrCodePushFailed
	}
	return false
}

// newPushError creates a SyncError for a rejected force-push.
func newPushError(repoID string, err error) *SyncError {
	return &SyncError{
		Code:    ErrCodePushFailed,
		RepoID:  repoID,
		Message: "force-push to mirror remote failed",
		Err:     err,
	}
}

// newCommitError creates a SyncError for a failed local commit.
func newCommitError(repoID, message string, err error) *SyncError {
	return &SyncError{
		Code:    ErrCodeCommitFailed,
		RepoID:  repoID,
		Message: message,
		Err:     err,
	}
}
