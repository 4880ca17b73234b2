package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrDirtyWorkingTree is returned before anything is touched when the
	// working tree has unstaged or staged changes.
	ErrDirtyWorkingTree      = errors.New("working tree has uncommitted changes")
	ErrDiffComputationFailed = errors.New("failed to compute changed paths")
	ErrListingFailed         = errors.New("failed to list paths")
	ErrSameRevision          = errors.New("from and to revisions must differ")
	ErrMissingRevision       = errors.New("both from and to revisions are required")
	ErrTargetMismatch        = errors.New("target directory is not the repository root")
)

type MaterializeError struct {
	Revision string
	Path     string
	Err      error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("materialize %s at %s: %v", e.Path, e.Revision, e.Err)
}

func (e *MaterializeError) Unwrap() error { return e.Err }

// RestoreError means a path could not be put back to the original revision
// right after it was copied.
type RestoreError struct {
	Path  string
	Cause error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore %s: %v", e.Path, e.Cause)
}

func (e *RestoreError) Unwrap() error { return e.Cause }

type CopyError struct {
	Path string
	Dest string
	Err  error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s to %s: %v", e.Path, e.Dest, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// HardResetError means the working tree could not be forced back to
// Revision. The tree may be left modified and needs manual attention.
type HardResetError struct {
	Revision string
	Cause    error
}

func (e *HardResetError) Error() string {
	return fmt.Sprintf("hard reset to %s failed, working tree needs manual intervention: %v", e.Revision, e.Cause)
}

func (e *HardResetError) Unwrap() error { return e.Cause }

// IsHardResetFailure reports whether err (or anything joined into it) is a
// *HardResetError.
func IsHardResetFailure(err error) bool {
	var target *HardResetError
	return errors.As(err, &target)
}
