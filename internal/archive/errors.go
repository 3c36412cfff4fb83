package archive

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed enum of storage failure classes.
type ErrorKind int

const (
	KindSchema ErrorKind = iota + 1
	KindTxAborted
	KindQuota
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindTxAborted:
		return "tx_aborted"
	case KindQuota:
		return "quota_exceeded"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// StorageError classifies a failed archive operation.
type StorageError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("archive: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("archive: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(kind ErrorKind, op string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the error kind of err, or 0 when err is not a StorageError.
func KindOf(err error) ErrorKind {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// IsNotFound reports whether err is a not-found storage error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
