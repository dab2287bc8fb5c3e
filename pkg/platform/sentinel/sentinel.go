// Package sentinel holds the storage facts that document, citizen and
// activity stores report. Services map them onto pkg/domain-errors codes;
// input validation never uses them.
package sentinel

import "errors"

var (
	// ErrNotFound: no citizen, request, template or generated file by that key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: the write would take something already held, such as a
	// second pending request of one type or a generated file name.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: a guarded request transition found the row no longer
	// pending.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: the SMS queue or activity broker cannot take work now.
	ErrUnavailable = errors.New("unavailable")
)
