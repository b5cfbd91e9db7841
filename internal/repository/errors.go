// Package repository defines the storage layer for both services and the
// sentinel errors shared by its implementations. Handlers use these values
// to pick a status code: ErrShowNotFound and ErrUploadNotFound become 404 or
// 500 depending on the endpoint, ErrInvalidPath and ErrNoFile become 400,
// and anything else is treated as a storage failure.
package repository

import "errors"

// ErrShowNotFound is returned when no show carries the requested id.
var ErrShowNotFound = errors.New("show not found")

// ErrUnknownField is returned when an update names a flag other than
// intervalDone, sold or ready.
var ErrUnknownField = errors.New("unknown show field")

// ErrUploadNotFound is returned when the file to delete does not exist.
var ErrUploadNotFound = errors.New("upload not found")

// ErrInvalidPath is returned when a delete request does not resolve to a
// file name inside the upload directory.
var ErrInvalidPath = errors.New("invalid upload path")

// ErrNoFile is returned when an upload carries no file name.
var ErrNoFile = errors.New("no file supplied")
