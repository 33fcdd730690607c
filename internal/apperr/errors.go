// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrContractViolation marks a programming-contract breach: duplicate id on
	// insert, missing id on remove, unknown watch id, or a store value whose
	// type does not match its key's category.
	ErrContractViolation = errors.New("contract violation")
)
