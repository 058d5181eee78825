package domain

import "errors"

var (
	// ErrOutOfRange is returned when the current question is requested after the
	// wizard has finished.
	ErrOutOfRange = errors.New("no current question: wizard finished")
	// ErrPrecondition is returned when eligibility is evaluated before every
	// question has been answered.
	ErrPrecondition = errors.New("eligibility precondition violated")
	// ErrInvalidCatalog indicates catalog content failed validation.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrCatalogNotFound indicates the catalog could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrSessionNotFound is returned when a questionnaire session does not exist.
	ErrSessionNotFound = errors.New("session not found")
)
