// Provides common multiselect error definitions.
package mserrors

import "errors"

var (
	// ErrInvalidConfiguration is returned by the call that introduced a bad
	// page size or a missing required collaborator.
	ErrInvalidConfiguration = errors.New("multiselect: invalid configuration")
	// ErrUnknownKey is returned when a key was never issued or has been removed.
	ErrUnknownKey = errors.New("multiselect: unknown key")
	// ErrLabelGeneration means the label generator produced no label for a non-nil item.
	ErrLabelGeneration = errors.New("multiselect: label generation failed")
	// ErrSourceFetch wraps failures of host supplied fetch/count functions.
	ErrSourceFetch   = errors.New("multiselect: source fetch failed")
	ErrUninitialized = errors.New("multiselect: no data provider installed")
)
