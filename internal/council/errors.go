package council

import "errors"

var (
	// ErrNoProvidersAvailable means neither user nor system keys could
	// authenticate any required provider. The request must not proceed with
	// an empty roster.
	ErrNoProvidersAvailable = errors.New("no providers available")
)
