package environment

import "errors"

var (
	// ErrNoSuchRepository is returned when no configuration object exists for the requested key.
	ErrNoSuchRepository = errors.New("no such repository")
	// ErrUnloadableContent is returned when a configuration object exists but cannot be read or parsed.
	ErrUnloadableContent = errors.New("cannot load environment")
)
