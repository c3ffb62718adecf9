package scheme

import "errors"

var ErrConfiguration = errors.New("tilescheme: configuration error")

// ConfigurationError reports the first validation rule a configuration or snapshot violates.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return "tilescheme: " + e.Reason + ": " + e.Err.Error()
	}
	return "tilescheme: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configError(reason string) error {
	return &ConfigurationError{Reason: reason}
}
