package config

import "errors"

// Error variables for configuration loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrConfigExists       = errors.New("config file already exists")
	ErrEnvInvalid         = errors.New("invalid environment override")
	ErrCountInvalid       = errors.New("count must be at least 1")
	ErrCapacityInvalid    = errors.New("capacity must not be negative")
	ErrBaseInvalid        = errors.New("base must not be negative")
	ErrPermInvalid        = errors.New(`perm must be "ro", "wo" or "rw"`)
	ErrInstancesMismatch  = errors.New("instances must list one entry per instance")
)
