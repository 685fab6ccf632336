package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	// ErrNoNetwork is returned when neither a network class nor a network file is set.
	ErrNoNetwork = errors.New("no network: set a network class or a network file")

	// ErrInvalidLimits is returned when a loading limit or voltage limit is not positive.
	ErrInvalidLimits = errors.New("invalid limits: loading and voltage limits must be positive")

	// ErrInvertedVoltageBand is returned when the minimum bus voltage is not below the maximum.
	ErrInvertedVoltageBand = errors.New("invalid voltage band: minimum must be below maximum")

	// ErrInvalidLineLengthFactor is returned for a negative line length factor.
	ErrInvalidLineLengthFactor = errors.New("invalid line length factor: must be non-negative")

	// ErrInvalidCosPhi is returned when the PV power factor is outside (0, 1].
	ErrInvalidCosPhi = errors.New("invalid cos phi: must be in (0, 1]")

	// ErrInvalidSolverOptions is returned for a negative tolerance or iteration limit.
	ErrInvalidSolverOptions = errors.New("invalid power flow options: must be non-negative")

	// ErrNoSampleBuses is returned when co-simulation is enabled without target buses.
	ErrNoSampleBuses = errors.New("co-simulation enabled without sample buses")
)
