package model

import "errors"

var (
	// ErrInvalidParam indicates a parameter definition that cannot be sampled.
	ErrInvalidParam = errors.New("model: invalid parameter definition")

	// ErrParamConflict indicates that a parameter was declared with a
	// definition that differs from the one already on record.
	ErrParamConflict = errors.New("model: conflicting parameter definition")

	// ErrValueOutOfDomain indicates a value that the parameter cannot take.
	ErrValueOutOfDomain = errors.New("model: value outside parameter domain")

	// ErrNoExamples indicates an operation that needs at least one
	// scored example.
	ErrNoExamples = errors.New("model: no examples")

	// ErrInvalidExample indicates an example without exactly one of
	// gain and loss.
	ErrInvalidExample = errors.New("model: example must have exactly one of gain and loss")

	// ErrInvalidReward indicates a gain or loss that is NaN or infinite.
	ErrInvalidReward = errors.New("model: reward must be a finite number")
)
