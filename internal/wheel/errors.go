package wheel

import "errors"

var (
	// ErrNilDriver is returned by New when no motor drive is supplied.
	ErrNilDriver = errors.New("wheel: nil driver")

	// ErrNilController is returned by NewRunner without a controller.
	ErrNilController = errors.New("wheel: nil controller")
)
