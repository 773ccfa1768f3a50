package simulation

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration problem detected before a run starts.
var ErrInvalidConfig = errors.New("invalid flock configuration")

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
