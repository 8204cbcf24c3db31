package orchestrator

import (
	"errors"
	"fmt"
)

var ErrEngine = errors.New("engine error")

func wrapEngine(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrEngine, err)
}
