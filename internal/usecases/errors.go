package usecases

import (
	"errors"
	"fmt"

	"whatsbot/internal/entities"
)

func isDuplicate(err error) bool {
	return errors.Is(err, entities.ErrDuplicate)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{entities.ErrInvalid}, args...)...)
}
