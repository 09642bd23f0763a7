package chat

import (
	"fmt"
	"github.com/go-playground/validator/v10"
	"tutor-realtime/errors"
)

var validate = validator.New()

// Validate checks the field constraints of a decoded command.
func Validate(cmd Command) error {
	if cmd == nil {
		return errors.ErrInvalidCommand
	}
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrInvalidCommand, cmd.Kind(), err)
	}
	return nil
}
