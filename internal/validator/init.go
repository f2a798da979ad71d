package validator

import (
	"errors"
	"fmt"
	"reflect"

	"ctchen222/minimax-tic-tac-toe/internal/game"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	// Initialize validation
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterGameValidations(validate); err != nil {
		panic(err)
	}
}

func GetValidator() *validator.Validate {
	return validate
}

// RegisterGameValidations adds the "cell" and "mark" tags to v. The server
// also registers them on gin's binding engine.
func RegisterGameValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("cell", validateCell); err != nil {
		return fmt.Errorf("failed to register cell validation: %w", err)
	}
	if err := v.RegisterValidation("mark", validateMark); err != nil {
		return fmt.Errorf("failed to register mark validation: %w", err)
	}
	return nil
}

// RegisterWithGin adds the game validations to gin's binding engine so
// request models can use them in binding tags.
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not a go-playground validator")
	}
	return RegisterGameValidations(v)
}

// validateCell accepts board indices 0-8.
func validateCell(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		cell := fl.Field().Int()
		return cell >= 0 && cell < game.BoardSize
	default:
		return false
	}
}

// validateMark accepts a player's mark, X or O.
func validateMark(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	mark := game.Mark(fl.Field().String())
	return mark == game.PlayerX || mark == game.PlayerO
}
