package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest checks struct tags and turns violations into a 400 the
// error middleware can render.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		messages := make([]string, len(errs))
		for i, fe := range errs {
			messages[i] = fmt.Sprintf("field '%s' failed on the '%s' rule", fe.Field(), fe.Tag())
		}
		return fiber.NewError(fiber.StatusBadRequest, strings.Join(messages, "; "))
	}
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}
