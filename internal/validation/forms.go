package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"mvp/internal/models"
)

// LoginForm is the sign-in screen input.
type LoginForm struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

// RegisterForm is the registration screen input.
type RegisterForm struct {
	Email    string `json:"email" validate:"notblank,emailaddr"`
	Password string `json:"password" validate:"notblank,password"`
}

// OnboardingForm is the profile completion input.
type OnboardingForm struct {
	Name      string   `json:"name" validate:"notblank"`
	Username  string   `json:"username" validate:"notblank,username"`
	Interests []string `json:"interests" validate:"unique,dive,interest"`
}

// PostForm is the new-post input. A post needs a non-blank message or an
// image.
type PostForm struct {
	Message  string `json:"message" validate:"message_or_image"`
	HasImage bool   `json:"has_image"`
}

// EventForm is the new-event input.
type EventForm struct {
	Title    string   `json:"title" validate:"notblank,max=200"`
	Price    *float64 `json:"price" validate:"omitempty,gte=0"`
	Location string   `json:"location" validate:"max=200"`
}

// CommentForm is the new-comment input.
type CommentForm struct {
	Text string `json:"comment" validate:"notblank,max=2000"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("message_or_image", func(fl validator.FieldLevel) bool {
			if img := fl.Parent().FieldByName("HasImage"); img.IsValid() && img.Bool() {
				return true
			}
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
			return ValidateEmail(strings.TrimSpace(fl.Field().String())) == nil
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return ValidateUsername(strings.TrimSpace(fl.Field().String())) == nil
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return ValidatePassword(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("interest", func(fl validator.FieldLevel) bool {
			return ValidateInterests([]string{fl.Field().String()}, models.InterestOptions) == nil
		})
		validate = v
	})
	return validate
}

// Struct validates a form and returns the first failure as a validation
// AppError whose message can be shown to the user. The AppError wraps every
// field failure, see ToDetails.
func Struct(form interface{}) error {
	err := engine().Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		appErr := models.NewValidationError(formatFieldError(verrs[0]))
		appErr.Err = verrs
		return appErr
	}
	return models.NewValidationError(err.Error())
}

// ToDetails converts validation errors, bare or wrapped by Struct, into a
// map[field]message.
func ToDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = formatFieldError(fe)
	}
	return out
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "message_or_image":
		return "message or image is required"
	case "emailaddr":
		if err := ValidateEmail(strings.TrimSpace(fe.Value().(string))); err != nil {
			return err.Error()
		}
		return "invalid email"
	case "username":
		if err := ValidateUsername(strings.TrimSpace(fe.Value().(string))); err != nil {
			return err.Error()
		}
		return "invalid username"
	case "password":
		if err := ValidatePassword(fe.Value().(string)); err != nil {
			return err.Error()
		}
		return "invalid password"
	case "interest":
		return "unknown interest"
	case "unique":
		return field + " must contain unique items"
	case "max":
		return field + " must be at most " + fe.Param() + " characters long"
	case "gte":
		return field + " must be greater than or equal to " + fe.Param()
	default:
		return "validation failed for '" + field + "'"
	}
}
