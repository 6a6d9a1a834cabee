// Package validation holds the field rules shared by request binding and the
// service layer, and registers them as validator tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	UsernameMaxLength = 150
	EmailMaxLength    = 254
	SlugMaxLength     = 50
	NameMaxLength     = 256
	ScoreMin          = 1
	ScoreMax          = 10

	// ReservedUsername collides with the /users/me/ route.
	ReservedUsername = "me"
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

var (
	ErrUsernameReserved = errors.New(`username "me" is not allowed`)
	ErrUsernameInvalid  = errors.New("username may contain only letters, digits and @/./+/-/_")
	ErrUsernameLength   = fmt.Errorf("username must be 1 to %d characters", UsernameMaxLength)
	ErrSlugInvalid      = errors.New("slug may contain only latin letters, digits, hyphens and underscores")
	ErrYearInFuture     = errors.New("year cannot be later than the current year")
	ErrScoreRange       = fmt.Errorf("score must be between %d and %d", ScoreMin, ScoreMax)
	ErrEmailInvalid     = errors.New("Enter a valid email address.")
	ErrEmailLength      = fmt.Errorf("Ensure this field has no more than %d characters.", EmailMaxLength)
)

var emailValidator = validator.New()

// ValidateUsername checks length, allowed characters and the reserved name.
func ValidateUsername(username string) error {
	if username == "" || len([]rune(username)) > UsernameMaxLength {
		return ErrUsernameLength
	}
	if username == ReservedUsername {
		return ErrUsernameReserved
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

func ValidateSlug(slug string) error {
	if slug == "" || len(slug) > SlugMaxLength || !slugPattern.MatchString(slug) {
		return ErrSlugInvalid
	}
	return nil
}

// ValidateEmail applies the same address rule as the email binding tag.
func ValidateEmail(email string) error {
	if len(email) > EmailMaxLength {
		return ErrEmailLength
	}
	if err := emailValidator.Var(email, "required,email"); err != nil {
		return ErrEmailInvalid
	}
	return nil
}

// ValidateYear rejects years after now's calendar year.
func ValidateYear(year int, now time.Time) error {
	if year > now.Year() {
		return ErrYearInFuture
	}
	return nil
}

func ValidateScore(score int) error {
	if score < ScoreMin || score > ScoreMax {
		return ErrScoreRange
	}
	return nil
}

// Register adds the custom tags to v and reports fields by their JSON name.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonTagName)

	rules := map[string]validator.Func{
		"username": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || usernamePattern.MatchString(s)
		},
		"notme": func(fl validator.FieldLevel) bool {
			return fl.Field().String() != ReservedUsername
		},
		"slug": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || slugPattern.MatchString(s)
		},
		"notfutureyear": func(fl validator.FieldLevel) bool {
			return int(fl.Field().Int()) <= time.Now().Year()
		},
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validator: %w", tag, err)
		}
	}
	return nil
}

var ginOnce sync.Once

// RegisterWithGin installs the custom tags on gin's binding validator.
func RegisterWithGin() error {
	var err error
	ginOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin binding engine is not go-playground/validator")
			return
		}
		err = Register(v)
	})
	return err
}

func jsonTagName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// FieldErrors converts validator errors into field -> messages. It returns
// nil when err carries no field information.
func FieldErrors(err error) map[string][]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	out := make(map[string][]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = append(out[fe.Field()], message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "username":
		return ErrUsernameInvalid.Error()
	case "notme":
		return ErrUsernameReserved.Error()
	case "slug":
		return ErrSlugInvalid.Error()
	case "notfutureyear":
		return ErrYearInFuture.Error()
	case "oneof":
		return fmt.Sprintf("Value must be one of: %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
