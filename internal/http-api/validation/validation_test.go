package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     error
	}{
		{"simple", "alice", nil},
		{"allowed symbols", "a.l+i-c_e@x", nil},
		{"unicode letters", "Жора", nil},
		{"reserved", "me", ErrUsernameReserved},
		{"reserved differs by case", "Me", nil},
		{"space", "al ice", ErrUsernameInvalid},
		{"slash", "a/b", ErrUsernameInvalid},
		{"empty", "", ErrUsernameLength},
		{"too long", strings.Repeat("a", UsernameMaxLength+1), ErrUsernameLength},
		{"max length", strings.Repeat("a", UsernameMaxLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateSlug(t *testing.T) {
	assert.NoError(t, ValidateSlug("sci-fi_2"))
	assert.ErrorIs(t, ValidateSlug("sci fi"), ErrSlugInvalid)
	assert.ErrorIs(t, ValidateSlug("фантастика"), ErrSlugInvalid)
	assert.ErrorIs(t, ValidateSlug(""), ErrSlugInvalid)
	assert.ErrorIs(t, ValidateSlug(strings.Repeat("a", SlugMaxLength+1)), ErrSlugInvalid)
}

func TestValidateYear(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateYear(2024, now))
	assert.NoError(t, ValidateYear(1895, now))
	assert.ErrorIs(t, ValidateYear(2025, now), ErrYearInFuture)
	assert.ErrorIs(t, ValidateYear(2030, now), ErrYearInFuture)
}

func TestValidateScore(t *testing.T) {
	assert.NoError(t, ValidateScore(1))
	assert.NoError(t, ValidateScore(10))
	assert.ErrorIs(t, ValidateScore(0), ErrScoreRange)
	assert.ErrorIs(t, ValidateScore(11), ErrScoreRange)
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  error
	}{
		{"simple", "alice@example.com", nil},
		{"plus tag", "alice+films@example.co.uk", nil},
		{"no at", "alice.example.com", ErrEmailInvalid},
		{"only at", "@", ErrEmailInvalid},
		{"no domain", "alice@", ErrEmailInvalid},
		{"spaces", "al ice@example.com", ErrEmailInvalid},
		{"empty", "", ErrEmailInvalid},
		{"too long", strings.Repeat("a", 250) + "@x.io", ErrEmailLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

type signupRequest struct {
	Username string `json:"username" validate:"required,max=150,username,notme"`
	Email    string `json:"email" validate:"required,max=254,email"`
}

type titleRequest struct {
	Name string `json:"name" validate:"required,max=256"`
	Year int    `json:"year" validate:"required,notfutureyear"`
	Slug string `json:"category" validate:"omitempty,slug"`
}

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	require.NoError(t, Register(v))
	return v
}

func TestRegister_FieldErrorsUseJSONNames(t *testing.T) {
	v := newValidator(t)

	err := v.Struct(signupRequest{Username: "me", Email: "nope"})
	fields := FieldErrors(err)

	require.NotNil(t, fields)
	assert.Equal(t, []string{ErrUsernameReserved.Error()}, fields["username"])
	assert.Equal(t, []string{"Enter a valid email address."}, fields["email"])
}

func TestRegister_UsernamePattern(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Struct(signupRequest{Username: "alice", Email: "a@example.com"}))

	fields := FieldErrors(v.Struct(signupRequest{Username: "bad name", Email: "a@example.com"}))
	assert.Equal(t, []string{ErrUsernameInvalid.Error()}, fields["username"])
}

func TestRegister_Required(t *testing.T) {
	v := newValidator(t)

	fields := FieldErrors(v.Struct(signupRequest{}))
	assert.Equal(t, []string{"This field is required."}, fields["username"])
	assert.Equal(t, []string{"This field is required."}, fields["email"])
}

func TestRegister_YearAndSlug(t *testing.T) {
	v := newValidator(t)

	fields := FieldErrors(v.Struct(titleRequest{Name: "Dune", Year: time.Now().Year() + 1, Slug: "bad slug"}))
	assert.Equal(t, []string{ErrYearInFuture.Error()}, fields["year"])
	assert.Equal(t, []string{ErrSlugInvalid.Error()}, fields["category"])

	assert.NoError(t, v.Struct(titleRequest{Name: "Dune", Year: 1965, Slug: "book"}))
}

func TestFieldErrors_NonValidationError(t *testing.T) {
	assert.Nil(t, FieldErrors(assert.AnError))
	assert.Nil(t, FieldErrors(nil))
}

func TestRegisterWithGin(t *testing.T) {
	assert.NoError(t, RegisterWithGin())
	// second call is a no-op
	assert.NoError(t, RegisterWithGin())
}
