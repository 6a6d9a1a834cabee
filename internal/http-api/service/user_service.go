package service

import (
	"context"
	"errors"
	"fmt"

	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/http-api/validation"
)

// UserInput is an admin-created user.
type UserInput struct {
	Username  string
	Email     string
	Role      string
	FirstName string
	LastName  string
	Bio       string
}

// UserPatch holds the fields to change; nil means unchanged.
type UserPatch struct {
	Username  *string
	Email     *string
	Role      *string
	FirstName *string
	LastName  *string
	Bio       *string
}

type UserService interface {
	List(ctx context.Context, search string, page repository.Pagination) ([]models.User, int64, error)
	Create(ctx context.Context, in UserInput) (*models.User, error)
	Get(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, username string, patch UserPatch) (*models.User, error)
	Delete(ctx context.Context, username string) error
	// Me returns the user behind the current token.
	Me(ctx context.Context, userID string) (*models.User, error)
	// UpdateMe edits the caller's own profile. Role changes are ignored.
	UpdateMe(ctx context.Context, userID string, patch UserPatch) (*models.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

var errUserExists = newError(ErrConflict, "a user with this username or email already exists")

func validateEmail(email string) error {
	if email == "" {
		return errRequired
	}
	return validation.ValidateEmail(email)
}

func validateRole(role string) error {
	if !models.IsValidRole(role) {
		return fmt.Errorf("Value must be one of: %s, %s, %s.", models.RoleUser, models.RoleModerator, models.RoleAdmin)
	}
	return nil
}

func validateName(field, value string, fields fieldErrors) {
	if len([]rune(value)) > validation.UsernameMaxLength {
		fields.add(field, fmt.Errorf("Ensure this field has no more than %d characters.", validation.UsernameMaxLength))
	}
}

func (s *userService) List(ctx context.Context, search string, page repository.Pagination) ([]models.User, int64, error) {
	return s.userRepo.List(ctx, search, page)
}

func (s *userService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	fields := fieldErrors{}
	fields.add("username", validation.ValidateUsername(in.Username))
	fields.add("email", validateEmail(in.Email))
	fields.add("role", validateRole(in.Role))
	validateName("first_name", in.FirstName, fields)
	validateName("last_name", in.LastName, fields)
	if err := fields.err(); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		Role:      in.Role,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errUserExists
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, username string, patch UserPatch) (*models.User, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, user, patch)
}

func (s *userService) Delete(ctx context.Context, username string) error {
	user, err := s.Get(ctx, username)
	if err != nil {
		return err
	}
	return notFound(s.userRepo.Delete(ctx, user.ID), "user")
}

func (s *userService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *userService) UpdateMe(ctx context.Context, userID string, patch UserPatch) (*models.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	patch.Role = nil
	return s.apply(ctx, user, patch)
}

func (s *userService) apply(ctx context.Context, user *models.User, patch UserPatch) (*models.User, error) {
	fields := fieldErrors{}
	updates := map[string]any{}

	if patch.Username != nil {
		fields.add("username", validation.ValidateUsername(*patch.Username))
		updates["username"] = *patch.Username
	}
	if patch.Email != nil {
		fields.add("email", validateEmail(*patch.Email))
		updates["email"] = *patch.Email
	}
	if patch.Role != nil {
		fields.add("role", validateRole(*patch.Role))
		updates["role"] = *patch.Role
	}
	if patch.FirstName != nil {
		validateName("first_name", *patch.FirstName, fields)
		updates["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		validateName("last_name", *patch.LastName, fields)
		updates["last_name"] = *patch.LastName
	}
	if patch.Bio != nil {
		updates["bio"] = *patch.Bio
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user.ID, updates); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errUserExists
		}
		return nil, notFound(err, "user")
	}
	return s.Me(ctx, user.ID)
}
