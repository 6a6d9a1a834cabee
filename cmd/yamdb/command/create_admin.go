package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yamdb/database"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/http-api/validation"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	adminUsername string
	adminEmail    string
)

// createAdminCmd is the only way to set the staff flag.
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a staff account or promote an existing user",
	Example: `  yamdb create-admin --username root --email root@example.com
  yamdb create-admin --username alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validation.ValidateUsername(adminUsername); err != nil {
			return fmt.Errorf("--username: %w", err)
		}

		db, err := database.ConnectDB(cfg, logger)
		if err != nil {
			return err
		}
		defer closeDB(db)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		user, created, err := promoteAdmin(ctx, repository.NewUserRepository(db), adminUsername, adminEmail)
		if err != nil {
			return err
		}
		if created {
			cmd.Printf("created staff user %s\n", user.Username)
		} else {
			cmd.Printf("promoted %s to staff\n", user.Username)
		}
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "username of the staff account (required)")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "email, required when the user does not exist yet")
	_ = createAdminCmd.MarkFlagRequired("username")
}

// promoteAdmin makes username a staff admin, creating the account when
// it does not exist.
func promoteAdmin(ctx context.Context, users repository.UserRepository, username, email string) (*models.User, bool, error) {
	user, err := users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		if err := users.Update(ctx, user.ID, map[string]any{"role": models.RoleAdmin, "is_staff": true}); err != nil {
			return nil, false, fmt.Errorf("promote user: %w", err)
		}
		user.Role = models.RoleAdmin
		user.IsStaff = true
		return user, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("find user: %w", err)
	}

	if email == "" {
		return nil, false, errors.New("--email is required to create a new user")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, false, fmt.Errorf("invalid --username: %w", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, false, fmt.Errorf("invalid --email: %w", err)
	}
	user = &models.User{
		Username: username,
		Email:    email,
		Role:     models.RoleAdmin,
		IsStaff:  true,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, fmt.Errorf("email %s is already in use", email)
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}
