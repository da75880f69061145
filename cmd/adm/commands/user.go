package commands

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/services"
	"feedbackapp/internal/store"
	contextutils "feedbackapp/internal/utils"
)

// UserCommands returns the user command group: account creation and role
// management against the user collection.
func UserCommands(sessionService *services.SessionService, userStore store.UserStore, logger *observability.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management operations",
	}

	cmd.AddCommand(createUserCommand(sessionService))
	cmd.AddCommand(setRoleCommand(userStore))
	cmd.AddCommand(showUserCommand(userStore))
	return cmd
}

func createUserCommand(sessionService *services.SessionService) *cobra.Command {
	var (
		email string
		name  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || name == "" {
				return contextutils.ErrorWithContextf("email and name are required")
			}

			// Prompt for password securely
			fmt.Print("Enter password: ")
			passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
			}
			password := string(passwordBytes)
			fmt.Println()

			if password == "" {
				return contextutils.ErrorWithContextf("password cannot be empty")
			}

			fmt.Print("Confirm password: ")
			confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password confirmation: %v", err)
			}
			fmt.Println()

			if password != string(confirmBytes) {
				return contextutils.ErrorWithContextf("passwords do not match")
			}

			user, _, err := sessionService.Register(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}

			fmt.Printf("Created user %s (%s)\n", user.UID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email address")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func setRoleCommand(userStore store.UserStore) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "set-role <uid>",
		Short: "Set a user's role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := args[0]

			newRole := models.UserRole(role)
			if newRole != models.RoleUser && newRole != models.RoleAdmin {
				return contextutils.ErrorWithContextf("role must be %q or %q", models.RoleUser, models.RoleAdmin)
			}

			user, err := userStore.GetUser(cmd.Context(), uid)
			if err != nil {
				if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
					// No document yet; create one carrying just the role.
					user = &models.User{UID: uid}
				} else {
					return err
				}
			}
			user.Role = newRole

			if err := userStore.PutUser(cmd.Context(), user); err != nil {
				return err
			}

			fmt.Printf("Set role of %s to %s\n", uid, newRole)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "role to assign: user or admin")
	return cmd
}

func showUserCommand(userStore store.UserStore) *cobra.Command {
	return &cobra.Command{
		Use:   "show <uid>",
		Short: "Show a user's stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := userStore.GetUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("UID:          %s\n", user.UID)
			fmt.Printf("Display name: %s\n", user.DisplayName)
			fmt.Printf("Email:        %s\n", user.Email)
			fmt.Printf("Role:         %s\n", user.Role)
			fmt.Printf("Admin:        %v\n", user.IsAdmin())
			return nil
		},
	}
}
