package ticketctl

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ticketdesk/internal/common"
	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ticketdesk/internal/server/services"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, repos, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer repos.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var email, name string
	create := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN account, prompting for the password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSessions(cmd.Context(), func(_ repomanager.RepositoryManager, svc *services.SessionService) error {
				pw, err := confirmPassword(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer common.WipeByteArray(pw)

				user, err := svc.CreateUser(cmd.Context(), services.RegisterInput{
					Email:    email,
					Password: string(pw),
					Name:     name,
				}, models.RoleAdmin)
				if errors.Is(err, common.ErrorAlreadyExists) {
					return fmt.Errorf("user %s already exists", email)
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "Admin email")
	create.Flags().StringVar(&name, "name", "", "Display name")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

func (c *cli) sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage refresh token sessions",
	}

	var userID, email string
	revokeAll := &cobra.Command{
		Use:   "revoke-all",
		Short: "Revoke every active session of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSessions(cmd.Context(), func(repos repomanager.RepositoryManager, svc *services.SessionService) error {
				id, err := resolveUserID(cmd.Context(), repos, userID, email)
				if err != nil {
					return err
				}

				n, err := svc.LogoutAll(cmd.Context(), id)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "revoked %d sessions for %s\n", n, id)
				return nil
			})
		},
	}
	revokeAll.Flags().StringVar(&userID, "user-id", "", "User ID")
	revokeAll.Flags().StringVar(&email, "email", "", "User email")
	revokeAll.MarkFlagsOneRequired("user-id", "email")
	revokeAll.MarkFlagsMutuallyExclusive("user-id", "email")

	cmd.AddCommand(revokeAll)
	return cmd
}

func resolveUserID(ctx context.Context, repos repomanager.RepositoryManager, userID, email string) (string, error) {
	if userID != "" {
		return userID, nil
	}

	user, err := repos.Users(repos.Conn()).FindByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("no user with email %s", email)
	}
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
