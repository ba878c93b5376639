package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetbook/fleetbook/internal/auth"
	"github.com/fleetbook/fleetbook/internal/platform/httpx"
)

func newUsersCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}

	var in auth.UserInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Example: `  fleetctl users create --email owner@example.com --name Owner --password 's3cret-pass' --role admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := httpx.NewValidator().Struct(in); err != nil {
				return err
			}
			users, err := deps.Users(cmd.Context())
			if err != nil {
				return err
			}
			user, err := users.CreateUser(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %d <%s>\n", user.Role, user.ID, user.Email)
			return nil
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "login email")
	create.Flags().StringVar(&in.Name, "name", "", "display name")
	create.Flags().StringVar(&in.Password, "password", "", "initial password (min 8 characters)")
	create.Flags().StringVar(&in.Role, "role", auth.RoleStaff, "admin or staff")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
