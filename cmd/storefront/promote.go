package main

import (
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront"
	"github.com/spf13/cobra"
)

// newPromoteCommand changes the role of a user. There is no HTTP route
// for this.
func newPromoteCommand(configPath *string) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "promote <email>",
		Args:  cobra.ExactArgs(1),
		Short: "Set the role of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, ok := storefront.ParseRole(role)
			if !ok {
				return errors.New(fmt.Sprintf("unknown role %q", role), errors.CategoryBadInput)
			}

			_, base, be, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer be.close()

			logger := base.With(map[string]any{"command": "promote", "email": args[0]})

			users := be.stores.Users()
			user, err := users.FindByEmail(cmd.Context(), args[0])
			if err != nil {
				if storefront.IsNotFound(err) {
					return errors.New("no user registered with "+args[0], errors.CategoryNotFound)
				}
				return err
			}

			previous := user.Role
			user.Role = target
			if _, err := users.Save(cmd.Context(), user); err != nil {
				return err
			}

			logger.Info("role of %s changed from %s to %s", user.Email, previous, target)
			cmd.Printf("%s is now %s\n", user.Email, target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", string(storefront.RoleAdmin), "role to assign (admin or user)")
	return cmd
}
