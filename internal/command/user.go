package command

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/castellan/castellan/internal/sec"
	"github.com/castellan/castellan/internal/storage/db"
)

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}
	cmd.AddCommand(
		userCreateCommand(),
		userDeleteCommand(),
		userListCommand(),
		userSeedCommand(),
	)
	return cmd
}

func userCreateCommand() *cobra.Command {
	var roles []string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create user",
		Long: "Creates user entry for the provided username and password. Passwords may be\n" +
			"provided via stdin or through the interactive prompt.",

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			cfg, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			name := args[0]
			if passwd, err := prompt("password: ", true); err != nil {
				return err
			} else if hash, err := sec.HashPassword(passwd, cfg.PasswordHashCost); err != nil {
				return err
			} else if err = store.UpsertUser(cmd.Context(), db.User{
				Name:         name,
				PasswordHash: hash,
				Enabled:      true,
				Authorities:  roles,
			}); err != nil {
				return err
			}

			logger.InfoContext(cmd.Context(), "created user",
				slog.String("name", name),
				slog.Any("roles", roles),
			)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&roles, "role", []string{"USER"}, "roles granted to the user")
	return cmd
}

func userDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete user",
		Long: "Permanently deletes the user and all granted authorities. " +
			"This operation is permanent and irreversible.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			_, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			name := args[0]
			logger = logger.With(slog.String("name", name))
			user, err := store.GetUserByName(cmd.Context(), name)
			if err != nil {
				return err
			}
			resp, err := prompt("Are you sure you want to delete this user? [y|N] ", false)
			if !bytes.Equal(resp, []byte{'y'}) || err != nil {
				logger.InfoContext(cmd.Context(), "aborted user deletion")
				return err
			}
			if err = store.DeleteUser(cmd.Context(), user.ID); err != nil {
				return err
			}
			logger.InfoContext(cmd.Context(), "user deleted")
			return nil
		},
	}
}

func userListCommand() *cobra.Command {
	const pageSize = 100
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			_, _, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			afterName := ""
			for {
				users, err := store.ListUsers(cmd.Context(), afterName, pageSize)
				if err != nil {
					return err
				}
				for _, user := range users {
					state := "enabled"
					if !user.Enabled {
						state = "disabled"
					}
					cmd.Printf("%s\t%s\t%v\n", user.Name, state, user.Authorities)
				}
				if len(users) < pageSize {
					return nil
				}
				afterName = users[len(users)-1].Name
			}
		},
	}
}

// userSeedCommand populates the store with demo accounts for development:
// the fixed alice (ADMIN) and bob (USER) pair, password "secret", plus a
// number of generated users.
func userSeedCommand() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed demo users (dev only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()
			if !cfg.DevMode {
				return errors.New("user seed requires dev_mode")
			}

			faker := gofakeit.New(0)
			seeds := []db.User{
				{Name: "alice", Enabled: true, Authorities: []string{"ADMIN"}},
				{Name: "bob", Enabled: true, Authorities: []string{"USER"}},
			}
			for range count {
				seeds = append(seeds, db.User{
					Name:        faker.Username(),
					Enabled:     faker.Bool(),
					Authorities: []string{randomRole()},
				})
			}

			for _, user := range seeds {
				user.PasswordHash, err = sec.HashPassword("secret", cfg.PasswordHashCost)
				if err != nil {
					return err
				}
				if err = store.UpsertUser(cmd.Context(), user); err != nil {
					return fmt.Errorf("failed to seed %s: %w", user.Name, err)
				}
				logger.InfoContext(cmd.Context(), "seeded user",
					slog.String("name", user.Name),
					slog.Any("roles", user.Authorities),
					slog.Bool("enabled", user.Enabled),
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "number of generated users beyond alice and bob")
	return cmd
}

func randomRole() string {
	if rand.IntN(4) == 0 { //nolint:gosec // test data, not crypto
		return "ADMIN"
	}
	return "USER"
}
