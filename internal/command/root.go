// Package command contains the CLI command constructors.
package command

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/castellan/castellan/internal/config"
	"github.com/castellan/castellan/internal/observability"
)

// RootCommand instantiates the root command, with all sub-commands bound.
func RootCommand() *cobra.Command {
	configFilePath := filepath.Join(xdg.ConfigHome, "castellan.yaml")
	cmd := &cobra.Command{
		Use:          "castellan [command] [flags]",
		Short:        "The stateless token authentication service",
		Version:      version(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := loadOrInitConfig(configFilePath)
			if err != nil {
				return fmt.Errorf("failed to load configuration file: %w", err)
			}
			logger := observability.InitSlog(cfg)
			logger.DebugContext(cmd.Context(), "configuration loaded",
				slog.String("path", configFilePath),
			)
			slog.SetDefault(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(
		&configFilePath,
		"config", "c",
		configFilePath,
		"path to the configuration file",
	)

	cmd.AddCommand(
		serveCommand(),
		userCommand(),
	)

	return cmd
}

func loadOrInitConfig(configFilePath string) (*config.Config, error) {
	cfg, err := config.Load(configFilePath)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}

	resp, initErr := prompt(fmt.Sprintf("Config not found at %s. Create one? [y|N] ", configFilePath), false)
	if initErr != nil || string(resp) != "y" {
		return nil, errors.Join(err, initErr)
	}

	cfg = config.Default()
	cfg.SecretKey, err = newSecretKey()
	if err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	if err = os.WriteFile(configFilePath, data, 0600); err != nil { //nolint:mnd // owner rw access
		return nil, fmt.Errorf("failed to write config file to %s: %w", configFilePath, err)
	}
	return cfg, nil
}

// newSecretKey generates a fresh token signing key. The key is written to the
// config file; rotating it invalidates every outstanding token.
func newSecretKey() (string, error) {
	const keyLen = 48
	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate secret key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
