package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/keepmind9/discordkit/internal/config"
	"github.com/keepmind9/discordkit/internal/logger"
	"github.com/spf13/cobra"
)

var (
	validateConfigFile string
	validateShow       bool
	validateJSON       bool

	errInvalidConfig = errors.New("configuration is invalid")
)

// ValidationResult represents the validation result
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Config      string   `json:"config"`
	Credentials string   `json:"credentials,omitempty"`
	Intents     int      `json:"intents,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate discordkit configuration file",
	Long: `Validate the discordkit configuration file without connecting to Discord.

This command checks:
  - YAML syntax
  - Environment variable references
  - Credentials
  - Durations, intents and presence status
  - Request buffer settings

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile := validateConfigFile
		if configFile == "" {
			configFile = findConfigFile()
		}
		if configFile == "" {
			return fmt.Errorf("no configuration file found, specify one with --config")
		}

		result, cfg := validateFile(configFile)
		out := cmd.OutOrStdout()
		if validateShow && cfg != nil {
			showConfig(out, cfg)
		}
		if err := outputValidationResult(out, result, validateJSON); err != nil {
			return err
		}
		if !result.Valid {
			return errInvalidConfig
		}
		return nil
	},
}

// findConfigFile returns the first default location that exists.
func findConfigFile() string {
	for _, loc := range []string{
		"config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/discordkit/config.yaml"),
		"/etc/discordkit/config.yaml",
	} {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func validateFile(configFile string) (ValidationResult, *config.Config) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return ValidationResult{
			Valid:  false,
			Config: configFile,
			Errors: []string{err.Error()},
		}, nil
	}

	intents, _ := cfg.Intents()
	return ValidationResult{
		Valid:       true,
		Config:      configFile,
		Credentials: credentialsKind(cfg),
		Intents:     int(intents),
		Warnings:    validateConfigDetails(cfg),
	}, cfg
}

func credentialsKind(cfg *config.Config) string {
	if cfg.Discord.Token != "" {
		return "token"
	}
	return "legacy"
}

func validateConfigDetails(cfg *config.Config) []string {
	var warnings []string

	if cfg.Discord.Token == "" {
		warnings = append(warnings, "email and password login is rejected by Discord, configure discord.token")
	} else if cfg.Discord.Email != "" || cfg.Discord.Password != "" {
		warnings = append(warnings, "discord.email and discord.password are ignored when discord.token is set")
	}
	if cfg.Discord.Reconnect != nil && !*cfg.Discord.Reconnect {
		warnings = append(warnings, "reconnect is disabled, the bot stops on the first gateway error")
	}
	if rate := cfg.BufferOptions().Rate; rate > 50 {
		warnings = append(warnings, fmt.Sprintf("buffer.rate %.1f exceeds Discord's global limit of 50 requests per second", rate))
	}
	if cfg.Discord.Daemon && cfg.Announce.Channel == "" && cfg.Presence.Avatar == "" && cfg.Presence.Username == "" {
		warnings = append(warnings, "daemon mode without announce or account changes exits right after login")
	}
	return warnings
}

func showConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Discord:")
	fmt.Fprintf(w, "  - token: %s\n", logger.MaskSecret(cfg.Discord.Token))
	fmt.Fprintf(w, "  - connect_timeout: %s\n", cfg.Discord.ConnectTimeout)
	fmt.Fprintf(w, "  - ping_timeout: %s\n", cfg.Discord.PingTimeout)
	fmt.Fprintf(w, "  - daemon: %v\n", cfg.Discord.Daemon)
	fmt.Fprintf(w, "Presence: %s", cfg.Presence.Status)
	if cfg.Presence.Game != "" {
		fmt.Fprintf(w, " (playing %s)", cfg.Presence.Game)
	}
	fmt.Fprintln(w)
	if cfg.Announce.Channel != "" {
		fmt.Fprintf(w, "Announce: channel %s\n", cfg.Announce.Channel)
	}
	if b := cfg.BufferOptions(); b.Rate > 0 {
		fmt.Fprintf(w, "Buffer: %.1f req/s, burst %d, %d retries\n", b.Rate, b.Burst, b.MaxRetries)
	} else {
		fmt.Fprintf(w, "Buffer: unpaced, %d retries\n", b.MaxRetries)
	}
	if cfg.Metrics.Addr != "" {
		fmt.Fprintf(w, "Metrics: %s\n", cfg.Metrics.Addr)
	}
	fmt.Fprintln(w)
}

func outputValidationResult(w io.Writer, result ValidationResult, jsonFormat bool) error {
	if jsonFormat {
		output, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	if result.Valid {
		fmt.Fprintln(w, "✓ Configuration is valid")
		fmt.Fprintf(w, "  - Config: %s\n", result.Config)
		fmt.Fprintf(w, "  - Credentials: %s\n", result.Credentials)
		if len(result.Warnings) > 0 {
			fmt.Fprintln(w, "\n⚠️  Warnings:")
			for _, warning := range result.Warnings {
				fmt.Fprintf(w, "  - %s\n", warning)
			}
		}
		return nil
	}

	fmt.Fprintln(w, "❌ Configuration validation failed:")
	for _, errMsg := range result.Errors {
		fmt.Fprintf(w, "  - %s\n", errMsg)
	}
	return nil
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "config", "c", "", "Configuration file path")
	validateCmd.Flags().BoolVar(&validateShow, "show", false, "Show configuration details")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
}
