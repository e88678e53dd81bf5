// Package main provides the checkconfig tool for verifying credentials
// before a retrieval run.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"outlookflat/internal/app"
	"outlookflat/internal/config"
	"outlookflat/internal/credential"
)

const defaultConfig = "configs/outlook.yaml"

var errChecksFailed = errors.New("configuration checks failed")

var (
	flagConfig      string
	flagSetPassword bool
	flagClearToken  bool
	flagInit        bool
)

var rootCmd = &cobra.Command{
	Use:   "checkconfig",
	Short: "Check that credentials are configured",
	Long: `Checkconfig reports which credential settings still hold placeholder
values and whether a password is available from the config, the environment
or the keyring.

Examples:
  checkconfig -c configs/outlook.yaml
  checkconfig --init -c configs/outlook.yaml
  echo "$PASSWORD" | checkconfig --set-password`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCheck,
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to YAML configuration file")
	rootCmd.Flags().BoolVar(&flagSetPassword, "set-password", false, "Read a password from stdin and store it in the keyring")
	rootCmd.Flags().BoolVar(&flagClearToken, "clear-token", false, "Remove the cached access token")
	rootCmd.Flags().BoolVar(&flagInit, "init", false, "Write a default config file and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if flagInit {
		path := flagConfig
		if path == "" {
			path = defaultConfig
		}

		if err := app.InitConfig(path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote default config to %s\n", path)

		return nil
	}

	path := flagConfig
	if path == "" {
		if _, err := os.Stat(defaultConfig); err == nil {
			path = defaultConfig
		}
	}

	cfg, err := app.LoadConfig(path, "")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if flagSetPassword {
		return setPassword(cmd.InOrStdin(), out, cfg)
	}

	authenticator := app.NewAuthenticator(cfg, app.NewLogger(cfg))

	if flagClearToken {
		if err := authenticator.ClearCache(); err != nil {
			return err
		}

		fmt.Fprintln(out, "✅ Cached token removed")
	}

	fmt.Fprintln(out, "🔍 Testing configuration...")

	failed := false

	for _, check := range cfg.CheckCredentials() {
		if check.OK() {
			fmt.Fprintf(out, "✅ %s: Configured\n", check.Name)
			continue
		}

		failed = true

		fmt.Fprintf(out, "❌ %s: %v\n", check.Name, check.Err)
	}

	if _, err := authenticator.Password(); err != nil {
		failed = true

		fmt.Fprintf(out, "❌ password: %v\n", err)
	} else {
		fmt.Fprintln(out, "✅ password: Available")
	}

	fmt.Fprintf(out, "ℹ️  Endpoint: %s\n", cfg.Graph.Endpoint())

	if failed {
		return errChecksFailed
	}

	fmt.Fprintln(out, "✅ Configuration looks good!")

	return nil
}

func setPassword(in io.Reader, out io.Writer, cfg *config.Config) error {
	if cfg.Auth.Username == "" || cfg.Auth.Username == config.PlaceholderUsername {
		return errors.New("set auth.username before storing a password")
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password on stdin")
	}

	store, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}

	if err := store.Set(credential.PasswordKey(cfg.Auth.Username), password); err != nil {
		return err
	}

	fmt.Fprintf(out, "✅ Password stored for %s\n", cfg.Auth.Username)

	return nil
}
