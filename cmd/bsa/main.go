package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"bsa-go/internal/app"
	"bsa-go/internal/config"
	"bsa-go/internal/rule"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Report", "Fix").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// checkApplicable fails commands on hosts whose account database does not
// use the colon-delimited passwd format.
func checkApplicable() error {
	if !rule.Applicable(runtime.GOOS) {
		return fmt.Errorf("this rule does not apply to %s", runtime.GOOS)
	}
	return nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

var rootCmd = &cobra.Command{
	Use:   "bsa",
	Short: "Audit and block login-capable system accounts",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new host ID
		hostID := uuid.New().String()

		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:       %s\n", cfg.HostID)
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Account DB:    %s\n", cfg.Rule.PasswdPath)
		fmt.Printf("Rule Enabled:  %v\n", cfg.Rule.Enabled)
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage vault",
}

var configVaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify vault access",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("VaultCheck")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateVault(); err != nil {
			return fmt.Errorf("vault check failed: %w", err)
		}
		fmt.Println("Vault is accessible.")
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var configKeysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the snapshot encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("KeysInit")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := promptPassphrase("Passphrase for new private key: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupEncryption(pass); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Audit system accounts for login capability",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkApplicable(); err != nil {
			return err
		}

		a, err := newApp("Report")
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.Report()
		if err != nil {
			return err
		}

		if v.Compliant {
			fmt.Println("Compliant: all system accounts block login.")
			return nil
		}

		fmt.Printf("Non-compliant: %d system account(s) permit login.\n", len(v.Reasons))
		for _, reason := range v.Reasons {
			fmt.Printf("  %s\n", reason)
		}
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("non-compliant")
	},
}

// fix command
var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Block login for non-compliant system accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkApplicable(); err != nil {
			return err
		}

		a, err := newApp("Fix")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Fix()
		if err != nil {
			return fmt.Errorf("fix failed: %w", err)
		}

		fmt.Println(res.Detail)
		return nil
	},
}

// rollback command
var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Undo the most recent fix",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkApplicable(); err != nil {
			return err
		}

		a, err := newApp("Rollback")
		if err != nil {
			return err
		}
		defer a.Close()

		var decrypt rule.DecryptionContext
		if a.EncryptionConfigured() {
			pass, err := promptPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
			decrypt, err = a.Unlock(pass)
			if err != nil {
				return fmt.Errorf("unlocking private key: %w", err)
			}
		}

		res, err := a.Rollback(decrypt)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}

		fmt.Println(res.Detail)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View rule operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.Finished {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-10s  %s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultCheckCmd)
	configCmd.AddCommand(configKeysCmd)
	configKeysCmd.AddCommand(configKeysInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
