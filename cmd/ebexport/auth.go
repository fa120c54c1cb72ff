package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"educabiz-exporter/pkg/auth"
	"educabiz-exporter/pkg/config"
	"educabiz-exporter/pkg/educabiz"
	"educabiz-exporter/pkg/logger"
	"educabiz-exporter/pkg/ui"
)

var (
	authSlug   string
	skipVerify bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Educabiz credentials",
	Long: `Manage stored Educabiz credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Educabiz credentials securely",
	Long: `Store your Educabiz login in the system keychain or encrypted file.

You will be prompted for:
  - The portal slug (the <slug> in https://<slug>.educabiz.com), unless --slug is set
  - Your username (if not provided)
  - Your password (hidden)

The login is checked against the portal before it is saved unless
--no-verify is given.`,
	Example: `  # Interactive login
  ebexport auth login

  # Login with username
  ebexport auth login --slug happykids parent@example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [[slug/]username]",
	Short: "Remove stored credentials",
	Long: `Remove stored Educabiz credentials.

If no account is given, you will be shown a list of stored accounts to
choose from. You can also remove all accounts at once.`,
	Example: `  # Interactive logout
  ebexport auth logout

  # Logout specific account
  ebexport auth logout happykids/parent@example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored Educabiz accounts with masked passwords.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	authCmd.PersistentFlags().StringVar(&authSlug, "slug", "", "portal slug")
	loginCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "store the credentials without trying them")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err)
		return reportedError{err}
	}

	reader := bufio.NewReader(os.Stdin)

	slugValue := authSlug
	if slugValue == "" {
		slugValue = prompt(reader, "🏫 Portal slug (<slug>.educabiz.com): ")
	}
	var usernameValue string
	if len(args) > 0 {
		usernameValue = strings.TrimSpace(args[0])
	} else {
		usernameValue = prompt(reader, "👤 Username: ")
	}
	if slugValue == "" || usernameValue == "" {
		ui.PrintError("Slug and username are required")
		return reportedError{auth.ErrInvalidCredentials}
	}

	if existing, _ := manager.Retrieve(slugValue, usernameValue); existing != nil {
		answer := prompt(reader, fmt.Sprintf("\n⚠️  Account '%s' already exists. Update password? (y/N): ", existing.Key()))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	fmt.Fprint(ui.Output, "🔐 Password: ")
	password, err := readPassword(reader)
	if err != nil {
		ui.PrintError("Failed to read password", err)
		return reportedError{err}
	}

	account := &auth.Account{
		Slug:         strings.ToLower(slugValue),
		Username:     usernameValue,
		Password:     password,
		LastModified: time.Now(),
	}

	if !skipVerify {
		fmt.Fprintln(ui.Output, "\n🔎 Checking the login with the portal...")
		if err := verifyLogin(cmd.Context(), account); err != nil {
			ui.PrintError("Login check failed", err)
			fmt.Fprintln(ui.Output, "Use --no-verify to store the credentials anyway.")
			return reportedError{err}
		}
	}

	fmt.Fprintln(ui.Output, "\n💾 Storing credentials securely...")
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err)
		return reportedError{err}
	}

	ui.PrintSuccess("Account saved: " + account.Key())

	fmt.Fprintln(ui.Output, "\n📖 Quick Start:")
	fmt.Fprintf(ui.Output, "   $ ebexport export --slug %s --child-id <id> --since 2024-01-01\n", account.Slug)
	fmt.Fprintln(ui.Output, "\n   Use this account explicitly:")
	fmt.Fprintf(ui.Output, "   $ ebexport export --account %s\n", account.Key())
	fmt.Fprintln(ui.Output, "\n⚠️  Never share your credentials or config files!")
	return nil
}

// verifyLogin signs in once with the account and discards the session
func verifyLogin(ctx context.Context, account *auth.Account) error {
	cfg := config.DefaultConfig()
	cfg.Educabiz.Slug = account.Slug

	client, err := educabiz.NewClient(cfg.BaseURL(), cfg.HTTP.Timeout,
		educabiz.WithLogger(logger.NewNopLogger()),
		educabiz.WithUserAgent(cfg.Educabiz.UserAgent))
	if err != nil {
		return err
	}

	_, err = educabiz.NewAuthenticator(client, nil).Authenticate(ctx, account.Username, account.Password)
	return err
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err)
		return reportedError{err}
	}

	if len(args) > 0 {
		slugValue, usernameValue := splitAccount(args[0], authSlug)
		return removeAccount(manager, slugValue, usernameValue)
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintWarning("No stored accounts found")
		return nil
	}

	reader := bufio.NewReader(os.Stdin)

	if len(accounts) == 1 {
		account := accounts[0]
		answer := prompt(reader, fmt.Sprintf("Remove account '%s'? (y/N): ", account.Key()))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
		return removeAccount(manager, account.Slug, account.Username)
	}

	fmt.Fprintln(ui.Output, "Select account to remove:")
	for i, account := range accounts {
		fmt.Fprintf(ui.Output, "  %d. %s\n", i+1, account.Key())
	}
	fmt.Fprintf(ui.Output, "  %d. Remove all accounts\n", len(accounts)+1)
	fmt.Fprintf(ui.Output, "  0. Cancel\n\n")

	var choice int
	fmt.Sscanf(prompt(reader, "Choice: "), "%d", &choice)

	switch {
	case choice == 0:
		return nil
	case choice == len(accounts)+1:
		if prompt(reader, "Remove ALL accounts? This cannot be undone! (yes/N): ") != "yes" {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove all accounts", err)
			return reportedError{err}
		}
		ui.PrintSuccess("All accounts removed")
		return nil
	case choice > 0 && choice <= len(accounts):
		account := accounts[choice-1]
		return removeAccount(manager, account.Slug, account.Username)
	default:
		ui.PrintError("Invalid choice")
		return reportedError{fmt.Errorf("invalid choice %d", choice)}
	}
}

func removeAccount(manager *auth.Manager, slugValue, usernameValue string) error {
	if err := manager.Delete(slugValue, usernameValue); err != nil {
		ui.PrintError("Failed to remove account", err)
		return reportedError{err}
	}
	ui.PrintSuccess("Account removed: " + auth.AccountKey(slugValue, usernameValue))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err)
		return reportedError{err}
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err)
		return reportedError{err}
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'ebexport auth login' to add an account")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Fprintln(ui.Output)

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(ui.Output, "%d. Portal: %s\n", i+1, sanitized.Slug)
		fmt.Fprintf(ui.Output, "   Username: %s\n", sanitized.Username)
		fmt.Fprintf(ui.Output, "   Password: %s\n", sanitized.Password)
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(ui.Output, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(ui.Output)
	}
	return nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Fprint(ui.Output, label)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readPassword reads a password from stdin without echoing
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(ui.Output)
		if err == nil {
			return string(password), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
