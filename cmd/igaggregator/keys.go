package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"igaggregator/pkg/auth"
	"igaggregator/pkg/ui"
)

// keyValue lets scripts pass the key without a prompt
var keyValue string

// keysCmd represents the keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage stored API keys",
	Long: `Manage the API key pool kept outside the config file.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - The INSTAGRAM_API_KEYS environment variable (read only)

Stored keys are used in the order they were added.`,
}

var keysAddCmd = &cobra.Command{
	Use:   "add <label>",
	Short: "Store an API key under a label",
	Example: `  # Prompt for the key without echo
  igaggregator keys add primary

  # Non-interactive
  igaggregator keys add backup --key "$KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: runKeysAdd,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored API keys (masked)",
	Args:  cobra.NoArgs,
	RunE:  runKeysList,
}

var keysRemoveCmd = &cobra.Command{
	Use:     "remove <label>",
	Aliases: []string{"rm"},
	Short:   "Remove a stored API key",
	Args:    cobra.ExactArgs(1),
	RunE:    runKeysRemove,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysAddCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysRemoveCmd)

	keysAddCmd.Flags().StringVar(&keyValue, "key", "", "API key value (prompted for when empty)")
}

func runKeysAdd(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	label := strings.TrimSpace(args[0])
	key := strings.TrimSpace(keyValue)
	if key == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "API key for %q: ", label)
		key, err = readSecret(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
	}

	cred := &auth.Credential{Label: label, Key: key}
	if err := manager.Store(cred); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Key saved: %s (%s)", cred.Label, auth.SanitizeCredential(cred).Key))
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	return listCredentials(manager, cmd.OutOrStdout())
}

func listCredentials(manager *auth.Manager, w io.Writer) error {
	creds, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	if len(creds) == 0 {
		ui.PrintInfo("No stored keys", "use 'igaggregator keys add <label>' to add one")
		return nil
	}

	for i, cred := range creds {
		masked := auth.SanitizeCredential(cred)
		fmt.Fprintf(w, "%d. %-16s %s  added %s\n", i+1, masked.Label, masked.Key,
			masked.AddedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runKeysRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Key removed: " + args[0])
	return nil
}

// readSecret reads one line without echo when in is a terminal
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
