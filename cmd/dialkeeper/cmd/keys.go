package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/solatis/dialkeeper/internal/core/auth"
	"github.com/solatis/dialkeeper/internal/core/config"
	"github.com/solatis/dialkeeper/internal/core/db"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key for an account and print it once",
	RunE:  runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke API_KEY_ID",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysRevokeCmd)
	keysCreateCmd.Flags().String("account", "", "account ID the key authenticates as (empty for global rules)")
	keysCreateCmd.Flags().String("secret-id", "", "HMAC secret to sign with (default: first configured)")
}

// pickSecret returns the requested secret, or the lowest secret ID when
// none is requested.
func pickSecret(secrets map[string][]byte, secretID string) (string, []byte, error) {
	if len(secrets) == 0 {
		return "", nil, fmt.Errorf("no HMAC secrets configured (set DK_HMAC_SECRET environment variable)")
	}
	if secretID != "" {
		secret, ok := secrets[secretID]
		if !ok {
			return "", nil, fmt.Errorf("HMAC secret %s not configured", secretID)
		}
		return secretID, secret, nil
	}

	ids := make([]string, 0, len(secrets))
	for id := range secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0], secrets[ids[0]], nil
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	requested, _ := cmd.Flags().GetString("secret-id")
	secretID, secret, err := pickSecret(secrets, requested)
	if err != nil {
		return err
	}

	_, database, queries, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	apiKey, hash, err := auth.GenerateAPIKey(secretID, secret)
	if err != nil {
		return err
	}
	account, _ := cmd.Flags().GetString("account")
	id, err := db.NewAPIKeyStore(queries).CreateAPIKey(cmd.Context(), account, hash)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "api_key_id: %s\n", id)
	fmt.Fprintf(out, "api_key:    %s\n", apiKey)
	fmt.Fprintln(out, "The key is not stored and cannot be shown again.")
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	_, database, queries, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.NewAPIKeyStore(queries).RevokeAPIKey(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
	return nil
}
