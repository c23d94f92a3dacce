package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"admem/internal/auth"
)

var (
	apikeyName  string
	apikeyEmail string
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new API key",
	Long: `Generates a new API key and prints the token once. Only a bcrypt hash
is stored; the token cannot be recovered later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer application.close()

		var userID string
		if apikeyEmail != "" {
			user, err := application.engine.EnsureUser(apikeyEmail, "")
			if err != nil {
				return err
			}
			userID = user.ID
		}

		token, prefix, err := auth.GenerateToken()
		if err != nil {
			return err
		}
		hash, err := auth.HashToken(token)
		if err != nil {
			return err
		}

		record, err := application.engine.CreateAPIKey(userID, apikeyName, prefix, hash)
		if err != nil {
			return err
		}

		fmt.Printf("Created key %s (%s)\n", record.ID, record.Name)
		fmt.Printf("Token (shown once, store it now):\n  %s\n", token)
		return nil
	},
}

var apikeyVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Check whether a token is valid and unrevoked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := args[0]
		prefix, err := auth.ParsePrefix(token)
		if err != nil {
			return fmt.Errorf("%w: %s", err, auth.MaskToken(token))
		}

		application, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer application.close()

		candidates, err := application.engine.APIKeysByPrefix(prefix)
		if err != nil {
			return err
		}
		for _, record := range candidates {
			if auth.VerifyToken(token, record.TokenHash) {
				if terr := application.engine.TouchAPIKey(record.ID); terr != nil {
					application.logger.Warn("Failed to stamp key use", map[string]interface{}{
						"key_id": record.ID,
						"error":  terr.Error(),
					})
				}
				fmt.Printf("Valid: %s (%s)\n", record.ID, record.Name)
				return nil
			}
		}
		return fmt.Errorf("no active key matches %s", auth.MaskToken(token))
	},
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer application.close()

		records, err := application.engine.ListAPIKeys()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No API keys.")
			return nil
		}
		for _, r := range records {
			state := "active"
			if r.RevokedAt != nil {
				state = "revoked"
			}
			fmt.Printf("%s  %-10s %s%s...  created %s  %s\n",
				r.ID, r.Name, auth.TokenPrefix, r.TokenPrefix,
				r.CreatedAt.Format("2006-01-02"), state)
		}
		return nil
	},
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer application.close()

		if err := application.engine.RevokeAPIKey(args[0]); err != nil {
			return err
		}
		fmt.Printf("Revoked %s\n", args[0])
		return nil
	},
}

func init() {
	apikeyCreateCmd.Flags().StringVar(&apikeyName, "name", "default", "Human-readable key name")
	apikeyCreateCmd.Flags().StringVar(&apikeyEmail, "user", "", "Email of the user this key belongs to")
	apikeyCmd.AddCommand(apikeyCreateCmd)
	apikeyCmd.AddCommand(apikeyVerifyCmd)
	apikeyCmd.AddCommand(apikeyListCmd)
	apikeyCmd.AddCommand(apikeyRevokeCmd)
	rootCmd.AddCommand(apikeyCmd)
}
