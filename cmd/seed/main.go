// Command seed provisions an account and prints its API token. The token is
// shown exactly once; only a bcrypt hash is stored. Running it again for the
// same e-mail rotates the token.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	userrepo "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/user/repository"
	userservice "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/user/service"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/observability"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/config"
	"github.com/mlisboa17/assistente-pessoal-sub000/pkg/db"
)

func main() {
	cmd := &cobra.Command{
		Use:   "seed --email EMAIL",
		Short: "Provision an account and print its API token",
		Long: `Provision an account (or rotate the token of an existing one) and print
the plaintext API token. Exchange it for a JWT at POST /v1/auth/token.`,
		SilenceUsage: true,
		RunE:         runSeed,
	}
	cmd.Flags().String("email", "", "account e-mail (required)")
	cmd.Flags().String("name", "", "display name")
	_ = cmd.MarkFlagRequired("email")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := observability.NewLogger("warn")

	database, err := db.New(db.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
		MaxConnIdleTime: time.Minute,
	}, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	svc := userservice.New(userrepo.New(database.Pool), []byte(cfg.Auth.JWTSecret), logger)
	token, account, err := svc.Seed(cmd.Context(), email, name)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]string{
		"user_id":   account.ID.String(),
		"email":     account.Email,
		"api_token": token,
	})
}
