package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/restreak/internal/cli"
	"github.com/julianstephens/restreak/internal/keyring"
	"github.com/julianstephens/restreak/internal/storage/postgres"
)

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show a stored secret (masked)."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
	Status KeyringStatusCmd `cmd:"" help:"Check keyring availability and stored secrets."`
}

// KeyringSetCmd stores the postgres connection string or the Gemini API key.
type KeyringSetCmd struct {
	Secret string `arg:"" enum:"postgres,gemini" help:"Secret to store (postgres|gemini)."`
	Value  string `arg:"" help:"Secret value."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	s, err := keyring.ParseSecret(cmd.Secret)
	if err != nil {
		return err
	}

	if strings.TrimSpace(cmd.Value) == "" {
		return errors.New("secret value cannot be empty")
	}
	if s == keyring.PostgresConnection {
		if err := postgres.ValidateConnString(cmd.Value); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			ctx.Println("⚠️  Warning: Connection string contains embedded credentials.")
			ctx.Println("   It will be stored as-is in the encrypted OS keyring.")
		}
	}

	if err := keyring.Set(s, cmd.Value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", cmd.Secret, err)
	}
	ctx.Printf("✓ %s stored successfully in OS keyring\n", cmd.Secret)
	return nil
}

type KeyringGetCmd struct {
	Secret string `arg:"" enum:"postgres,gemini" help:"Secret to show (postgres|gemini)."`
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	s, err := keyring.ParseSecret(cmd.Secret)
	if err != nil {
		return err
	}
	v, err := keyring.Get(s)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s secret found in keyring. Use 'restreak keyring set %s' to store one", cmd.Secret, cmd.Secret)
		}
		return fmt.Errorf("failed to retrieve %s from keyring: %w", cmd.Secret, err)
	}

	if s == keyring.PostgresConnection {
		ctx.Println(MaskPassword(v))
	} else {
		ctx.Println(MaskKey(v))
	}
	return nil
}

type KeyringDeleteCmd struct {
	Secret string `arg:"" enum:"postgres,gemini" help:"Secret to delete (postgres|gemini)."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	s, err := keyring.ParseSecret(cmd.Secret)
	if err != nil {
		return err
	}
	if err := keyring.Delete(s); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s secret found in keyring", cmd.Secret)
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", cmd.Secret, err)
	}
	ctx.Printf("✓ %s deleted from OS keyring\n", cmd.Secret)
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Println("❌ OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	ctx.Println("✓ OS keyring is available")
	for _, name := range keyring.Names() {
		s, _ := keyring.ParseSecret(name)
		if keyring.Lookup(s) != "" {
			ctx.Printf("✓ %s is stored\n", name)
		} else {
			ctx.Printf("ℹ %s is not stored\n", name)
		}
	}
	return nil
}

// MaskPassword hides the password in URL or key=value connection strings.
func MaskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		idx := strings.Index(connStr, "://")
		rest := connStr[idx+3:]
		if at := strings.LastIndex(rest, "@"); at != -1 {
			userInfo := rest[:at]
			if colon := strings.Index(userInfo, ":"); colon != -1 {
				return connStr[:idx+3] + userInfo[:colon] + ":****" + rest[at:]
			}
		}
		return connStr
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		for i, p := range parts {
			if strings.HasPrefix(p, "password=") {
				parts[i] = "password=****"
			}
		}
		return strings.Join(parts, " ")
	}
	return connStr
}

// MaskKey keeps only the last four characters of an API key.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
