// Package keyring keeps restreak secrets in the OS keyring.
package keyring

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/restreak/internal/constants"
)

var (
	ErrNotFound           = errors.New("secret not found in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
	ErrUnknownSecret      = errors.New("unknown secret")
)

// Secret names a stored credential. The value is the keyring user.
type Secret string

const (
	PostgresConnection Secret = constants.DefaultKeyringUser
	GeminiAPIKey       Secret = constants.MentorKeyringUser
)

var aliases = map[string]Secret{
	"postgres": PostgresConnection,
	"gemini":   GeminiAPIKey,
}

// ParseSecret maps a command-line name ("postgres", "gemini") to a Secret.
func ParseSecret(name string) (Secret, error) {
	if s, ok := aliases[name]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w %q (expected one of %v)", ErrUnknownSecret, name, Names())
}

func Names() []string {
	names := make([]string, 0, len(aliases))
	for n := range aliases {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func Get(s Secret) (string, error) {
	v, err := keyring.Get(constants.AppName, string(s))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

func Set(s Secret, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", s)
	}
	if err := keyring.Set(constants.AppName, string(s), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", s, err)
	}
	return nil
}

func Delete(s Secret) error {
	if err := keyring.Delete(constants.AppName, string(s)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", s, err)
	}
	return nil
}

// Lookup returns the secret, or "" when it is absent or the keyring is unusable.
func Lookup(s Secret) string {
	v, err := Get(s)
	if err != nil {
		return ""
	}
	return v
}

// IsAvailable is a best-effort probe: a not-found read still proves the keyring works.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
