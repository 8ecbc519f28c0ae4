package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/gophsync/internal/client/iocli"
)

// PassphraseEnv overrides every other passphrase source.
const PassphraseEnv = "GOPHSYNC_PASSPHRASE"

// PassphraseSources are the non-interactive passphrase sources.
type PassphraseSources struct {
	FromFile string
	FromArgs string
}

// readPassphrase retrieves the store passphrase with priority:
// 1. Environment variable GOPHSYNC_PASSPHRASE
// 2. File
// 3. Command-line parameter
// 4. Interactive prompt (fallback)
func readPassphrase(console iocli.IO, sources PassphraseSources) (string, error) {
	if env := os.Getenv(PassphraseEnv); env != "" {
		return env, nil
	}

	if sources.FromFile != "" {
		content, err := os.ReadFile(sources.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase file: %w", err)
		}
		// Убираем trailing newline/whitespace
		passphrase := strings.TrimSpace(string(content))
		if passphrase == "" {
			return "", errors.New("passphrase file is empty")
		}
		return passphrase, nil
	}

	if sources.FromArgs != "" {
		return sources.FromArgs, nil
	}

	passphrase, err := console.ReadPassword("Store passphrase: ")
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase from stdin: %w", err)
	}
	if passphrase == "" {
		return "", errors.New("passphrase cannot be empty")
	}
	return passphrase, nil
}
