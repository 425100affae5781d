package binary

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// LoadKeyring reads a GPG public keyring from disk. Armored and binary
// keyrings are both accepted. An empty path returns a nil keyring, which
// disables signature verification.
func LoadKeyring(keyringPath string) (openpgp.EntityList, error) {
	if keyringPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	return ReadKeyring(data)
}

// ReadKeyring parses an in-memory GPG public keyring.
func ReadKeyring(data []byte) (openpgp.EntityList, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}
