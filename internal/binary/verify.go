package binary

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// Verifier handles cryptographic verification of release artifacts
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a verifier. A nil keyring disables signature checks;
// digest checks work regardless.
func NewVerifier(keyring openpgp.EntityList) *Verifier {
	return &Verifier{keyring: keyring}
}

// HasKeyring reports whether detached signatures can be checked
func (v *Verifier) HasKeyring() bool {
	return v != nil && len(v.keyring) > 0
}

// VerifyDigest compares the SHA-256 of the file at filePath with expected
// (hex, case-insensitive). It returns the actual digest either way.
func (v *Verifier) VerifyDigest(filePath, expected string) (string, error) {
	actual, err := calculateSHA256(filePath)
	if err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return actual, fmt.Errorf("checksum mismatch:\nactual:   %s\nexpected: %s", actual, expected)
	}
	return actual, nil
}

// VerifyDetached checks a detached GPG signature over message. Armored and
// binary signatures are both accepted.
func (v *Verifier) VerifyDetached(message, signature []byte) error {
	if !v.HasKeyring() {
		return fmt.Errorf("no keyring loaded")
	}

	_, err := openpgp.CheckArmoredDetachedSignature(v.keyring, bytes.NewReader(message), bytes.NewReader(signature), nil)
	if err != nil {
		_, err = openpgp.CheckDetachedSignature(v.keyring, bytes.NewReader(message), bytes.NewReader(signature), nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// findChecksum finds the checksum for filename in a checksum list.
// Format: "abc123def456  filename" or "abc123def456 *filename" (binary mode).
func findChecksum(list []byte, filename string) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(list))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		name := strings.TrimPrefix(parts[1], "*")
		if name == filename || path.Base(name) == filename {
			sum := strings.ToLower(parts[0])
			if _, err := hex.DecodeString(sum); err != nil || len(sum) != sha256.Size*2 {
				return "", fmt.Errorf("malformed checksum for %s: %q", filename, parts[0])
			}
			return sum, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum list: %w", err)
	}

	return "", fmt.Errorf("checksum not found for %s", filename)
}
