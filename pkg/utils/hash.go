package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// URLDigest computes the xxhash64 hex digest of a source URL.
// This is the public naming contract for assets whose URL path carries no
// extension: the same URL must map to the same digest across runs and
// processes.
func URLDigest(rawURL string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(rawURL))
}

// CalculateFileSHA256 computes the SHA-256 hash of a file's content.
func CalculateFileSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
