package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// HashReader consumes r and returns the hex encoded SHA-256 digest together
// with the number of bytes read.
func HashReader(r io.Reader) (string, int64, error) {
	return CopyAndHash(io.Discard, r)
}

// HashFile hashes the file at path
func HashFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	hash, size, err := HashReader(file)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hash, size, nil
}

// CopyAndHash copies src into dst and hashes the content on the way
func CopyAndHash(dst io.Writer, src io.Reader) (string, int64, error) {
	digest := sha256.New()

	written, err := io.Copy(io.MultiWriter(dst, digest), src)
	if err != nil {
		return "", written, err
	}
	return hex.EncodeToString(digest.Sum(nil)), written, nil
}
