// Package integrity provides content hashing for staged artifacts and live files.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/agentic-project/agentic/pkg/model"
)

// ContentHash computes the SHA-256 hash of a byte sequence.
func ContentHash(data []byte) model.HashValue {
	hash := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(hash[:]))
}

// FileHash computes the SHA-256 hash of a file's content. The second return
// value is false when the file does not exist; that is not an error.
func FileHash(path string) (model.HashValue, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", false, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("hash target is a directory: %s", path)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", false, fmt.Errorf("read file: %w", err)
	}
	return model.HashValue(hex.EncodeToString(h.Sum(nil))), true, nil
}
