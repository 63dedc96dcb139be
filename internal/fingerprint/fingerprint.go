// Package fingerprint maps a host source directory and board onto the
// name of its build directory inside the VM.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
)

// HexLen is the length of a fingerprint in hex characters: 16 characters
// carry the first 64 bits of the digest.
const HexLen = 16

// Fingerprint identifies one (source directory, board) pair. It is the
// first 64 bits of a SHA-256 digest rendered as lowercase hex, safe as a
// directory name on both host and VM. Two distinct pairs never share a
// fingerprint within this tool's collision budget; a collision would be a
// bug, not a runtime condition.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Dir returns the build directory for f under the given VM base path.
func (f Fingerprint) Dir(base string) string {
	return path.Join(base, string(f))
}

// Compute derives the fingerprint for a normalized absolute source path
// and a board identifier. It is pure: same inputs, same output, no I/O.
// Callers pass the path through Normalize first so different spellings of
// the same directory agree.
func Compute(absPath, board string) Fingerprint {
	sum := sha256.Sum256([]byte(absPath + "\x00" + board))
	return Fingerprint(hex.EncodeToString(sum[:HexLen/2]))
}

// Normalize resolves a path to its canonical absolute form. Relative paths
// are anchored at the current working directory and symlinks are resolved,
// so "./app", "/work/app" and a symlink to either all yield one
// fingerprint.
func Normalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", p, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", p, err)
	}
	return resolved, nil
}
