// Package idgen generates snapshot version identifiers backed by nanoid.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// VersionPrefix is prepended to every snapshot version.
const VersionPrefix = "snap-"

// alphabet is the character set of the random part. Lower case only, so
// versions are safe in file names on case-insensitive filesystems.
const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// versionLength is the number of random characters after the prefix.
const versionLength = 12

// NewVersion returns a fresh snapshot version such as "snap-k3v9x0q2m1ab".
func NewVersion() (string, error) {
	id, err := nanoid.Generate(alphabet, versionLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return VersionPrefix + id, nil
}

// IsVersion reports whether s has the shape of a snapshot version.
func IsVersion(s string) bool {
	rest, ok := strings.CutPrefix(s, VersionPrefix)
	if !ok || len(rest) != versionLength {
		return false
	}
	for _, r := range rest {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
