package election

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	nonIDChars   = regexp.MustCompile(`[^-_A-Za-z0-9]+`)
	validIDChars = regexp.MustCompile(`^[-_A-Za-z0-9]+$`)
)

// MakeID derives a stable identifier from display text: the text with
// non-identifier runs replaced by dashes, followed by a short content hash.
// Text is NFC-normalized first so equivalent encodings share an id.
func MakeID(text string) string {
	text = norm.NFC.String(text)
	sum := sha256.Sum256([]byte(text))
	return nonIDChars.ReplaceAllString(text, "-") + "-" + hex.EncodeToString(sum[:])[:8]
}

// SanitizeIDPart strips every character that may not appear in an id.
func SanitizeIDPart(s string) string {
	return nonIDChars.ReplaceAllString(s, "")
}

// ValidateID checks an id against the general identifier shape rules.
func ValidateID(id string) error {
	switch {
	case id == "":
		return errors.New("IDs must not be empty")
	case strings.HasPrefix(id, "_"):
		return errors.New("IDs may not start with an underscore")
	case !validIDChars.MatchString(id):
		return errors.New("IDs may only contain letters, numbers, dashes, and underscores")
	}
	return nil
}
