package listings

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 255

// Slugify lowercases value, strips accents and joins words with hyphens.
func Slugify(value string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), value)
	if err != nil {
		folded = value
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || r == '_' || unicode.IsSpace(r):
			pendingDash = true
		}
	}
	out := b.String()
	if len(out) > maxSlugLength {
		out = strings.TrimRight(out[:maxSlugLength], "-")
	}
	return out
}

// BaseSlug derives the slug root for a listing, falling back to vehicle facts
// and finally to random hex.
func BaseSlug(title, vehicleMake, model string, year int) string {
	if slug := Slugify(title); slug != "" {
		return slug
	}
	if slug := Slugify(fmt.Sprintf("%s-%s-%d", vehicleMake, model, year)); slug != "" && slug != strconv.Itoa(year) {
		return slug
	}
	return randomSlug()
}

// SlugCandidate returns base for attempt 1 and base-N afterwards.
func SlugCandidate(base string, attempt int) string {
	if attempt <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, attempt)
}

func randomSlug() string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "listing"
	}
	return hex.EncodeToString(buf)
}
