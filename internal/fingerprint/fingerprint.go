package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// DescriptionPrefix is how many normalised description characters
// contribute to the fingerprint.
const DescriptionPrefix = 500

// Separator joins the normalised title and description.
const Separator = "::"

// Fingerprint returns the 64-character lowercase hex identity of a
// (title, description) pair.
func Fingerprint(title, description string) string {
	key := Normalize(title) + Separator + Truncate(Normalize(description), DescriptionPrefix)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// FileHash hashes a whole file with CRLF line endings normalised to LF,
// so checkouts on different platforms compare equal.
func FileHash(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SameContent reports whether two document bodies are equal after
// normalisation.
func SameContent(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases the title and replaces every run of characters
// outside [a-z0-9] with a single dash. Empty results become "doc".
func Slug(title string) string {
	s := slugInvalid.ReplaceAllString(lower.String(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "doc"
	}
	return s
}

// DeriveFilename builds "{date}_{slug}_{hash[:8]}.md". An empty date
// means today in UTC.
func DeriveFilename(title, hash, date string) string {
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	short := hash
	if len(short) > 8 {
		short = short[:8]
	}
	return date + "_" + Slug(title) + "_" + short + ".md"
}

// EntryTitle returns the text of the first "# " line of a document,
// falling back to the file stem of its path.
func EntryTitle(path, text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
