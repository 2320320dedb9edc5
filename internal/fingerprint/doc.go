// Package fingerprint derives the deterministic content identity of a
// requirement document.
//
// The fingerprint is the SHA-256 of the normalised title and the first
// 500 characters of the normalised description, joined by "::". It is a
// frozen wire format shared with other systems: any change to Normalize
// changes every stored hash.
//
// # Import Rules
//
//   - Can Import: Standard library, golang.org/x/text
//   - Cannot Import: Any internal/ package
package fingerprint
