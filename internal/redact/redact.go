// Package redact provides helpers for deciding what to censor and how to
// censor it in output streams.
package redact

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Asterisks returns a run of '*' the same length as the match, so that the
// layout of the surrounding text survives censorship.
func Asterisks(match []byte) []byte {
	return bytes.Repeat([]byte{'*'}, len(match))
}

// Flatten walks a value parsed from a credential document and collects every
// leaf string it contains. Maps and lists are descended; scalars other than
// strings are ignored (a numeric project number is a poor needle, and masking
// "0" everywhere would destroy output).
func Flatten(content any) []string {
	var leaves []string
	flatten(content, &leaves)
	return leaves
}

func flatten(content any, leaves *[]string) {
	switch v := content.(type) {
	case string:
		*leaves = append(*leaves, v)
	case map[string]any:
		for _, inner := range v {
			flatten(inner, leaves)
		}
	case []any:
		for _, inner := range v {
			flatten(inner, leaves)
		}
	}
}

// Variants returns the encodings of word that should be censored alongside
// the word itself: the JSON-quoted form (what the secret looks like when a
// credential document is printed whole) and the escaped form of each. A word
// unchanged by quoting and escaping yields only itself.
func Variants(word string) []string {
	set := map[string]struct{}{word: {}}

	if quoted, err := json.Marshal(word); err == nil {
		set[string(quoted)] = struct{}{}
		set[escape(string(quoted))] = struct{}{}
	}
	set[escape(word)] = struct{}{}

	variants := make([]string, 0, len(set))
	for v := range set {
		variants = append(variants, v)
	}
	return variants
}

// escape renders control and non-ASCII bytes as backslash escapes, matching
// what a secret looks like after passing through an escaping formatter.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r > 0x7e:
			for _, c := range []byte(string(r)) {
				b.WriteByte('\\')
				b.WriteByte('x')
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0xf])
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

const hexDigits = "0123456789abcdef"
