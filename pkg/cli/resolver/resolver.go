/* Copyright 2025 OliWorks Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package resolver maps human-entered artist names to stable local keys.
// The same conceptual entity gets typed inconsistently across sessions;
// resolution must converge on one key so parent rows are never duplicated.
package resolver

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// The fallback artist for records that reference no artist at all
const (
	DefaultArtistKey  = "sin_artista"
	DefaultArtistName = "Sin artista"
)

var (
	regexNonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
	regexSeparators     = regexp.MustCompile(`_+`)
	regexTrailingNumber = regexp.MustCompile(`(_\d+)+$`)
	regexSpaces         = regexp.MustCompile(`\s+`)
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func removeAccents(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return out
}

// Slugify derives a stable local key from a display name.
// "Banda El Recodo" becomes "banda_el_recodo".
func Slugify(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}

	s = strings.ToLower(removeAccents(s))
	s = regexNonAlnum.ReplaceAllString(s, "_")
	s = regexSeparators.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// NormalizeName canonicalizes a display name for accent and case
// insensitive comparison.
func NormalizeName(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}
	s = strings.ToLower(removeAccents(s))
	return strings.TrimSpace(regexSpaces.ReplaceAllString(s, " "))
}

// StripTrailingNumbers drops numeric suffixes from a key.
// "banda_toro_pesado_99" becomes "banda_toro_pesado".
func StripTrailingNumbers(key string) string {
	return regexTrailingNumber.ReplaceAllString(key, "")
}

// PrettyFromKey turns a key back into a human-readable name.
// "la_rusa" becomes "La Rusa".
func PrettyFromKey(key string) string {
	s := strings.TrimSpace(strings.ReplaceAll(key, "_", " "))
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Candidate is a known entity the resolver can match against
type Candidate struct {
	Key         string
	DisplayName string
}

// ResolveKey maps user input to the key of an existing candidate, or to
// a freshly slugified key if nothing matches. Matches are tried in
// order: exact key, exact display name, base key with numeric suffixes
// stripped, then a token-subset match against display names.
func ResolveKey(input string, candidates []Candidate) string {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return ""
	}

	wantedKey := Slugify(raw)
	wantedName := NormalizeName(raw)

	for _, c := range candidates {
		if c.Key == wantedKey {
			return c.Key
		}
	}

	for _, c := range candidates {
		if NormalizeName(c.DisplayName) == wantedName {
			return c.Key
		}
	}

	if baseWanted := StripTrailingNumbers(wantedKey); baseWanted != "" && baseWanted != wantedKey {
		for _, c := range candidates {
			if c.Key == baseWanted {
				return c.Key
			}
		}

		basePretty := NormalizeName(PrettyFromKey(baseWanted))
		for _, c := range candidates {
			if NormalizeName(c.DisplayName) == basePretty {
				return c.Key
			}
		}
	}

	// Soft match: every input token appears in the display name. Catches
	// inputs like "Banda Toro Pesado (99)".
	tokens := strings.Fields(wantedName)
	if len(tokens) > 0 {
		for _, c := range candidates {
			dn := NormalizeName(c.DisplayName)
			all := true
			for _, t := range tokens {
				if !strings.Contains(dn, t) {
					all = false
					break
				}
			}
			if all {
				return c.Key
			}
		}
	}

	return wantedKey
}
