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

package resolver

import (
	"fmt"
	"testing"

	"github.com/oliworks/oliworks/pkg/assert"
)

func TestSlugify(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{
			input:    "Banda El Recodo",
			expected: "banda_el_recodo",
		},
		{
			input:    "banda el recodo",
			expected: "banda_el_recodo",
		},
		{
			input:    "BANDA   EL RECODO",
			expected: "banda_el_recodo",
		},
		{
			input:    "José Ángel",
			expected: "jose_angel",
		},
		{
			input:    "La Rusa (2)",
			expected: "la_rusa_2",
		},
		{
			input:    "  MS Nuevo  ",
			expected: "ms_nuevo",
		},
		{
			input:    "---",
			expected: "",
		},
		{
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("for input %s", tc.input), func(t *testing.T) {
			got := Slugify(tc.input)
			assert.Equal(t, got, tc.expected, "key mismatch")
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	key := Slugify("Banda El Recodo")
	assert.Equal(t, Slugify(key), key, "slugifying a slug should be a no-op")
}

func TestStripTrailingNumbers(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{
			input:    "banda_toro_pesado_99",
			expected: "banda_toro_pesado",
		},
		{
			input:    "la_rusa_2_3",
			expected: "la_rusa",
		},
		{
			input:    "artista_1a",
			expected: "artista_1a",
		},
		{
			input:    "sin_artista",
			expected: "sin_artista",
		},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("for input %s", tc.input), func(t *testing.T) {
			got := StripTrailingNumbers(tc.input)
			assert.Equal(t, got, tc.expected, "base key mismatch")
		})
	}
}

func TestPrettyFromKey(t *testing.T) {
	assert.Equal(t, PrettyFromKey("la_rusa"), "La Rusa", "pretty name mismatch")
	assert.Equal(t, PrettyFromKey("sin_artista"), "Sin Artista", "pretty name mismatch")
}

func TestResolveKey(t *testing.T) {
	candidates := []Candidate{
		{Key: "banda_el_recodo", DisplayName: "Banda El Recodo"},
		{Key: "la_rusa", DisplayName: "La Rusa"},
		{Key: "ms_nuevo", DisplayName: "MS Nuevo"},
	}

	testCases := []struct {
		input    string
		expected string
	}{
		// exact key
		{
			input:    "banda_el_recodo",
			expected: "banda_el_recodo",
		},
		// exact display name, case and accent insensitive
		{
			input:    "BANDA   EL RECODO",
			expected: "banda_el_recodo",
		},
		{
			input:    "banda el recodo",
			expected: "banda_el_recodo",
		},
		// base key after stripping the numeric suffix
		{
			input:    "La Rusa (2)",
			expected: "la_rusa",
		},
		// token subset against the display name
		{
			input:    "Rusa",
			expected: "la_rusa",
		},
		// no match mints a fresh key
		{
			input:    "Los Nuevos Rebeldes",
			expected: "los_nuevos_rebeldes",
		},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("for input %s", tc.input), func(t *testing.T) {
			got := ResolveKey(tc.input, candidates)
			assert.Equal(t, got, tc.expected, "resolved key mismatch")
		})
	}
}

func TestResolveKeyStability(t *testing.T) {
	var candidates []Candidate

	k1 := ResolveKey("Banda El Recodo", candidates)
	candidates = append(candidates, Candidate{Key: k1, DisplayName: "Banda El Recodo"})

	k2 := ResolveKey("banda el recodo", candidates)
	k3 := ResolveKey("BANDA   EL RECODO", candidates)

	assert.Equal(t, k2, k1, "key should be stable across casing")
	assert.Equal(t, k3, k1, "key should be stable across spacing")
}

func TestResolveKeyEmpty(t *testing.T) {
	assert.Equal(t, ResolveKey("", nil), "", "empty input should resolve to empty key")
}
