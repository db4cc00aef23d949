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

// Package presenters maps database models to response payloads
package presenters

import (
	"time"

	"github.com/pkg/errors"
)

// timestampLayout is the wire format for timestamps. Clients compare
// these strings lexicographically, so the millisecond precision and
// the trailing Z are load bearing.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTS formats the given timestamp for the wire
func FormatTS(ts time.Time) string {
	return ts.UTC().Format(timestampLayout)
}

// FormatNullTS formats the given nullable timestamp for the wire. A nil
// timestamp becomes an empty string.
func FormatNullTS(ts *time.Time) string {
	if ts == nil {
		return ""
	}

	return FormatTS(*ts)
}

// ParseTS parses a wire timestamp
func ParseTS(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing timestamp '%s'", s)
	}

	return t.UTC(), nil
}

// ParseNullTS parses a wire timestamp that may be empty
func ParseNullTS(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := ParseTS(s)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
