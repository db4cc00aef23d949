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

package presenters

import (
	"testing"
	"time"

	"github.com/oliworks/oliworks/pkg/assert"
)

func TestFormatTS(t *testing.T) {
	ts := time.Date(2023, 3, 14, 12, 30, 45, 123456789, time.UTC)
	assert.Equal(t, FormatTS(ts), "2023-03-14T12:30:45.123Z", "formatted timestamp mismatch")

	// non-UTC inputs must come out as UTC
	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, FormatTS(ts.In(loc)), "2023-03-14T12:30:45.123Z", "timezone should be normalized")
}

func TestFormatNullTS(t *testing.T) {
	assert.Equal(t, FormatNullTS(nil), "", "nil timestamp should be empty")

	ts := time.Date(2023, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, FormatNullTS(&ts), "2023-03-14T00:00:00.000Z", "formatted timestamp mismatch")
}

func TestParseTSRoundtrip(t *testing.T) {
	got, err := ParseTS("2023-03-14T12:30:45.123Z")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, FormatTS(got), "2023-03-14T12:30:45.123Z", "roundtrip mismatch")
}

func TestParseNullTS(t *testing.T) {
	got, err := ParseNullTS("")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil, got %v", got)
	}

	if _, err := ParseNullTS("not a timestamp"); err == nil {
		t.Error("expected an error for a malformed timestamp")
	}
}
