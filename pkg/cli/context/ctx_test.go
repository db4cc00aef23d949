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

package context

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oliworks/oliworks/pkg/assert"
	"github.com/oliworks/oliworks/pkg/cli/consts"
)

func TestInitDirs(t *testing.T) {
	configHome := t.TempDir()
	dataHome := t.TempDir()
	paths := Paths{
		Home:   t.TempDir(),
		Cache:  t.TempDir(),
		Config: configHome,
		Data:   dataHome,
	}

	if err := InitDirs(paths); err != nil {
		t.Fatal(err)
	}

	for _, base := range []string{configHome, dataHome} {
		fi, err := os.Stat(filepath.Join(base, consts.OliworksDirName))
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, fi.IsDir(), true, "oliworks path is not a directory")
	}

	// a second run against existing directories is a no-op
	if err := InitDirs(paths); err != nil {
		t.Fatal(err)
	}
}
