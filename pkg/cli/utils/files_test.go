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

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oliworks/oliworks/pkg/assert"
)

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "oliworksrc")

	ok, err := FileExists(path)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ok, false, "missing file reported as existing")

	if err := os.WriteFile(path, []byte("apiEndpoint: http://localhost:3001/api"), 0644); err != nil {
		t.Fatal(err)
	}

	ok, err = FileExists(path)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ok, true, "existing file reported as missing")
}

func TestEnsureDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "oliworks")

	if err := EnsureDir(path); err != nil {
		t.Fatal(err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, fi.IsDir(), true, "path is not a directory")

	// creating an existing directory is a no-op
	if err := EnsureDir(path); err != nil {
		t.Fatal(err)
	}
}
