// Copyright 2017 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExist(t *testing.T) {
	if f := os.Args[0]; !IsExist(f) {
		t.Fatalf("executable %v does not exist", f)
	}
	if f := os.Args[0] + "-foo-bar-buz"; IsExist(f) {
		t.Fatalf("file %v exists", f)
	}
}

func TestWriteFileListDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, MkdirAll(dir))
	require.NoError(t, WriteFile(filepath.Join(dir, "x"), []byte("data")))
	require.NoError(t, WriteFile(filepath.Join(dir, "y"), nil))
	files, err := ListDir(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, files)
}

func TestMapAnonymous(t *testing.T) {
	const size = 3<<20 + 17
	mem, err := MapAnonymous(size)
	require.NoError(t, err)
	assert.Len(t, mem, size)
	assert.Zero(t, uintptr(unsafe.Pointer(&mem[0]))%uintptr(os.Getpagesize()))
	for i := range mem {
		if mem[i] != 0 {
			t.Fatalf("byte %v is not zero", i)
		}
	}
	mem[0], mem[size-1] = 1, 2
	assert.NoError(t, UnmapAnonymous(mem))
}
