// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiling(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu")
	mem := filepath.Join(dir, "mem")
	stop, err := startProfiling(cpu, mem)
	require.NoError(t, err)
	require.NoError(t, stop())
	for _, file := range []string{cpu, mem} {
		st, err := os.Stat(file)
		require.NoError(t, err)
		assert.NotZero(t, st.Size(), file)
	}

	stop, err = startProfiling("", "")
	require.NoError(t, err)
	require.NoError(t, stop())

	_, err = startProfiling(filepath.Join(dir, "missing", "cpu"), "")
	assert.Error(t, err)
}
