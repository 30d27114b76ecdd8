// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", String())
	assert.Equal(t, String([]byte("abc")), String([]byte("a"), []byte("bc")))
	assert.NotEqual(t, String([]byte("abc")), String([]byte("abd")))

	sig := Hash([]byte("input"))
	sig1, err := FromString(sig.String())
	require.NoError(t, err)
	assert.Equal(t, sig, sig1)

	_, err = FromString("zz")
	assert.Error(t, err)
	_, err = FromString("abcd")
	assert.EqualError(t, err, "failed to decode sig 'abcd': bad len")
}
