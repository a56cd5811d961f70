package phases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterner(t *testing.T) {
	in := newInterner()

	a, err := in.intern("Brisbane")
	require.NoError(t, err)
	b, err := in.intern("Ryan")
	require.NoError(t, err)
	a2, err := in.intern("Brisbane")
	require.NoError(t, err)

	assert.Equal(t, a, a2)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "Brisbane", in.resolve(a))
	assert.Equal(t, "Ryan", in.resolve(b))
	assert.Equal(t, 2, in.len())
}

func TestInterner_CopiesReusedBuffers(t *testing.T) {
	in := newInterner()

	// Simulate the csv reader reusing a record's backing storage.
	buf := []byte("Dickson")
	sym, err := in.intern(string(buf))
	require.NoError(t, err)
	buf[0] = 'X'

	assert.Equal(t, "Dickson", in.resolve(sym))
}
