package codec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeZero(t *testing.T) {
	code, ok := Encode(0)
	require.True(t, ok)
	assert.Equal(t, "0000000", code)
}

func TestRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 61, 62, 3843, 4329358250, MaxID}
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		values = append(values, uint64(r.Int63n(int64(MaxID))))
	}

	for _, n := range values {
		code, ok := Encode(n)
		require.True(t, ok, "encode %d", n)
		assert.Len(t, code, Width)

		back, ok := Decode(code)
		require.True(t, ok, "decode %q", code)
		assert.Equal(t, n, back)
	}
}

func TestEncodeOutOfRange(t *testing.T) {
	_, ok := Encode(MaxID + 1)
	assert.False(t, ok)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{name: "empty", code: ""},
		{name: "too short", code: "000000"},
		{name: "too long", code: "00000000"},
		{name: "dash", code: "000-000"},
		{name: "space", code: "000 000"},
		{name: "non ascii", code: "00000é"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := Decode(tt.code)
			assert.False(t, ok)
			assert.Zero(t, n)
		})
	}
}

func TestEncodeID(t *testing.T) {
	code, ok := EncodeID(" 4329358250 ")
	require.True(t, ok)

	raw, ok := DecodeID(code)
	require.True(t, ok)
	assert.Equal(t, "4329358250", raw)

	_, ok = EncodeID("urn:li:job:1")
	assert.False(t, ok)
	_, ok = EncodeID("-5")
	assert.False(t, ok)
	_, ok = EncodeID("")
	assert.False(t, ok)
}

func TestEncodingIsOrderPreserving(t *testing.T) {
	a, _ := Encode(1000)
	b, _ := Encode(1001)
	assert.Less(t, a, b)
}
