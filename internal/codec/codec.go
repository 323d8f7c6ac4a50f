// Fixed-width base-62 codes for numeric job IDs.
// Every code has the same length so the store can predict how many
// codes fit in one storage chunk.

package codec

import (
	"strconv"
	"strings"
)

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	base     = uint64(len(alphabet))

	// Width is the length of every code.
	Width = 7

	// SerializedSize is the JSON size of one code inside an array: quotes plus a comma.
	SerializedSize = Width + 3
)

// MaxID is the largest ID that fits in Width symbols.
var MaxID = pow(base, Width) - 1

// Encode converts n to a fixed-width code. IDs above MaxID are rejected.
func Encode(n uint64) (string, bool) {
	if n > MaxID {
		return "", false
	}
	var buf [Width]byte
	for i := Width - 1; i >= 0; i-- {
		buf[i] = alphabet[n%base]
		n /= base
	}
	return string(buf[:]), true
}

// Decode converts a code back to its ID. Malformed codes return false.
func Decode(code string) (uint64, bool) {
	if len(code) != Width {
		return 0, false
	}
	var n uint64
	for i := 0; i < len(code); i++ {
		v := symbolValue(code[i])
		if v < 0 {
			return 0, false
		}
		n = n*base + uint64(v)
	}
	return n, true
}

// EncodeID encodes a raw decimal ID as read from the page, e.g. "4329358250".
func EncodeID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return "", false
	}
	return Encode(n)
}

// DecodeID is the inverse of EncodeID.
func DecodeID(code string) (string, bool) {
	n, ok := Decode(code)
	if !ok {
		return "", false
	}
	return strconv.FormatUint(n, 10), true
}

func symbolValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 36
	}
	return -1
}

func pow(b uint64, e int) uint64 {
	r := uint64(1)
	for i := 0; i < e; i++ {
		r *= b
	}
	return r
}
