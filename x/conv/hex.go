package conv

const hexd = "0123456789ABCDEF"

// AppendHex8 appends two uppercase hex digits.
func AppendHex8(dst []byte, b byte) []byte {
	return append(dst, hexd[b>>4], hexd[b&0xF])
}

// AppendHex16 appends four uppercase hex digits, big-endian.
func AppendHex16(dst []byte, v uint16) []byte {
	return AppendHex8(AppendHex8(dst, byte(v>>8)), byte(v))
}

// ParseHex8 decodes two hex digits (either case).
func ParseHex8(hi, lo byte) (byte, bool) {
	h, ok1 := nibble(hi)
	l, ok2 := nibble(lo)
	return h<<4 | l, ok1 && ok2
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
