package hexconv

// Halfbyte maps an ASCII hex digit into its value. Non-hex characters map into 0, so
// validity must be checked separately via IsHex.
var Halfbyte = [256]byte{
	'0': 0x0, '1': 0x1, '2': 0x2, '3': 0x3, '4': 0x4,
	'5': 0x5, '6': 0x6, '7': 0x7, '8': 0x8, '9': 0x9,
	'a': 0xa, 'b': 0xb, 'c': 0xc, 'd': 0xd, 'e': 0xe, 'f': 0xf,
	'A': 0xA, 'B': 0xB, 'C': 0xC, 'D': 0xD, 'E': 0xE, 'F': 0xF,
}

func IsHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c|0x20 >= 'a' && c|0x20 <= 'f')
}

// Pair decodes two hex digits into a single byte.
func Pair(hi, lo byte) (c byte, ok bool) {
	if !IsHex(hi) || !IsHex(lo) {
		return 0, false
	}

	return Halfbyte[hi]<<4 | Halfbyte[lo], true
}
