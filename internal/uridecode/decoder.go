package uridecode

import (
	"bytes"

	"github.com/indigo-web/brook/http/status"
	"github.com/indigo-web/brook/internal/hexconv"
)

// Decode normalizes the URI by translating escaped characters into their
// true form. If nothing is escaped, src is returned as is.
func Decode(src, buff []byte) ([]byte, error) {
	for i := bytes.IndexByte(src, '%'); i != -1; i = bytes.IndexByte(src, '%') {
		if i >= len(src)-2 {
			return nil, status.ErrURIDecoding
		}

		c, ok := hexconv.Pair(src[i+1], src[i+2])
		if !ok || isProhibited(c) {
			return nil, status.ErrURIDecoding
		}

		buff = append(buff, src[:i]...)
		buff = append(buff, c)
		src = src[i+3:]
	}

	if len(buff) == 0 {
		return src, nil
	}

	return append(buff, src...), nil
}

// DecodeQuery behaves as Decode, but additionally treats '+' as an escaped space,
// as application/x-www-form-urlencoded prescribes. The decoded value is returned
// without the previous content of buff.
func DecodeQuery(src, buff []byte) ([]byte, error) {
	if bytes.IndexByte(src, '+') == -1 {
		return Decode(src, buff[len(buff):])
	}

	start := len(buff)

	for i := 0; i < len(src); i++ {
		switch char := src[i]; char {
		case '+':
			buff = append(buff, ' ')
		case '%':
			if i >= len(src)-2 {
				return nil, status.ErrURIDecoding
			}

			c, ok := hexconv.Pair(src[i+1], src[i+2])
			if !ok || isProhibited(c) {
				return nil, status.ErrURIDecoding
			}

			buff = append(buff, c)
			i += 2
		default:
			buff = append(buff, char)
		}
	}

	return buff[start:], nil
}

func isProhibited(c byte) bool {
	return c < 0x20 || c == 0x7f
}
