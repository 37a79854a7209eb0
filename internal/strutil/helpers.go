package strutil

import (
	"iter"
	"strings"

	"github.com/indigo-web/utils/strcomp"
)

func LStripWS(str string) string {
	for i := 0; i < len(str); i++ {
		switch str[i] {
		case ' ', '\t':
		default:
			return str[i:]
		}
	}

	return ""
}

func RStripWS(str string) string {
	for i := len(str); i > 0; i-- {
		switch str[i-1] {
		case ' ', '\t':
		default:
			return str[:i]
		}
	}

	return ""
}

func StripWS(str string) string {
	return RStripWS(LStripWS(str))
}

// CutHeader splits the header value into the value itself and its parameters.
func CutHeader(header string) (value, params string) {
	sep := strings.IndexByte(header, ';')
	if sep == -1 {
		return header, ""
	}

	return header[:sep], LStripWS(header[sep+1:])
}

func Unquote(str string) string {
	if len(str) > 1 && str[0] == '"' && str[len(str)-1] == '"' {
		return str[1 : len(str)-1]
	}

	return str
}

// Tokens iterates over comma-separated list elements, stripped and without parameters.
// Empty elements are skipped.
func Tokens(list string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(list) > 0 {
			var token string

			comma := strings.IndexByte(list, ',')
			if comma == -1 {
				token, list = list, ""
			} else {
				token, list = list[:comma], list[comma+1:]
			}

			token, _ = CutHeader(token)
			if token = StripWS(token); len(token) == 0 {
				continue
			}

			if !yield(token) {
				return
			}
		}
	}
}

// HasToken reports whether the comma-separated list contains the token, compared
// case-insensitively.
func HasToken(list, token string) bool {
	for elem := range Tokens(list) {
		if strcomp.EqualFold(elem, token) {
			return true
		}
	}

	return false
}

// NormalizeAddress binds port-only addresses, like ":8080", to all the interfaces.
func NormalizeAddress(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "0.0.0.0" + addr
	}

	return addr
}
