package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/indigo-web/brook/internal/strutil"
)

// TimeFormat is the IMF-fixdate layout, the only one the engine produces.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// FormatDate renders the instant as an HTTP-date in UTC.
func FormatDate(t time.Time) string {
	return string(AppendDate(make([]byte, 0, len(TimeFormat)), t))
}

// AppendDate appends the HTTP-date to the buffer.
func AppendDate(buff []byte, t time.Time) []byte {
	return t.UTC().AppendFormat(buff, TimeFormat)
}

// ETag computes a strong validator of a file from its modification time and size. The
// result is stable for the same pair of inputs.
func ETag(modTime time.Time, size int64) string {
	buff := make([]byte, 0, 2+16+1+16)
	buff = append(buff, '"')
	buff = strconv.AppendInt(buff, modTime.Unix(), 16)
	buff = append(buff, '-')
	buff = strconv.AppendInt(buff, size, 16)
	buff = append(buff, '"')

	return string(buff)
}

// matchETag reports whether the If-None-Match value lists the tag. Weak comparison is
// used, as required for If-None-Match.
func matchETag(list, etag string) bool {
	if strutil.StripWS(list) == "*" {
		return true
	}

	for tag := range strutil.Tokens(list) {
		if strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}

	return false
}
