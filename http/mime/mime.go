package mime

import (
	"path/filepath"
)

type MIME = string

const (
	OctetStream MIME = "application/octet-stream"
	Plain       MIME = "text/plain"
	HTML        MIME = "text/html"
	XML         MIME = "text/xml"
	JSON        MIME = "application/json"
	YAML        MIME = "application/yaml"
	PDF         MIME = "application/pdf"
	ZIP         MIME = "application/zip"
	GZIP        MIME = "application/gzip"
	AVIF        MIME = "image/avif"
	CSS         MIME = "text/css"
	GIF         MIME = "image/gif"
	JPEG        MIME = "image/jpeg"
	PNG         MIME = "image/png"
	SVG         MIME = "image/svg+xml"
	ICO         MIME = "image/vnd.microsoft.icon"
	WEBP        MIME = "image/webp"
	JS          MIME = "text/javascript"
	WASM        MIME = "application/wasm"
)

type Charset = string

const UTF8 Charset = "utf-8"

var extensions = map[string]MIME{
	".avif": AVIF,
	".css":  CSS,
	".gif":  GIF,
	".htm":  HTML,
	".html": HTML,
	".jpeg": JPEG,
	".jpg":  JPEG,
	".js":   JS,
	".mjs":  JS,
	".json": JSON,
	".pdf":  PDF,
	".png":  PNG,
	".svg":  SVG,
	".txt":  Plain,
	".wasm": WASM,
	".webp": WEBP,
	".xml":  XML,
	".yaml": YAML,
	".gz":   GZIP,
	".zip":  ZIP,
	".ico":  ICO,
}

// textual MIMEs are rendered with the charset parameter.
var textual = map[MIME]struct{}{
	Plain: {},
	HTML:  {},
	CSS:   {},
	JS:    {},
	XML:   {},
}

// ByFilename picks the content type by the file extension. Unknown extensions are
// served as a stream of octets.
func ByFilename(name string) string {
	mime, found := extensions[filepath.Ext(name)]
	if !found {
		return OctetStream
	}

	return WithCharset(mime)
}

// WithCharset appends the default charset parameter to textual types.
func WithCharset(mime MIME) string {
	if _, ok := textual[mime]; ok {
		return mime + ";charset=" + UTF8
	}

	return mime
}
