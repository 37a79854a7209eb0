package headers

import (
	"bytes"
	"sync/atomic"

	"github.com/indigo-web/utils/uf"
	"github.com/puzpuzpuz/xsync/v3"
)

// Name is an interned header name. Standard names carry a stable non-zero index and are
// compared by it, dynamic ones carry the zero index and are compared by their text.
type Name struct {
	display string
	bytes   []byte
	index   int
}

// String returns the display form, exactly as it's rendered on the wire.
func (n Name) String() string {
	return n.display
}

// Bytes returns the byte form of the name. It must not be modified.
func (n Name) Bytes() []byte {
	return n.bytes
}

func (n Name) Index() int {
	return n.index
}

// IsStandard reports whether the name belongs to the closed set of well-known names.
func (n Name) IsStandard() bool {
	return n.index > 0
}

// IsZero reports whether the name was never initialized.
func (n Name) IsZero() bool {
	return len(n.display) == 0
}

// Equal compares names by index when both are standard, and by text otherwise.
func (n Name) Equal(other Name) bool {
	if n.index > 0 || other.index > 0 {
		return n.index == other.index
	}

	return n.display == other.display
}

var standard []Name

func register(display string) Name {
	name := Name{
		display: display,
		bytes:   []byte(display),
		index:   len(standard) + 1,
	}
	standard = append(standard, name)

	return name
}

var (
	Host             = register("Host")
	Connection       = register("Connection")
	ContentLength    = register("Content-Length")
	ContentType      = register("Content-Type")
	Date             = register("Date")
	ETag             = register("ETag")
	IfNoneMatch      = register("If-None-Match")
	Location         = register("Location")
	SetCookie        = register("Set-Cookie")
	TransferEncoding = register("Transfer-Encoding")
	UserAgent        = register("User-Agent")
	AcceptEncoding   = register("Accept-Encoding")
	Cookie           = register("Cookie")
	ContentEncoding  = register("Content-Encoding")
	LastModified     = register("Last-Modified")
	Server           = register("Server")
	Accept           = register("Accept")
	CacheControl     = register("Cache-Control")
)

// byLength groups standard names by the length of their byte form, so matching a
// raw name costs at most a couple of comparisons.
var byLength = func() (table [32][]Name) {
	for _, name := range standard {
		table[len(name.bytes)] = append(table[len(name.bytes)], name)
	}

	return table
}()

// Standard returns all the well-known names in registration order.
func Standard() []Name {
	return standard
}

// Match resolves a raw name against the standard set only. Matching is case-exact, as
// the name is sent on the wire.
func Match(raw []byte) (Name, bool) {
	if len(raw) >= len(byLength) {
		return Name{}, false
	}

	for _, name := range byLength[len(raw)] {
		if bytes.Equal(name.bytes, raw) {
			return name, true
		}
	}

	return Name{}, false
}

// maxInterned limits the number of dynamic names kept in the process-wide table.
var maxInterned = func() *atomic.Int64 {
	limit := new(atomic.Int64)
	limit.Store(4096)
	return limit
}()

// SetMaxInterned changes the limit of interned dynamic names. The table is shared by the
// whole process, so is the limit. Lowering it doesn't evict already interned names.
func SetMaxInterned(n int) {
	maxInterned.Store(int64(n))
}

// MaxInterned returns the current limit of interned dynamic names.
func MaxInterned() int {
	return int(maxInterned.Load())
}

var dynamic = xsync.NewMapOf[string, Name](xsync.WithPresize(64))

// FromBytes resolves the raw name into a standard one, or into an interned dynamic one.
// The raw slice isn't retained.
func FromBytes(raw []byte) Name {
	if name, ok := Match(raw); ok {
		return name
	}

	if name, ok := dynamic.Load(uf.B2S(raw)); ok {
		return name
	}

	return Create(string(raw))
}

// Find looks the name up among standard and already interned dynamic names.
func Find(display string) (Name, bool) {
	if name, ok := Match(uf.S2B(display)); ok {
		return name, true
	}

	return dynamic.Load(display)
}

// Create returns the standard name if the text matches one, otherwise interns a dynamic
// name, unless the interning table is already full, in which case a detached name is
// returned.
func Create(display string) Name {
	if name, ok := Find(display); ok {
		return name
	}

	name := Name{
		display: display,
		bytes:   []byte(display),
	}

	if int64(dynamic.Size()) >= maxInterned.Load() {
		return name
	}

	name, _ = dynamic.LoadOrStore(display, name)
	return name
}
