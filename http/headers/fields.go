package headers

import (
	"iter"
	"strconv"
)

type Field struct {
	Name  Name
	Value string
}

// Fields is an ordered collection of header fields. Lookup is linear, which outperforms maps
// on the amount of headers a request usually carries.
type Fields struct {
	fields []Field
}

func NewFields(prealloc int) *Fields {
	return &Fields{
		fields: make([]Field, 0, prealloc),
	}
}

// Add appends the field, keeping any existing values of the same name.
func (f *Fields) Add(name Name, value string) *Fields {
	f.fields = append(f.fields, Field{Name: name, Value: value})
	return f
}

// Set replaces the value of the first field with the name, or appends a new field.
// Further fields with the same name are dropped, so exactly one remains.
func (f *Fields) Set(name Name, value string) *Fields {
	for i := range f.fields {
		if f.fields[i].Name.Equal(name) {
			f.fields[i].Value = value
			f.dropAfter(i+1, name)
			return f
		}
	}

	return f.Add(name, value)
}

// SetInt is Set with a decimal integer value.
func (f *Fields) SetInt(name Name, value int64) *Fields {
	return f.Set(name, strconv.FormatInt(value, 10))
}

// Get returns the last value of the name.
func (f *Fields) Get(name Name) (value string, found bool) {
	for i := len(f.fields) - 1; i >= 0; i-- {
		if f.fields[i].Name.Equal(name) {
			return f.fields[i].Value, true
		}
	}

	return "", false
}

// Value returns the last value of the name or an empty string.
func (f *Fields) Value(name Name) string {
	value, _ := f.Get(name)
	return value
}

func (f *Fields) Has(name Name) bool {
	_, found := f.Get(name)
	return found
}

// Del removes all fields of the name.
func (f *Fields) Del(name Name) *Fields {
	f.dropAfter(0, name)
	return f
}

// Iter iterates over fields in insertion order.
func (f *Fields) Iter() iter.Seq2[Name, string] {
	return func(yield func(Name, string) bool) {
		for _, field := range f.fields {
			if !yield(field.Name, field.Value) {
				return
			}
		}
	}
}

// Expose returns the underlying slice of fields.
func (f *Fields) Expose() []Field {
	return f.fields
}

func (f *Fields) Len() int {
	return len(f.fields)
}

// Clear drops all the entries. However, all the allocated space won't be freed.
func (f *Fields) Clear() {
	f.fields = f.fields[:0]
}

func (f *Fields) dropAfter(offset int, name Name) {
	kept := f.fields[:offset]
	for _, field := range f.fields[offset:] {
		if !field.Name.Equal(name) {
			kept = append(kept, field)
		}
	}

	f.fields = kept
}
