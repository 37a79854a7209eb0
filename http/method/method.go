// Package method enumerates request methods the engine recognizes.
package method

import "github.com/indigo-web/utils/uf"

type Method uint8

const (
	Unknown Method = iota
	GET
	HEAD
	POST
	PUT
	DELETE
	CONNECT
	OPTIONS
	TRACE
	PATCH

	// Count of known methods, Unknown excluded.
	Count = iota - 1
)

// List holds the known methods in their numeric order.
var List = []Method{GET, HEAD, POST, PUT, DELETE, CONNECT, OPTIONS, TRACE, PATCH}

var names = [...]string{
	Unknown: "UNKNOWN",
	GET:     "GET",
	HEAD:    "HEAD",
	POST:    "POST",
	PUT:     "PUT",
	DELETE:  "DELETE",
	CONNECT: "CONNECT",
	OPTIONS: "OPTIONS",
	TRACE:   "TRACE",
	PATCH:   "PATCH",
}

const (
	shortest = len("GET")
	longest  = len("OPTIONS")
)

// candidates narrows a token down to at most one method by its length and the first
// letter. No two known methods share both.
var candidates = func() (table [longest + 1]['Z' - 'A' + 1]Method) {
	for _, m := range List {
		name := m.String()
		table[len(name)][name[0]-'A'] = m
	}

	return table
}()

func (m Method) String() string {
	if int(m) >= len(names) {
		return names[Unknown]
	}

	return names[m]
}

// AllowsBody reports whether a request of the method is permitted to carry a payload.
// GET, HEAD, OPTIONS, TRACE and CONNECT are only accepted with an empty one.
func (m Method) AllowsBody() bool {
	switch m {
	case POST, PUT, PATCH, DELETE:
		return true
	default:
		return false
	}
}

// Match resolves a method token as it lies in the wire buffer. The comparison is
// case-sensitive, as method names are.
func Match(token []byte) Method {
	return Parse(uf.B2S(token))
}

func Parse(str string) Method {
	if len(str) < shortest || len(str) > longest || str[0] < 'A' || str[0] > 'Z' {
		return Unknown
	}

	if m := candidates[len(str)][str[0]-'A']; m != Unknown && names[m] == str {
		return m
	}

	return Unknown
}
