package domain

import (
	"reflect"
	"sort"
	"strings"
)

// Definition is a class-like unit owning methods
type Definition struct {
	Name    string   // Name local to the owning namespace
	Methods []Method // Declared order
}

// Method is a named callable on a definition
type Method struct {
	Name       string // Simple method name
	DeclaredBy string // Declaring definition, empty when declared on the owner
	Receiver   string // Receiver type when the method needs an instance
	Body       any    // The callable itself
	Unusable   string // Why the body could not be resolved, if it could not
}

// Signature describes how a test body can be invoked
type Signature int

const (
	// SignatureInvalid marks a body that cannot run as a zero-argument test
	SignatureInvalid Signature = iota
	// SignatureNoResult is func()
	SignatureNoResult
	// SignatureBool is func() bool
	SignatureBool
	// SignatureError is func() error
	SignatureError
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// SignatureOf inspects a method body and reports its test signature along with
// a reason when it is not invokable.
func SignatureOf(m Method) (Signature, string) {
	if m.Receiver != "" {
		return SignatureInvalid, "requires an instance of " + m.Receiver
	}
	if m.Unusable != "" {
		return SignatureInvalid, m.Unusable
	}
	if m.Body == nil {
		return SignatureInvalid, "has no body"
	}

	t := reflect.TypeOf(m.Body)
	if t.Kind() != reflect.Func {
		return SignatureInvalid, "is not a function"
	}
	if t.NumIn() > 0 {
		return SignatureInvalid, "takes arguments"
	}

	switch t.NumOut() {
	case 0:
		return SignatureNoResult, ""
	case 1:
		out := t.Out(0)
		if out.Kind() == reflect.Bool {
			return SignatureBool, ""
		}
		if out == errorType {
			return SignatureError, ""
		}
		return SignatureInvalid, "returns " + out.String() + " instead of bool"
	default:
		return SignatureInvalid, "returns more than one value"
	}
}

// TestID is the qualified Definition.Method key of a test
type TestID string

// NewTestID joins a qualified definition name and a method name
func NewTestID(definition, method string) TestID {
	return TestID(definition + "." + method)
}

// Definition returns everything before the last separator
func (id TestID) Definition() string {
	s := string(id)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i]
	}
	return ""
}

// Method returns the simple method name
func (id TestID) Method() string {
	s := string(id)
	return s[strings.LastIndex(s, ".")+1:]
}

// Test is a discovered, invokable test
type Test struct {
	ID        TestID
	Signature Signature
	Body      any
}

// Warning is raised for a method that looks like a test but cannot be run as one
type Warning struct {
	ID     TestID
	Reason string
}

// String formats the warning for display
func (w Warning) String() string {
	return string(w.ID) + " " + w.Reason + ", should this be a test?"
}

// TestSet is a set of test ids
type TestSet map[TestID]struct{}

// NewTestSet builds a set from ids
func NewTestSet(ids ...TestID) TestSet {
	s := make(TestSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// ParseTestSet builds a set from plain strings, ignoring empty entries
func ParseTestSet(names []string) TestSet {
	s := make(TestSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			s[TestID(n)] = struct{}{}
		}
	}
	return s
}

// Has reports whether id is in the set
func (s TestSet) Has(id TestID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id
func (s TestSet) Add(id TestID) {
	s[id] = struct{}{}
}

// Clone returns an independent copy; a nil set clones to an empty one
func (s TestSet) Clone() TestSet {
	c := make(TestSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Sorted returns the ids as sorted strings
func (s TestSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}
