// Package params implements the parameter bag described in spec §4.2: an
// append-only (except for named overwrites) accumulator of bound SQL values
// that assigns each value a unique placeholder name. The teacher's
// query/*_query.go builders accumulate args inline as plain []any slices;
// this package factors that pattern out into a small, reusable value type so
// every sub-builder in query/ shares one placeholder-numbering scheme.
package params

import (
	"fmt"
	"io"
	"time"
)

// Type is the explicit SQL binding type a value carries, mirroring spec
// §4.2's "explicit SQL types" vocabulary.
type Type string

const (
	TypeString Type = "STR"
	TypeInt    Type = "INT"
	TypeBool   Type = "BOOL"
	TypeNull   Type = "NULL"
	TypeLOB    Type = "LOB"
)

// binding is one named, typed value held by a Bag, in insertion order.
type binding struct {
	Name  string
	Value any
	Type  Type
}

// Bag accumulates parameter bindings and assigns `:paramN` placeholders.
// The zero value is ready to use.
type Bag struct {
	order   []string
	byName  map[string]int // name -> index into order
	values  map[string]binding
	counter int
}

func New() *Bag {
	return &Bag{
		byName: make(map[string]int),
		values: make(map[string]binding),
	}
}

// detectType infers a binding Type from a Go value per spec §4.2: strings
// bind as STR, integers as INT, bools as BOOL, nil as NULL, byte slices and
// io readers as LOB; everything else (floats, slices, maps, structs) binds
// as STR.
func detectType(v any) Type {
	if v == nil {
		return TypeNull
	}
	switch v.(type) {
	case string:
		return TypeString
	case bool:
		return TypeBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case []byte:
		return TypeLOB
	case io.Reader:
		return TypeLOB
	case time.Time:
		return TypeString
	default:
		return TypeString
	}
}

// Add auto-assigns a `:paramN` placeholder for value, inferring its Type
// when typ is empty, and returns the placeholder name.
func (b *Bag) Add(value any, typ ...Type) string {
	b.counter++
	name := fmt.Sprintf("param%d", b.counter)
	return b.AddNamed(name, value, typ...)
}

// AddNamed binds value under a caller-chosen placeholder name, overwriting
// any prior binding with the same name (last write wins, per spec §4.2).
func (b *Bag) AddNamed(name string, value any, typ ...Type) string {
	t := TypeNull
	if len(typ) > 0 && typ[0] != "" {
		t = typ[0]
	} else {
		t = detectType(value)
	}
	if b.byName == nil {
		b.byName = make(map[string]int)
		b.values = make(map[string]binding)
	}
	if _, exists := b.byName[name]; !exists {
		b.order = append(b.order, name)
		b.byName[name] = len(b.order) - 1
	}
	b.values[name] = binding{Name: name, Value: value, Type: t}
	return ":" + name
}

// Merge returns a new Bag combining b and other. On a placeholder name
// collision the right-hand side (other) wins. other's auto-assigned
// `paramN` counters are renumbered so they never collide with b's, per
// spec §4.2.
func (b *Bag) Merge(other *Bag) *Bag {
	out := New()
	for _, name := range b.order {
		bind := b.values[name]
		out.AddNamed(name, bind.Value, bind.Type)
	}
	out.counter = b.counter

	renamed := make(map[string]string, len(other.order))
	for _, name := range other.order {
		bind := other.values[name]
		newName := name
		if isAutoName(name) {
			out.counter++
			newName = fmt.Sprintf("param%d", out.counter)
		}
		renamed[name] = newName
		out.AddNamed(newName, bind.Value, bind.Type)
	}
	return out
}

func isAutoName(name string) bool {
	if len(name) < 6 || name[:5] != "param" {
		return false
	}
	for _, r := range name[5:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Statement is the minimal surface a driver statement must expose to
// receive bound values (spec §4.2's bindValue).
type Statement interface {
	BindValue(placeholder string, value any, typ Type) error
}

// Bind iterates bindings in insertion order and binds each against stmt.
func (b *Bag) Bind(stmt Statement) error {
	for _, name := range b.order {
		bind := b.values[name]
		if err := stmt.BindValue(":"+name, bind.Value, bind.Type); err != nil {
			return err
		}
	}
	return nil
}

// Values returns bound values in insertion order, for drivers that bind
// positionally once placeholders have already been substituted into SQL
// text.
func (b *Bag) Values() []any {
	out := make([]any, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.values[name].Value)
	}
	return out
}

// Names returns placeholder names (without the leading colon) in
// insertion order.
func (b *Bag) Names() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Len reports the number of distinct placeholders currently bound.
func (b *Bag) Len() int {
	return len(b.order)
}

// Clear resets the bag to empty, including its auto-increment counter, per
// spec §4.2.
func (b *Bag) Clear() {
	b.order = nil
	b.byName = make(map[string]int)
	b.values = make(map[string]binding)
	b.counter = 0
}
