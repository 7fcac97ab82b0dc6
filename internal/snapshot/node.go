// Package snapshot projects game state into a canonical tree that two
// independent engines can be compared on.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind is the type of a Node.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindString
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Node is an immutable value in a snapshot tree. Map fields are always sorted
// by name and keyed lists are always sorted by their key field, so equal
// states give byte-identical encodings.
type Node struct {
	kind   Kind
	b      bool
	i      int64
	s      string
	fields []Field
	items  []Node
	key    string
}

// Field is a named child of a map node.
type Field struct {
	Name  string
	Value Node
}

func Null() Node                  { return Node{} }
func Bool(b bool) Node            { return Node{kind: KindBool, b: b} }
func Int(i int64) Node            { return Node{kind: KindInt, i: i} }
func Str(s string) Node           { return Node{kind: KindString, s: s} }
func F(name string, v Node) Field { return Field{Name: name, Value: v} }

// Map builds a map node. Duplicate names keep the last value.
func Map(fields ...Field) Node {
	fs := make([]Field, 0, len(fields))
	for _, f := range fields {
		if i := slices.IndexFunc(fs, func(x Field) bool { return x.Name == f.Name }); i >= 0 {
			fs[i] = f
			continue
		}
		fs = append(fs, f)
	}
	slices.SortFunc(fs, func(a, b Field) int { return strings.Compare(a.Name, b.Name) })
	return Node{kind: KindMap, fields: fs}
}

// List builds a positional list.
func List(items ...Node) Node {
	return Node{kind: KindList, items: slices.Clone(items)}
}

// KeyedList builds a list of maps identified by their key field. Items are
// sorted by key and the diff aligns them by key instead of by position.
func KeyedList(key string, items ...Node) Node {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b Node) int {
		ka, _ := a.Field(key)
		kb, _ := b.Field(key)
		return compareScalar(ka, kb)
	})
	return Node{kind: KindList, items: out, key: key}
}

func compareScalar(a, b Node) int {
	if a.kind != b.kind {
		return int(a.kind) - int(b.kind)
	}
	switch a.kind {
	case KindInt:
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	}
	return 0
}

func (n Node) Kind() Kind       { return n.kind }
func (n Node) IsScalar() bool   { return n.kind != KindMap && n.kind != KindList }
func (n Node) BoolValue() bool  { return n.b }
func (n Node) IntValue() int64  { return n.i }
func (n Node) StrValue() string { return n.s }
func (n Node) Fields() []Field  { return n.fields }
func (n Node) Items() []Node    { return n.items }
func (n Node) Key() string      { return n.key }

// Field returns the named child of a map node.
func (n Node) Field(name string) (Node, bool) {
	if n.kind != KindMap {
		return Node{}, false
	}
	i, ok := slices.BinarySearchFunc(n.fields, name, func(f Field, t string) int { return strings.Compare(f.Name, t) })
	if !ok {
		return Node{}, false
	}
	return n.fields[i].Value, true
}

// KeyOf returns the identity of an item of a keyed list, as it appears in
// paths: "3" for an int key, "a" for a string key.
func (n Node) KeyOf(key string) string {
	k, ok := n.Field(key)
	if !ok {
		return ""
	}
	return k.Text()
}

// Get walks a path such as "player.hp", "monsters[id=3].hp" or
// "levels[id=1].rows[4]".
func (n Node) Get(path string) (Node, bool) {
	cur := n
	for _, seg := range splitPath(path) {
		name, sel, hasSel := strings.Cut(seg, "[")
		if name != "" {
			next, ok := cur.Field(name)
			if !ok {
				return Node{}, false
			}
			cur = next
		}
		if !hasSel {
			continue
		}
		sel = strings.TrimSuffix(sel, "]")
		if cur.kind != KindList {
			return Node{}, false
		}
		if k, v, keyed := strings.Cut(sel, "="); keyed {
			i := slices.IndexFunc(cur.items, func(it Node) bool { return it.KeyOf(k) == v })
			if i < 0 {
				return Node{}, false
			}
			cur = cur.items[i]
			continue
		}
		idx, err := strconv.Atoi(sel)
		if err != nil || idx < 0 || idx >= len(cur.items) {
			return Node{}, false
		}
		cur = cur.items[idx]
	}
	return cur, true
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '.':
			if depth == 0 {
				out = append(out, p[start:i])
				start = i + 1
			}
		}
	}
	return append(out, p[start:])
}

// Text renders a scalar for display in diff records.
func (n Node) Text() string {
	switch n.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(n.b)
	case KindInt:
		return strconv.FormatInt(n.i, 10)
	case KindString:
		return n.s
	}
	b, _ := n.MarshalJSON()
	return string(b)
}

// Equal reports deep equality.
func (n Node) Equal(o Node) bool {
	if n.kind != o.kind {
		return false
	}
	switch n.kind {
	case KindNull:
		return true
	case KindBool:
		return n.b == o.b
	case KindInt:
		return n.i == o.i
	case KindString:
		return n.s == o.s
	case KindMap:
		return slices.EqualFunc(n.fields, o.fields, func(a, b Field) bool {
			return a.Name == b.Name && a.Value.Equal(b.Value)
		})
	case KindList:
		return n.key == o.key && slices.EqualFunc(n.items, o.items, func(a, b Node) bool { return a.Equal(b) })
	}
	return false
}

// MarshalJSON writes the canonical encoding.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n Node) encode(buf *bytes.Buffer) error {
	switch n.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(n.i, 10))
	case KindString:
		b, err := json.Marshal(n.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindMap:
		buf.WriteByte('{')
		for i, f := range n.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := json.Marshal(f.Name)
			if err != nil {
				return err
			}
			buf.Write(b)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindList:
		buf.WriteByte('[')
		for i, it := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	return nil
}

// Digest is the sha256 of the canonical encoding, hex encoded.
func (n Node) Digest() string {
	b, _ := n.MarshalJSON()
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
