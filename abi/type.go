/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package abi provides an implementation of the ARC-4 ABI type system.
//
// A Type is obtained either by ParseType, which reads the canonical type
// notation such as "(uint64,string,bool[])", or by the New*Type constructors.
// Encode and Decode convert between Go values and the head/tail byte layout.
package abi

import (
	"strconv"
	"strings"

	"github.com/icon-project/btp2/common/log"
)

type TypeTag int

const (
	TUnknown TypeTag = iota
	TUint
	TUfixed
	TByte
	TBool
	TAddress
	TString
	TStaticArray
	TDynamicArray
	TTuple
	TStruct
)

const (
	MaxLength    = 0xffff
	MaxTypeDepth = 128

	// MaxZeroWidthValues bounds the values decoded from a type occupying no
	// bytes, since such values are not limited by the input length.
	MaxZeroWidthValues = 1 << 16

	MinBitSize   = 8
	MaxBitSize   = 512
	MaxPrecision = 160

	// NativeBitSizeLimit is the first bit size decoded as *big.Int.
	NativeBitSizeLimit = 53

	lengthSize  = 2
	addressSize = 32
	boolTrue    = 0x80
	boolFalse   = 0x00
)

var (
	abiLogger = log.New()

	typeTagNames = []string{"Unknown", "Uint", "Ufixed", "Byte", "Bool", "Address", "String",
		"StaticArray", "DynamicArray", "Tuple", "Struct"}
)

func init() {
	abiLogger.SetLevel(log.DebugLevel)
}

func (t TypeTag) String() string {
	if int(t) < 0 || int(t) >= len(typeTagNames) {
		return typeTagNames[TUnknown]
	}
	return typeTagNames[t]
}

// Field is a named member of a struct or an anonymous field list.
type Field struct {
	Name string
	Type *Type
}

// Type is an immutable ABI type descriptor.
type Type struct {
	tag       TypeTag
	bitSize   int
	precision int
	elem      *Type
	length    int
	children  []*Type
	name      string
	fields    []Field

	dynamic bool
	size    int
	depth   int
	text    string

	// zeroValues is the number of values decoded from a zero-width type.
	zeroValues int
}

var (
	ByteType    = newLeaf(TByte, 1, "byte")
	BoolType    = newLeaf(TBool, 1, "bool")
	AddressType = newLeaf(TAddress, addressSize, "address")
	StringType  = &Type{tag: TString, dynamic: true, size: -1, depth: 1, text: "string"}
)

func newLeaf(tag TypeTag, size int, text string) *Type {
	return &Type{tag: tag, size: size, depth: 1, text: text}
}

func checkBitSize(bitSize int) error {
	if bitSize < MinBitSize || bitSize > MaxBitSize || bitSize%8 != 0 {
		return malformedf("invalid bit size %d, must be a multiple of 8 in [%d,%d]",
			bitSize, MinBitSize, MaxBitSize)
	}
	return nil
}

func NewUintType(bitSize int) (*Type, error) {
	if err := checkBitSize(bitSize); err != nil {
		return nil, err
	}
	return &Type{
		tag:     TUint,
		bitSize: bitSize,
		size:    bitSize / 8,
		depth:   1,
		text:    "uint" + strconv.Itoa(bitSize),
	}, nil
}

func NewUfixedType(bitSize, precision int) (*Type, error) {
	if err := checkBitSize(bitSize); err != nil {
		return nil, err
	}
	if precision < 1 || precision > MaxPrecision {
		return nil, malformedf("invalid precision %d, must be in [1,%d]", precision, MaxPrecision)
	}
	return &Type{
		tag:       TUfixed,
		bitSize:   bitSize,
		precision: precision,
		size:      bitSize / 8,
		depth:     1,
		text:      "ufixed" + strconv.Itoa(bitSize) + "x" + strconv.Itoa(precision),
	}, nil
}

func NewStaticArrayType(elem *Type, length int) (*Type, error) {
	if elem == nil {
		return nil, malformedf("nil element type")
	}
	if length < 0 || length > MaxLength {
		return nil, malformedf("invalid static array length %d", length)
	}
	if elem.depth+1 > MaxTypeDepth {
		return nil, malformedf("type depth exceeds %d", MaxTypeDepth)
	}
	t := &Type{
		tag:     TStaticArray,
		elem:    elem,
		length:  length,
		dynamic: elem.dynamic,
		depth:   elem.depth + 1,
		text:    elem.text + "[" + strconv.Itoa(length) + "]",
	}
	t.size = -1
	if !t.dynamic {
		if elem.tag == TBool {
			t.size = (length + 7) / 8
		} else {
			t.size = elem.size * length
		}
	}
	if t.size == 0 {
		t.zeroValues = 1
		if elem.size == 0 {
			t.zeroValues += length * elem.zeroValues
		}
		if t.zeroValues > MaxZeroWidthValues {
			return nil, malformedf("%s decodes to %d values without input, exceeds %d",
				t.text, t.zeroValues, MaxZeroWidthValues)
		}
	}
	return t, nil
}

func NewDynamicArrayType(elem *Type) (*Type, error) {
	if elem == nil {
		return nil, malformedf("nil element type")
	}
	if elem.depth+1 > MaxTypeDepth {
		return nil, malformedf("type depth exceeds %d", MaxTypeDepth)
	}
	return &Type{
		tag:     TDynamicArray,
		elem:    elem,
		dynamic: true,
		size:    -1,
		depth:   elem.depth + 1,
		text:    elem.text + "[]",
	}, nil
}

func NewTupleType(children ...*Type) (*Type, error) {
	if len(children) > MaxLength {
		return nil, malformedf("tuple has too many child types: %d", len(children))
	}
	t := &Type{
		tag:      TTuple,
		children: append([]*Type{}, children...),
	}
	if err := t.composite(t.children); err != nil {
		return nil, err
	}
	return t, nil
}

// NewStructType returns a struct over fields. An empty name denotes an
// anonymous field list, which still decodes to a name-keyed map.
func NewStructType(name string, fields ...Field) (*Type, error) {
	if len(fields) > MaxLength {
		return nil, malformedf("struct %s has too many fields: %d", name, len(fields))
	}
	seen := make(map[string]bool, len(fields))
	children := make([]*Type, len(fields))
	for i, f := range fields {
		if seen[f.Name] {
			return nil, malformedf("duplicated field name %q in struct %s", f.Name, name)
		}
		seen[f.Name] = true
		children[i] = f.Type
	}
	t := &Type{
		tag:      TStruct,
		name:     name,
		fields:   append([]Field{}, fields...),
		children: children,
	}
	if err := t.composite(children); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Type) composite(children []*Type) error {
	depth := 0
	size := 0
	texts := make([]string, len(children))
	for i := 0; i < len(children); i++ {
		c := children[i]
		if c == nil {
			return malformedf("nil child type at %d", i)
		}
		if c.depth > depth {
			depth = c.depth
		}
		if c.dynamic {
			t.dynamic = true
		}
		texts[i] = c.text
	}
	if depth+1 > MaxTypeDepth {
		return malformedf("type depth exceeds %d", MaxTypeDepth)
	}
	t.depth = depth + 1
	t.text = "(" + strings.Join(texts, ",") + ")"
	t.size = -1
	if !t.dynamic {
		for i := 0; i < len(children); {
			if children[i].tag == TBool {
				end := boolRunEnd(children, i)
				size += (end - i + 7) / 8
				i = end
				continue
			}
			size += children[i].size
			i++
		}
		t.size = size
	}
	if t.size == 0 {
		t.zeroValues = 1
		for _, c := range children {
			t.zeroValues += c.zeroValues
		}
		if t.zeroValues > MaxZeroWidthValues {
			return malformedf("%s decodes to %d values without input, exceeds %d",
				t.text, t.zeroValues, MaxZeroWidthValues)
		}
	}
	return nil
}

// boolRunEnd returns the exclusive end index of the run of Bool types
// starting at i.
func boolRunEnd(types []*Type, i int) int {
	for i < len(types) && types[i].tag == TBool {
		i++
	}
	return i
}

func (t *Type) Tag() TypeTag {
	return t.tag
}

func (t *Type) BitSize() int {
	switch t.tag {
	case TByte:
		return 8
	default:
		return t.bitSize
	}
}

func (t *Type) Precision() int {
	return t.precision
}

func (t *Type) Elem() *Type {
	return t.elem
}

func (t *Type) Length() int {
	return t.length
}

func (t *Type) Children() []*Type {
	return append([]*Type{}, t.children...)
}

func (t *Type) Name() string {
	return t.name
}

func (t *Type) Fields() []Field {
	return append([]Field{}, t.fields...)
}

func (t *Type) IsDynamic() bool {
	return t.dynamic
}

func (t *Type) Depth() int {
	return t.depth
}

// ByteLen returns the encoded size of a static type.
func (t *Type) ByteLen() (int, error) {
	if t.dynamic {
		return 0, malformedf("dynamic type %s has no static byte length", t.text)
	}
	return t.size, nil
}

// String returns the canonical notation. Structs render as the tuple of
// their field types.
func (t *Type) String() string {
	return t.text
}

func (t *Type) DisplayName() string {
	if t.tag == TStruct && len(t.name) > 0 {
		return t.name
	}
	return t.text
}

// TupleType returns the positional tuple equivalent to a struct, with nested
// structs also converted. Other types are returned as is.
func (t *Type) TupleType() *Type {
	switch t.tag {
	case TStruct:
		children := make([]*Type, len(t.fields))
		for i, f := range t.fields {
			children[i] = f.Type.TupleType()
		}
		tt, err := NewTupleType(children...)
		if err != nil {
			log.Panicf("fail to NewTupleType err:%+v", err)
		}
		return tt
	case TTuple:
		changed := false
		children := make([]*Type, len(t.children))
		for i, c := range t.children {
			children[i] = c.TupleType()
			changed = changed || children[i] != c
		}
		if !changed {
			return t
		}
		tt, err := NewTupleType(children...)
		if err != nil {
			log.Panicf("fail to NewTupleType err:%+v", err)
		}
		return tt
	case TStaticArray, TDynamicArray:
		elem := t.elem.TupleType()
		if elem == t.elem {
			return t
		}
		if t.tag == TStaticArray {
			return MustStaticArrayType(elem, t.length)
		}
		return MustDynamicArrayType(elem)
	default:
		return t
	}
}

func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.tag != o.tag {
		return false
	}
	switch t.tag {
	case TUint:
		return t.bitSize == o.bitSize
	case TUfixed:
		return t.bitSize == o.bitSize && t.precision == o.precision
	case TStaticArray:
		return t.length == o.length && t.elem.Equal(o.elem)
	case TDynamicArray:
		return t.elem.Equal(o.elem)
	case TTuple:
		if len(t.children) != len(o.children) {
			return false
		}
		for i := range t.children {
			if !t.children[i].Equal(o.children[i]) {
				return false
			}
		}
		return true
	case TStruct:
		if t.name != o.name || len(t.fields) != len(o.fields) {
			return false
		}
		for i := range t.fields {
			if t.fields[i].Name != o.fields[i].Name || !t.fields[i].Type.Equal(o.fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func MustUintType(bitSize int) *Type {
	t, err := NewUintType(bitSize)
	if err != nil {
		log.Panicf("fail to NewUintType err:%+v", err)
	}
	return t
}

func MustUfixedType(bitSize, precision int) *Type {
	t, err := NewUfixedType(bitSize, precision)
	if err != nil {
		log.Panicf("fail to NewUfixedType err:%+v", err)
	}
	return t
}

func MustStaticArrayType(elem *Type, length int) *Type {
	t, err := NewStaticArrayType(elem, length)
	if err != nil {
		log.Panicf("fail to NewStaticArrayType err:%+v", err)
	}
	return t
}

func MustDynamicArrayType(elem *Type) *Type {
	t, err := NewDynamicArrayType(elem)
	if err != nil {
		log.Panicf("fail to NewDynamicArrayType err:%+v", err)
	}
	return t
}

func MustTupleType(children ...*Type) *Type {
	t, err := NewTupleType(children...)
	if err != nil {
		log.Panicf("fail to NewTupleType err:%+v", err)
	}
	return t
}

func MustStructType(name string, fields ...Field) *Type {
	t, err := NewStructType(name, fields...)
	if err != nil {
		log.Panicf("fail to NewStructType err:%+v", err)
	}
	return t
}
