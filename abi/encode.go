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

package abi

import (
	"encoding/binary"
	"unicode/utf8"
)

// Encode returns the ABI encoding of value as t.
func Encode(t *Type, value interface{}) ([]byte, error) {
	if t == nil {
		return nil, mismatchf("", "nil type")
	}
	return encode(t, value, "")
}

func MustEncode(t *Type, value interface{}) []byte {
	b, err := Encode(t, value)
	if err != nil {
		panic(err)
	}
	return b
}

func encode(t *Type, value interface{}, p path) ([]byte, error) {
	abiLogger.Traceln("encode type:", t.text, "path:", p)
	switch t.tag {
	case TUint, TUfixed, TByte:
		return encodeInteger(t, value, p)
	case TBool:
		v, err := BooleanOf(value)
		if err != nil {
			return nil, mismatchf(p, "fail to encode %s, err:%s", t.text, err.Error())
		}
		if v {
			return []byte{boolTrue}, nil
		}
		return []byte{boolFalse}, nil
	case TAddress:
		a, err := AddressOf(value)
		if err != nil {
			return nil, mismatchf(p, "fail to encode address, err:%s", err.Error())
		}
		return a.PublicKey(), nil
	case TString:
		return encodeString(value, p)
	case TStaticArray:
		return encodeArray(t, value, p)
	case TDynamicArray:
		return encodeArray(t, value, p)
	case TTuple:
		values, err := SequenceOf(value)
		if err != nil {
			return nil, mismatchf(p, "fail to encode %s, err:%s", t.text, err.Error())
		}
		if len(values) != len(t.children) {
			return nil, mismatchf(p, "fail to encode %s, expected %d values, actual %d",
				t.text, len(t.children), len(values))
		}
		return encodeTuple(t.children, values, p, nil)
	case TStruct:
		values, err := FieldValuesOf(t.fields, value)
		if err != nil {
			return nil, mismatchf(p, "fail to encode struct %s, err:%s", t.DisplayName(), err.Error())
		}
		names := make([]string, len(t.fields))
		for i, f := range t.fields {
			names[i] = f.Name
		}
		return encodeTuple(t.children, values, p, names)
	default:
		return nil, mismatchf(p, "fail to encode, unknown type tag %v", t.tag)
	}
}

func encodeInteger(t *Type, value interface{}, p path) ([]byte, error) {
	bi, err := IntegerOf(value)
	if err != nil {
		return nil, mismatchf(p, "fail to encode %s, err:%s", t.text, err.Error())
	}
	if bi.Sign() < 0 {
		return nil, mismatchf(p, "fail to encode %s, negative value %s", t.text, bi.String())
	}
	bitSize := t.BitSize()
	if bi.BitLen() > bitSize {
		return nil, mismatchf(p, "fail to encode %s, value %s exceeds %d bits",
			t.text, bi.String(), bitSize)
	}
	b := make([]byte, bitSize/8)
	return bi.FillBytes(b), nil
}

func encodeString(value interface{}, p path) ([]byte, error) {
	s, err := StringOf(value)
	if err != nil {
		return nil, mismatchf(p, "fail to encode string, err:%s", err.Error())
	}
	if !utf8.ValidString(s) {
		return nil, mismatchf(p, "fail to encode string, invalid UTF-8")
	}
	if len(s) > MaxLength {
		return nil, mismatchf(p, "fail to encode string, length %d exceeds %d", len(s), MaxLength)
	}
	b := make([]byte, lengthSize+len(s))
	binary.BigEndian.PutUint16(b, uint16(len(s)))
	copy(b[lengthSize:], s)
	return b, nil
}

func encodeArray(t *Type, value interface{}, p path) ([]byte, error) {
	var values []interface{}
	if t.elem.tag == TByte {
		if b, ok, err := BytesOf(value); ok {
			if err != nil {
				return nil, mismatchf(p, "fail to encode %s, err:%s", t.text, err.Error())
			}
			values = make([]interface{}, len(b))
			for i := range b {
				values[i] = b[i]
			}
		}
	}
	if values == nil {
		var err error
		if values, err = SequenceOf(value); err != nil {
			return nil, mismatchf(p, "fail to encode %s, err:%s", t.text, err.Error())
		}
	}
	if t.tag == TStaticArray && len(values) != t.length {
		return nil, mismatchf(p, "fail to encode %s, expected %d elements, actual %d",
			t.text, t.length, len(values))
	}
	if len(values) > MaxLength {
		return nil, mismatchf(p, "fail to encode %s, length %d exceeds %d", t.text, len(values), MaxLength)
	}
	types := make([]*Type, len(values))
	for i := range types {
		types[i] = t.elem
	}
	b, err := encodeTuple(types, values, p, nil)
	if err != nil {
		return nil, err
	}
	if t.tag == TStaticArray {
		return b, nil
	}
	r := make([]byte, lengthSize+len(b))
	binary.BigEndian.PutUint16(r, uint16(len(values)))
	copy(r[lengthSize:], b)
	return r, nil
}

// encodeTuple lays out values by the head/tail algorithm. Tails of dynamic
// units are encoded first, offsets are derived from their lengths, and the
// head is assembled in a single pass.
func encodeTuple(types []*Type, values []interface{}, p path, names []string) ([]byte, error) {
	childPath := func(i int) path {
		if names != nil {
			return p.field(names[i])
		}
		return p.index(i)
	}
	type unit struct {
		static  []byte
		tail    []byte
		dynamic bool
	}
	units := make([]unit, 0, len(types))
	headLen := 0
	for i := 0; i < len(types); {
		t := types[i]
		if t.tag == TBool {
			end := boolRunEnd(types, i)
			packed := make([]byte, (end-i+7)/8)
			for j := i; j < end; j++ {
				v, err := BooleanOf(values[j])
				if err != nil {
					return nil, mismatchf(childPath(j), "fail to encode bool, err:%s", err.Error())
				}
				if v {
					packed[(j-i)/8] |= boolTrue >> uint((j-i)%8)
				}
			}
			units = append(units, unit{static: packed})
			headLen += len(packed)
			i = end
			continue
		}
		b, err := encode(t, values[i], childPath(i))
		if err != nil {
			return nil, err
		}
		if t.dynamic {
			units = append(units, unit{tail: b, dynamic: true})
			headLen += lengthSize
		} else {
			units = append(units, unit{static: b})
			headLen += len(b)
		}
		i++
	}

	tailLen := 0
	for _, u := range units {
		tailLen += len(u.tail)
	}
	r := make([]byte, 0, headLen+tailLen)
	offset := headLen
	for _, u := range units {
		if !u.dynamic {
			r = append(r, u.static...)
			continue
		}
		if offset > MaxLength {
			return nil, mismatchf(p, "fail to encode, offset %d cannot fit in 2 bytes", offset)
		}
		r = append(r, byte(offset>>8), byte(offset))
		offset += len(u.tail)
	}
	for _, u := range units {
		r = append(r, u.tail...)
	}
	return r, nil
}
