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
	"math/big"
	"unicode/utf8"
)

// Decode parses b as t. The whole of b must be consumed.
func Decode(t *Type, b []byte) (interface{}, error) {
	if t == nil {
		return nil, invalidf("", "nil type")
	}
	return decode(t, b, "")
}

func MustDecode(t *Type, b []byte) interface{} {
	v, err := Decode(t, b)
	if err != nil {
		panic(err)
	}
	return v
}

func checkStaticLen(t *Type, b []byte, p path) error {
	if len(b) < t.size {
		return truncatedf(p, "fail to decode %s, expected %d bytes, actual %d", t.text, t.size, len(b))
	}
	if len(b) > t.size {
		return invalidf(p, "fail to decode %s, expected %d bytes, actual %d", t.text, t.size, len(b))
	}
	return nil
}

func decode(t *Type, b []byte, p path) (interface{}, error) {
	abiLogger.Traceln("decode type:", t.text, "path:", p, "len:", len(b))
	switch t.tag {
	case TUint, TUfixed:
		if err := checkStaticLen(t, b, p); err != nil {
			return nil, err
		}
		if t.bitSize < NativeBitSizeLimit {
			var v uint64
			for _, c := range b {
				v = v<<8 | uint64(c)
			}
			return v, nil
		}
		return new(big.Int).SetBytes(b), nil
	case TByte:
		if err := checkStaticLen(t, b, p); err != nil {
			return nil, err
		}
		return b[0], nil
	case TBool:
		if err := checkStaticLen(t, b, p); err != nil {
			return nil, err
		}
		switch b[0] {
		case boolTrue:
			return true, nil
		case boolFalse:
			return false, nil
		default:
			return nil, invalidf(p, "fail to decode bool, invalid byte 0x%02x", b[0])
		}
	case TAddress:
		if err := checkStaticLen(t, b, p); err != nil {
			return nil, err
		}
		var a Address
		copy(a[:], b)
		return a, nil
	case TString:
		return decodeString(b, p)
	case TStaticArray:
		types := make([]*Type, t.length)
		for i := range types {
			types[i] = t.elem
		}
		values, err := decodeTuple(types, b, p, nil)
		if err != nil {
			return nil, err
		}
		return arrayValue(t.elem, values), nil
	case TDynamicArray:
		if len(b) < lengthSize {
			return nil, truncatedf(p, "fail to decode %s, missing length prefix", t.text)
		}
		count := int(binary.BigEndian.Uint16(b))
		if t.elem.size == 0 && count*t.elem.zeroValues > MaxZeroWidthValues {
			return nil, invalidf(p, "fail to decode %s, %d zero width elements exceed %d values",
				t.text, count, MaxZeroWidthValues)
		}
		types := make([]*Type, count)
		for i := range types {
			types[i] = t.elem
		}
		values, err := decodeTuple(types, b[lengthSize:], p, nil)
		if err != nil {
			return nil, err
		}
		return arrayValue(t.elem, values), nil
	case TTuple:
		return decodeTuple(t.children, b, p, nil)
	case TStruct:
		names := make([]string, len(t.fields))
		for i, f := range t.fields {
			names[i] = f.Name
		}
		values, err := decodeTuple(t.children, b, p, names)
		if err != nil {
			return nil, err
		}
		m := make(map[string]interface{}, len(values))
		for i, v := range values {
			m[names[i]] = v
		}
		return m, nil
	default:
		return nil, invalidf(p, "fail to decode, unknown type tag %v", t.tag)
	}
}

func arrayValue(elem *Type, values []interface{}) interface{} {
	if elem.tag != TByte {
		return values
	}
	r := make([]byte, len(values))
	for i, v := range values {
		r[i] = v.(byte)
	}
	return r
}

func decodeString(b []byte, p path) (interface{}, error) {
	if len(b) < lengthSize {
		return nil, truncatedf(p, "fail to decode string, missing length prefix")
	}
	n := int(binary.BigEndian.Uint16(b))
	s := b[lengthSize:]
	if len(s) < n {
		return nil, truncatedf(p, "fail to decode string, expected %d bytes, actual %d", n, len(s))
	}
	if len(s) > n {
		return nil, invalidf(p, "fail to decode string, length prefix %d disagrees with %d bytes", n, len(s))
	}
	if !utf8.Valid(s) {
		return nil, invalidf(p, "fail to decode string, invalid UTF-8")
	}
	return string(s), nil
}

// decodeTuple splits b into one partition per type and decodes each. The
// head layout is derived from types alone. Dynamic segments run from their
// offset to the next offset, and the last one to the end of b.
func decodeTuple(types []*Type, b []byte, p path, names []string) ([]interface{}, error) {
	childPath := func(i int) path {
		if names != nil {
			return p.field(names[i])
		}
		return p.index(i)
	}
	values := make([]interface{}, len(types))
	var (
		dynamics []int
		offsets  []int
		cursor   = 0
	)
	for i := 0; i < len(types); {
		t := types[i]
		if t.tag == TBool {
			end := boolRunEnd(types, i)
			n := (end - i + 7) / 8
			if cursor+n > len(b) {
				return nil, truncatedf(childPath(i), "fail to decode bool, input too short")
			}
			packed := b[cursor : cursor+n]
			for j := i; j < end; j++ {
				values[j] = packed[(j-i)/8]&(boolTrue>>uint((j-i)%8)) != 0
			}
			if pad := (end - i) % 8; pad != 0 && packed[n-1]&(0xff>>uint(pad)) != 0 {
				return nil, invalidf(childPath(i), "fail to decode bool, non-zero padding bits")
			}
			cursor += n
			i = end
			continue
		}
		if t.dynamic {
			if cursor+lengthSize > len(b) {
				return nil, truncatedf(childPath(i), "fail to decode %s, missing offset", t.text)
			}
			dynamics = append(dynamics, i)
			offsets = append(offsets, int(binary.BigEndian.Uint16(b[cursor:])))
			cursor += lengthSize
		} else {
			if cursor+t.size > len(b) {
				return nil, truncatedf(childPath(i), "fail to decode %s, input too short", t.text)
			}
			v, err := decode(t, b[cursor:cursor+t.size], childPath(i))
			if err != nil {
				return nil, err
			}
			values[i] = v
			cursor += t.size
		}
		i++
	}
	headLen := cursor
	if len(dynamics) == 0 {
		if headLen != len(b) {
			return nil, invalidf(p, "input bytes not fully consumed, %d of %d", headLen, len(b))
		}
		return values, nil
	}
	if offsets[0] != headLen {
		return nil, invalidf(p, "first offset %d must equal head length %d", offsets[0], headLen)
	}
	for k, offset := range offsets {
		if k > 0 && offset < offsets[k-1] {
			return nil, invalidf(childPath(dynamics[k]), "dynamic segments must be consecutive")
		}
		if offset > len(b) {
			return nil, invalidf(childPath(dynamics[k]), "offset %d beyond input length %d", offset, len(b))
		}
	}
	for k, i := range dynamics {
		end := len(b)
		if k+1 < len(offsets) {
			end = offsets[k+1]
		}
		v, err := decode(types[i], b[offsets[k]:end], childPath(i))
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
