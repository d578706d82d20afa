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
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testAddress1 = "MO2H6ZU47Q36GJ6GVHUKGEBEQINN7ZWVACMWZQGIYUOE3RBSRVYHV4ACJI"
	testAddress2 = "BEKKSMPBTPIGBYJGKD4XK7E7ZQJNZIHJVYFQWW3HNI32JHSH3LOGBRY3LE"
)

var testAddress1Bytes = []byte{
	99, 180, 127, 102, 156, 252, 55, 227, 39, 198, 169, 232, 163, 16, 36, 130,
	26, 223, 230, 213, 0, 153, 108, 192, 200, 197, 28, 77, 196, 50, 141, 112,
}

type codecCase struct {
	name     string
	typ      string
	value    interface{}
	expected []byte
}

func codecCases() []codecCase {
	addr := MustParseAddress(testAddress1)
	return []codecCase{
		{"uint8 zero", "uint8", uint64(0), []byte{0}},
		{"uint16", "uint16", uint64(3), []byte{0, 3}},
		{"uint64", "uint64", big.NewInt(256), []byte{0, 0, 0, 0, 0, 0, 1, 0}},
		{"ufixed8x30", "ufixed8x30", uint64(255), []byte{255}},
		{"ufixed32x10", "ufixed32x10", uint64(33), []byte{0, 0, 0, 33}},
		{"address", "address", addr, testAddress1Bytes},
		{"string with unicode", "string", "What’s new",
			[]byte{0, 12, 87, 104, 97, 116, 226, 128, 153, 115, 32, 110, 101, 119}},
		{"string with emoji", "string", "\U0001F605\U0001F528",
			[]byte{0, 8, 240, 159, 152, 133, 240, 159, 148, 168}},
		{"simple string", "string", "asdf", []byte{0, 4, 97, 115, 100, 102}},
		{"byte 10", "byte", byte(10), []byte{10}},
		{"byte 255", "byte", byte(255), []byte{255}},
		{"bool true", "bool", true, []byte{128}},
		{"bool false", "bool", false, []byte{0}},
		{"bool[3]", "bool[3]", []interface{}{true, true, false}, []byte{192}},
		{"bool[8] 01000000", "bool[8]",
			[]interface{}{false, true, false, false, false, false, false, false}, []byte{64}},
		{"bool[8] all true", "bool[8]",
			[]interface{}{true, true, true, true, true, true, true, true}, []byte{255}},
		{"bool[9]", "bool[9]",
			[]interface{}{true, false, false, true, false, false, true, false, true}, []byte{146, 128}},
		{"uint64[3]", "uint64[3]",
			[]interface{}{big.NewInt(1), big.NewInt(2), big.NewInt(3)},
			[]byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 3}},
		{"empty bool[]", "bool[]", []interface{}{}, []byte{0, 0}},
		{"bool[] 3", "bool[]", []interface{}{true, true, false}, []byte{0, 3, 192}},
		{"bool[] 8", "bool[]",
			[]interface{}{false, true, false, false, false, false, false, false}, []byte{0, 8, 64}},
		{"bool[] 9", "bool[]",
			[]interface{}{true, false, false, true, false, false, true, false, true}, []byte{0, 9, 146, 128}},
		{"(uint8,uint16)", "(uint8,uint16)", []interface{}{uint64(1), uint64(2)}, []byte{1, 0, 2}},
		{"(uint32,uint32)", "(uint32,uint32)", []interface{}{uint64(1), uint64(2)},
			[]byte{0, 0, 0, 1, 0, 0, 0, 2}},
		{"(uint32,string)", "(uint32,string)", []interface{}{uint64(42), "hello"},
			[]byte{0, 0, 0, 42, 0, 6, 0, 5, 104, 101, 108, 108, 111}},
		{"(uint16,bool)", "(uint16,bool)", []interface{}{uint64(1234), false}, []byte{4, 210, 0}},
		{"(uint32,string,bool)", "(uint32,string,bool)", []interface{}{uint64(42), "test", false},
			[]byte{0, 0, 0, 42, 0, 7, 0, 0, 4, 116, 101, 115, 116}},
		{"empty tuple", "()", []interface{}{}, []byte{}},
		{"triple bool", "(bool,bool,bool)", []interface{}{false, true, true}, []byte{96}},
		{"(bool[3])", "(bool[3])", []interface{}{[]interface{}{false, true, true}}, []byte{96}},
		{"(bool[])", "(bool[])", []interface{}{[]interface{}{false, true, true}}, []byte{0, 2, 0, 3, 96}},
		{"(bool[2],bool[])", "(bool[2],bool[])",
			[]interface{}{[]interface{}{true, true}, []interface{}{true, true}},
			[]byte{192, 0, 3, 0, 2, 192}},
		{"two empty bool[]", "(bool[],bool[])",
			[]interface{}{[]interface{}{}, []interface{}{}},
			[]byte{0, 4, 0, 6, 0, 0, 0, 0}},
		{"strings and bools", "(string,bool,bool,bool,bool,string)",
			[]interface{}{"AB", true, false, true, false, "DE"},
			[]byte{0, 5, 160, 0, 9, 0, 2, 65, 66, 0, 2, 68, 69}},
		{"nested tuple", "(uint16,(byte,address))",
			[]interface{}{uint64(42), []interface{}{byte(234), addr}},
			append([]byte{0, 42, 234}, testAddress1Bytes...)},
		{"byte[0]", "byte[0]", []byte{}, []byte{}},
		{"byte[4]", "byte[4]", []byte{1, 2, 3, 4}, []byte{1, 2, 3, 4}},
		{"byte[]", "byte[]", []byte{10, 20, 30}, []byte{0, 3, 10, 20, 30}},
		{"byte[2][]", "byte[2][]",
			[]interface{}{[]byte{1, 2}, []byte{3, 4}, []byte{5, 6}},
			[]byte{0, 3, 1, 2, 3, 4, 5, 6}},
		{"uint8[3]", "uint8[3]", []interface{}{uint64(1), uint64(2), uint64(3)}, []byte{1, 2, 3}},
		{"(byte[2],bool,byte[3])", "(byte[2],bool,byte[3])",
			[]interface{}{[]byte{1, 2}, true, []byte{3, 4, 5}},
			[]byte{1, 2, 128, 3, 4, 5}},
		{"(byte[2],(byte[1],bool))", "(byte[2],(byte[1],bool))",
			[]interface{}{[]byte{1, 2}, []interface{}{[]byte{3}, true}},
			[]byte{1, 2, 3, 128}},
		{"string[]", "string[]", []interface{}{"a", "bc"},
			[]byte{0, 2, 0, 4, 0, 7, 0, 1, 97, 0, 2, 98, 99}},
	}
}

func Test_EncodeDecode(t *testing.T) {
	for _, c := range codecCases() {
		typ, err := ParseType(c.typ)
		if !assert.NoError(t, err, c.name) {
			continue
		}
		b, err := Encode(typ, c.value)
		if !assert.NoError(t, err, c.name) {
			continue
		}
		assert.Equal(t, c.expected, b, c.name)

		v, err := Decode(typ, b)
		if !assert.NoError(t, err, c.name) {
			continue
		}
		assert.Equal(t, c.value, v, c.name)

		b2, err := Encode(typ, v)
		assert.NoError(t, err, c.name)
		assert.Equal(t, b, b2, c.name)
	}
}

func Test_EncodeValueForms(t *testing.T) {
	u64 := MustParseType("uint64")
	expected := []byte{0, 0, 0, 0, 0, 0, 1, 0}
	for _, v := range []interface{}{
		256, int64(256), uint16(256), uint64(256), float64(256),
		"256", "0x100", json.Number("256"), *big.NewInt(256), big.NewInt(256),
	} {
		b, err := Encode(u64, v)
		if assert.NoError(t, err, "%T", v) {
			assert.Equal(t, expected, b, "%T", v)
		}
	}

	b, err := Encode(MustParseType("byte[3]"), "0x010203")
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)

	b, err = Encode(MustParseType("uint8[2]"), []int{1, 2})
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)

	b, err = Encode(AddressType, testAddress1Bytes)
	assert.NoError(t, err)
	assert.Equal(t, testAddress1Bytes, b)

	b, err = Encode(AddressType, testAddress1)
	assert.NoError(t, err)
	assert.Equal(t, testAddress1Bytes, b)
}

func Test_NumericWidthBoundary(t *testing.T) {
	for bitSize := MinBitSize; bitSize <= MaxBitSize; bitSize += 8 {
		typ := MustUintType(bitSize)
		b, err := Encode(typ, 1)
		if !assert.NoError(t, err) {
			continue
		}
		assert.Len(t, b, bitSize/8)
		v, err := Decode(typ, b)
		if !assert.NoError(t, err) {
			continue
		}
		if bitSize < NativeBitSizeLimit {
			assert.Equal(t, uint64(1), v, "uint%d", bitSize)
		} else {
			assert.Equal(t, big.NewInt(1), v, "uint%d", bitSize)
		}
	}
	v, err := Decode(MustUintType(48), []byte{0, 0, 0, 0, 0, 1})
	assert.NoError(t, err)
	assert.IsType(t, uint64(0), v)
	v, err = Decode(MustUintType(56), []byte{0, 0, 0, 0, 0, 0, 1})
	assert.NoError(t, err)
	assert.IsType(t, &big.Int{}, v)
}

func Test_StructTupleEquivalence(t *testing.T) {
	addr := MustParseAddress(testAddress2)
	tupleType := MustParseType("(uint8,(uint16,string,string[]),(bool,byte),(byte,address))")
	structType := MustStructType("Struct 1",
		Field{Name: "field 1", Type: MustUintType(8)},
		Field{Name: "field 2", Type: MustStructType("Struct 2",
			Field{Name: "Struct 2 field 1", Type: MustUintType(16)},
			Field{Name: "Struct 2 field 2", Type: StringType},
			Field{Name: "Struct 2 field 3", Type: MustDynamicArrayType(StringType)},
		)},
		Field{Name: "field 3", Type: MustStructType("",
			Field{Name: "field 3 child 1", Type: BoolType},
			Field{Name: "field 3 child 2", Type: ByteType},
		)},
		Field{Name: "field 4", Type: MustTupleType(ByteType, AddressType)},
	)
	assert.Equal(t, tupleType.String(), structType.String())

	tupleValue := []interface{}{
		uint64(123),
		[]interface{}{uint64(65432), "hello", []interface{}{"world 1", "world 2", "world 3"}},
		[]interface{}{false, byte(88)},
		[]interface{}{byte(222), addr},
	}
	structValue := map[string]interface{}{
		"field 1": uint64(123),
		"field 2": map[string]interface{}{
			"Struct 2 field 1": uint64(65432),
			"Struct 2 field 2": "hello",
			"Struct 2 field 3": []interface{}{"world 1", "world 2", "world 3"},
		},
		"field 3": map[string]interface{}{
			"field 3 child 1": false,
			"field 3 child 2": byte(88),
		},
		"field 4": []interface{}{byte(222), addr},
	}

	encodedTuple, err := Encode(tupleType, tupleValue)
	assert.NoError(t, err)
	encodedStruct, err := Encode(structType, structValue)
	assert.NoError(t, err)
	assert.Equal(t, encodedTuple, encodedStruct)

	v, err := Decode(tupleType, encodedTuple)
	assert.NoError(t, err)
	assert.Equal(t, tupleValue, v)

	v, err = Decode(structType, encodedTuple)
	assert.NoError(t, err)
	assert.Equal(t, structValue, v)

	encodedPositional, err := Encode(structType, tupleValue)
	assert.NoError(t, err)
	assert.Equal(t, encodedTuple, encodedPositional)

	v, err = Decode(structType.TupleType(), encodedStruct)
	assert.NoError(t, err)
	assert.Equal(t, tupleValue, v)
}

func Test_DecodeUserStruct(t *testing.T) {
	user := MustStructType("User",
		Field{Name: "userId", Type: MustUintType(16)},
		Field{Name: "name", Type: StringType})
	v, err := Decode(user, []byte{0, 1, 0, 4, 0, 5, 119, 111, 114, 108, 100})
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"userId": uint64(1), "name": "world"}, v)

	type User struct {
		ID   uint16 `abi:"userId"`
		Name string `json:"name"`
	}
	b, err := Encode(user, User{ID: 1, Name: "world"})
	assert.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0, 4, 0, 5, 119, 111, 114, 108, 100}, b)

	var u User
	assert.NoError(t, DecodeInto(user, b, &u))
	assert.Equal(t, User{ID: 1, Name: "world"}, u)
}

func Test_StructElements(t *testing.T) {
	info := MustStructType("Info",
		Field{Name: "name", Type: StringType},
		Field{Name: "value", Type: MustUintType(16)})
	values := []interface{}{
		map[string]interface{}{"name": "abc", "value": uint64(7)},
		map[string]interface{}{"name": "d", "value": uint64(1)},
	}
	elems := []byte{0, 4, 0, 7, 0, 3, 97, 98, 99, 0, 4, 0, 1, 0, 1, 100}

	dynamic := MustDynamicArrayType(info)
	assert.Equal(t, "(string,uint16)[]", dynamic.String())
	b, err := Encode(dynamic, values)
	assert.NoError(t, err)
	assert.Equal(t, append([]byte{0, 2, 0, 4, 0, 13}, elems...), b)
	v, err := Decode(dynamic, b)
	assert.NoError(t, err)
	assert.Equal(t, values, v)

	static := MustStaticArrayType(info, 2)
	b, err = Encode(static, values)
	assert.NoError(t, err)
	assert.Equal(t, append([]byte{0, 4, 0, 13}, elems...), b)
	v, err = Decode(static, b)
	assert.NoError(t, err)
	assert.Equal(t, values, v)
}

func Test_EncodeMismatch(t *testing.T) {
	user := MustStructType("User",
		Field{Name: "userId", Type: MustUintType(16)},
		Field{Name: "name", Type: StringType})
	twoTo512 := new(big.Int).Lsh(big.NewInt(1), 512)
	cases := []struct {
		typ   *Type
		value interface{}
	}{
		{MustUintType(8), -1},
		{MustUintType(8), big.NewInt(-1)},
		{MustUintType(8), 256},
		{MustUintType(512), twoTo512},
		{MustUfixedType(512, 10), big.NewInt(-1)},
		{MustUintType(64), 1.5},
		{MustUintType(64), true},
		{MustUintType(64), "hello"},
		{ByteType, -1},
		{ByteType, 256},
		{AddressType, "BADADDRESS"},
		{AddressType, strings.Replace(testAddress1, "M", "N", 1)},
		{AddressType, []byte{1, 2, 3}},
		{BoolType, 1},
		{StringType, 1},
		{MustStaticArrayType(BoolType, 3), []interface{}{true}},
		{MustStaticArrayType(StringType, 1), []interface{}{true}},
		{MustStaticArrayType(MustUintType(256), 1), []interface{}{"hello"}},
		{MustDynamicArrayType(AddressType), []interface{}{false}},
		{MustTupleType(BoolType, MustUfixedType(128, 20)), []interface{}{big.NewInt(3), true}},
		{MustTupleType(BoolType), []interface{}{true, false}},
		{MustTupleType(BoolType), "true"},
		{MustParseType("byte[2]"), "0x010203"},
		{MustParseType("byte[]"), "0xzz"},
		{user, map[string]interface{}{"userId": 1}},
		{user, map[string]interface{}{"userId": 1, "name": "a", "age": 3}},
		{user, []interface{}{1}},
		{user, nil},
		{StringType, strings.Repeat("a", MaxLength+1)},
		{MustTupleType(StringType, StringType, StringType), []interface{}{
			strings.Repeat("a", 40000), strings.Repeat("b", 40000), "c"}},
	}
	for i, c := range cases {
		b, err := Encode(c.typ, c.value)
		assert.True(t, IsValueShapeMismatch(err), "case %d type:%s err:%v", i, c.typ, err)
		assert.Nil(t, b)
	}

	_, err := Encode(MustParseType("(uint8,(string,uint8))"), []interface{}{1, []interface{}{"a", 300}})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "[1][1]")
	}
	_, err = Encode(user, map[string]interface{}{"userId": 1, "name": 2})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "name")
	}
}

func Test_DecodeErrors(t *testing.T) {
	truncated := []struct {
		typ string
		b   []byte
	}{
		{"uint16", []byte{0}},
		{"bool", []byte{}},
		{"address", []byte{1, 2, 3}},
		{"string", []byte{0}},
		{"string", []byte{0, 5, 97}},
		{"bool[]", []byte{0, 9, 128}},
		{"uint8[]", []byte{0, 3, 1, 2}},
		{"(uint8,string)", []byte{1, 0}},
		{"(bool,bool,uint8)", []byte{}},
		{"byte[]", []byte{0}},
	}
	for _, c := range truncated {
		_, err := Decode(MustParseType(c.typ), c.b)
		assert.True(t, IsTruncatedInput(err), "type:%s bytes:%v err:%v", c.typ, c.b, err)
	}

	invalid := []struct {
		typ string
		b   []byte
	}{
		{"uint16", []byte{0, 0, 0}},
		{"bool", []byte{1}},
		{"bool", []byte{0xff}},
		{"string", []byte{0, 1, 97, 98}},
		{"string", []byte{0, 1, 0xff}},
		{"(uint8)", []byte{1, 2}},
		{"()", []byte{0}},
		{"(string)", []byte{0, 3, 0, 0, 0}},
		{"(string,string)", []byte{0, 4, 0, 2, 0, 0, 0, 0}},
		{"(string,string)", []byte{0, 4, 0, 9, 0, 0}},
		{"(bool)", []byte{0x81}},
		{"bool[3]", []byte{0xe1}},
		{"uint8[2]", []byte{1, 2, 3}},
		{"(uint8,(bool,string))", []byte{1, 0, 3, 0x40, 0, 3, 0, 0}},
	}
	for _, c := range invalid {
		_, err := Decode(MustParseType(c.typ), c.b)
		assert.True(t, IsInvalidEncoding(err), "type:%s bytes:%v err:%v", c.typ, c.b, err)
	}
}

func Test_ZeroWidthTypes(t *testing.T) {
	for _, text := range []string{"()[65535][65535]", "()[2][65535]", "(()[65535],())"} {
		_, err := ParseType(text)
		assert.True(t, IsMalformedType(err), "text:%q err:%v", text, err)
	}

	v, err := Decode(MustParseType("()[65535]"), []byte{})
	if assert.NoError(t, err) {
		assert.Len(t, v, 65535)
	}
	v, err = Decode(MustParseType("()[]"), []byte{0xff, 0xff})
	if assert.NoError(t, err) {
		assert.Len(t, v, 65535)
	}
	v, err = Decode(MustParseType("byte[0][]"), []byte{0, 3})
	if assert.NoError(t, err) {
		assert.Equal(t, []interface{}{[]byte{}, []byte{}, []byte{}}, v)
	}
	_, err = Decode(MustParseType("()[2][]"), []byte{0xff, 0xff})
	assert.True(t, IsInvalidEncoding(err), "err:%v", err)
}

func Test_Determinism(t *testing.T) {
	typ := MustParseType("(string,bool[],(uint256,address)[2],byte[])")
	value := []interface{}{
		"determinism",
		[]interface{}{true, false, true},
		[]interface{}{
			[]interface{}{big.NewInt(1), MustParseAddress(testAddress1)},
			[]interface{}{big.NewInt(2), MustParseAddress(testAddress2)},
		},
		[]byte("raw"),
	}
	first, err := Encode(typ, value)
	assert.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := Encode(typ, value)
		assert.NoError(t, err)
		assert.Equal(t, first, b, fmt.Sprintf("iteration %d", i))
	}
	v, err := Decode(typ, first)
	assert.NoError(t, err)
	assert.Equal(t, value, v)
}
