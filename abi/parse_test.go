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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParseType(t *testing.T) {
	cases := []struct {
		text string
		tag  TypeTag
	}{
		{"uint8", TUint},
		{"uint512", TUint},
		{"ufixed8x1", TUfixed},
		{"ufixed512x160", TUfixed},
		{"byte", TByte},
		{"bool", TBool},
		{"address", TAddress},
		{"string", TString},
		{"byte[32]", TStaticArray},
		{"uint64[]", TDynamicArray},
		{"bool[2][]", TDynamicArray},
		{"bool[][2]", TStaticArray},
		{"()", TTuple},
		{"(uint64,(string,bool[]),address)", TTuple},
		{"(uint64,string)[3][]", TDynamicArray},
	}
	for _, c := range cases {
		typ, err := ParseType(c.text)
		if assert.NoError(t, err, c.text) {
			assert.Equal(t, c.tag, typ.Tag(), c.text)
			assert.Equal(t, c.text, typ.String())
		}
	}

	typ := MustParseType("(uint64,string)[3][]")
	assert.Equal(t, TStaticArray, typ.Elem().Tag())
	assert.Equal(t, 3, typ.Elem().Length())
	assert.Equal(t, "(uint64,string)", typ.Elem().Elem().String())

	typ = MustParseType("ufixed64x10")
	assert.Equal(t, 64, typ.BitSize())
	assert.Equal(t, 10, typ.Precision())
}

func Test_ParseTypeMalformed(t *testing.T) {
	for _, text := range []string{
		"",
		"uint",
		"uint7",
		"uint520",
		"uint-8",
		"uintx",
		"int64",
		"ufixed64",
		"ufixed64x0",
		"ufixed64x161",
		"ufixed7x2",
		"bool[01]",
		"bool[65536]",
		"bool[-1]",
		"bool[",
		"bool]",
		"(uint8",
		"uint8)",
		"(,uint8)",
		"(uint8,)",
		"(uint8,,bool)",
		"((uint8)",
		"(uint8))",
		"Uint8",
		"void",
		"txn",
	} {
		_, err := ParseType(text)
		assert.True(t, IsMalformedType(err), "text:%q err:%v", text, err)
	}
}

func Test_ParseTypeDepth(t *testing.T) {
	ok := strings.Repeat("(", MaxTypeDepth-1) + "bool" + strings.Repeat(")", MaxTypeDepth-1)
	typ, err := ParseType(ok)
	assert.NoError(t, err)
	if typ != nil {
		assert.Equal(t, MaxTypeDepth, typ.Depth())
	}

	deep := strings.Repeat("(", MaxTypeDepth+10) + "bool" + strings.Repeat(")", MaxTypeDepth+10)
	_, err = ParseType(deep)
	assert.True(t, IsMalformedType(err))

	_, err = ParseType("bool" + strings.Repeat("[]", MaxTypeDepth))
	assert.True(t, IsMalformedType(err))
}

func Test_SplitTupleContent(t *testing.T) {
	cases := []struct {
		content  string
		expected []string
	}{
		{"uint64,string,bool", []string{"uint64", "string", "bool"}},
		{"(uint64,string),bool", []string{"(uint64,string)", "bool"}},
		{"(a,(b,c)),d[2]", []string{"(a,(b,c))", "d[2]"}},
		{"", []string{}},
	}
	for _, c := range cases {
		parts, err := SplitTupleContent(c.content)
		assert.NoError(t, err)
		assert.Equal(t, c.expected, parts)
	}
	for _, content := range []string{",a", "a,", "a,,b", "(a", "a)"} {
		_, err := SplitTupleContent(content)
		assert.True(t, IsMalformedType(err), content)
	}
}

func Test_ParserCache(t *testing.T) {
	p := MustNewParser(2)
	t1, err := p.Parse("(uint8,string)")
	assert.NoError(t, err)
	t2, err := p.Parse("(uint8,string)")
	assert.NoError(t, err)
	assert.Same(t, t1, t2)
	assert.Equal(t, 1, p.Len())

	_, err = p.Parse("uint8[")
	assert.Error(t, err)
	assert.Equal(t, 1, p.Len())

	_, _ = p.Parse("bool")
	_, _ = p.Parse("byte")
	assert.Equal(t, 2, p.Len())

	_, err = NewParser(0)
	assert.Error(t, err)
}
