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
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParseMethod(t *testing.T) {
	cases := []struct {
		signature string
		name      string
		args      int
		void      bool
	}{
		{"add(uint64,uint64)uint64", "add", 2, false},
		{"getName()string", "getName", 0, false},
		{"doSomething(uint64)void", "doSomething", 1, true},
		{"transfer(address,uint64,pay)bool", "transfer", 3, false},
		{"nested((uint64,(bool,string)),txn)(uint8,byte[])", "nested", 2, false},
	}
	for _, c := range cases {
		m, err := ParseMethod(c.signature)
		if !assert.NoError(t, err, c.signature) {
			continue
		}
		assert.Equal(t, c.name, m.Name)
		assert.Len(t, m.Args, c.args)
		assert.Equal(t, c.void, m.IsVoid())
		assert.Equal(t, c.signature, m.Signature())
	}

	m := MustParseMethod("transfer(address,uint64,pay)bool")
	assert.Equal(t, AddressType, m.Args[0].Type.Type)
	assert.True(t, m.Args[2].Type.IsTransaction())
	assert.Equal(t, TxnPayment, m.Args[2].Type.Txn)

	for _, s := range []string{
		"add",
		"(uint64)void",
		"add(uint64",
		"add(uint64)",
		"add(uint65)void",
		"add(uint64,)void",
		"add(uint64)voids",
	} {
		_, err := ParseMethod(s)
		assert.True(t, IsMalformedType(err), "signature:%q err:%v", s, err)
	}
}

func Test_MethodSelector(t *testing.T) {
	cases := []struct {
		signature string
		selector  string
	}{
		{"add(uint64,uint64)uint64", "fe6bdf69"},
		{"optIn()void", "29314d95"},
		{"deposit(pay,uint64)void", "f2355b55"},
		{"bootstrap(pay,pay,application)void", "895c2a3b"},
		{"get(account,asset)(uint64,string)", "131c64da"},
	}
	for _, c := range cases {
		m := MustParseMethod(c.signature)
		assert.Equal(t, c.selector, hex.EncodeToString(m.Selector()), c.signature)
	}
}

func Test_MethodEncodeArgs(t *testing.T) {
	m := MustParseMethod("deposit(pay,uint64)void")
	appArgs, err := m.EncodeArgs(nil, 5)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{m.Selector(), {0, 0, 0, 0, 0, 0, 0, 5}}, appArgs)

	values, err := m.DecodeArgs(appArgs)
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{nil, big.NewInt(5)}, values)

	m = MustParseMethod("get(account,asset)(uint64,string)")
	appArgs, err = m.EncodeArgs(1, 0)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{m.Selector(), {1}, {0}}, appArgs)
	values, err = m.DecodeArgs(appArgs)
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{uint64(1), uint64(0)}, values)

	_, err = m.EncodeArgs(1)
	assert.True(t, IsValueShapeMismatch(err))
	_, err = m.EncodeArgs(256, 0)
	assert.True(t, IsValueShapeMismatch(err))

	_, err = m.DecodeArgs(nil)
	assert.True(t, IsTruncatedInput(err))
	_, err = m.DecodeArgs([][]byte{{1, 2, 3, 4}, {1}, {0}})
	assert.True(t, IsInvalidEncoding(err))
	_, err = m.DecodeArgs([][]byte{m.Selector(), {1}})
	assert.True(t, IsInvalidEncoding(err))
}

func manyArgsMethod(n int) *Method {
	args := make([]string, n)
	for i := range args {
		args[i] = "uint8"
	}
	return MustParseMethod("many(" + strings.Join(args, ",") + ",pay)void")
}

func Test_MethodArgsTuplePacking(t *testing.T) {
	m := manyArgsMethod(15)
	values := make([]interface{}, 16)
	for i := 0; i < 15; i++ {
		values[i] = i
	}
	appArgs, err := m.EncodeArgs(values...)
	assert.NoError(t, err)
	assert.Len(t, appArgs, MaxAppArgs)
	assert.Equal(t, []byte{14}, appArgs[15])

	m = manyArgsMethod(17)
	values = make([]interface{}, 18)
	for i := 0; i < 17; i++ {
		values[i] = i
	}
	appArgs, err = m.EncodeArgs(values...)
	assert.NoError(t, err)
	assert.Len(t, appArgs, MaxAppArgs)
	assert.Equal(t, []byte{13}, appArgs[14])
	assert.Equal(t, []byte{14, 15, 16}, appArgs[15])

	decoded, err := m.DecodeArgs(appArgs)
	assert.NoError(t, err)
	assert.Len(t, decoded, 18)
	for i := 0; i < 17; i++ {
		assert.Equal(t, uint64(i), decoded[i])
	}
	assert.Nil(t, decoded[17])
}

func Test_MethodReturn(t *testing.T) {
	m := MustParseMethod("get(account,asset)(uint64,string)")
	log, err := m.EncodeReturn([]interface{}{7, "ok"})
	assert.NoError(t, err)
	assert.Equal(t, ReturnPrefix, log[:len(ReturnPrefix)])

	v, err := m.DecodeReturn(log)
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{big.NewInt(7), "ok"}, v)

	_, err = m.DecodeReturn([]byte{0x15, 0x1f})
	assert.True(t, IsTruncatedInput(err))
	_, err = m.DecodeReturn(append([]byte{0, 0, 0, 0}, log[len(ReturnPrefix):]...))
	assert.True(t, IsInvalidEncoding(err))

	void := MustParseMethod("optIn()void")
	v, err = void.DecodeReturn(nil)
	assert.NoError(t, err)
	assert.Nil(t, v)
	_, err = void.EncodeReturn(1)
	assert.True(t, IsValueShapeMismatch(err))
}
