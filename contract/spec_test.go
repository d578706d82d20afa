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

package contract

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"testing"

	"github.com/icon-project/btp2/common/errors"
	"github.com/stretchr/testify/assert"

	"github.com/icon-project/arc4-sdk/abi"
)

const (
	testSpecFile = "testdata/registry.arc56.json"
	// Info{name:"abc", level:7}
	testInfoHex = "000a00000000000000070003616263"
)

func readTestSpec(t *testing.T) []byte {
	b, err := os.ReadFile(testSpecFile)
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	return b
}

func loadTestSpec(t *testing.T) *Spec {
	s, err := ParseSpec(readTestSpec(t))
	if err != nil {
		assert.FailNow(t, err.Error())
	}
	return s
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func testInfo() map[string]interface{} {
	return map[string]interface{}{"name": "abc", "level": big.NewInt(7)}
}

func Test_SpecUnmarshal(t *testing.T) {
	s := loadTestSpec(t)
	assert.Equal(t, "Registry", s.Name)
	assert.Equal(t, []int{4, 56}, s.Arcs)
	assert.Len(t, s.Methods, 6)
	assert.Equal(t, uint64(1234), s.Networks["wGHE2Pwdvd7S12BL5FaOP20EGYesN73ktiC1qzkkit8="].AppID)
	assert.Equal(t, 1, s.State.Schema.Global.Ints)
	assert.Equal(t, []string{"NoOp"}, s.BareActions.Create)

	info, err := s.StructType("Info")
	assert.NoError(t, err)
	assert.Equal(t, "(string,uint64)", info.String())
	assert.Equal(t, "Info", info.DisplayName())

	wrapper, err := s.StructType("Wrapper")
	assert.NoError(t, err)
	assert.Equal(t, "((string,uint64),(bool))", wrapper.String())
	assert.True(t, wrapper.Fields()[0].Type.Equal(info))

	_, err = s.StructType("Unknown")
	assert.Equal(t, ErrorCodeNotFoundStruct, errors.CodeOf(err))

	assert.Len(t, s.EventMap, 2)
}

func Test_SpecMarshalFieldSpec(t *testing.T) {
	s := loadTestSpec(t)
	b, err := json.Marshal(s.Structs["Wrapper"])
	assert.NoError(t, err)
	assert.JSONEq(t,
		`[{"name":"info","type":"Info"},{"name":"extra","type":[{"name":"flag","type":"bool"}]}]`,
		string(b))
}

func Test_SpecFindMethod(t *testing.T) {
	s := loadTestSpec(t)

	m, err := s.FindMethod("register")
	if assert.NoError(t, err) {
		assert.Equal(t, "register((string,uint64))void", m.Method.Signature())
		assert.Equal(t, "adbdb4d9", hex.EncodeToString(m.Method.Selector()))
		assert.Equal(t, "Info", m.Method.Args[0].Type.Type.DisplayName())
	}

	m, err = s.FindMethod("transfer(address,uint64,string)void")
	if assert.NoError(t, err) {
		assert.Len(t, m.Args, 3)
	}

	_, err = s.FindMethod("transfer")
	ae, ok := err.(AmbiguousMethodError)
	if assert.True(t, ok, "err:%v", err) {
		assert.Equal(t, ErrorCodeAmbiguousMethod, ae.ErrorCode())
		assert.Equal(t, "transfer", ae.Name())
		assert.Equal(t, []string{
			"transfer(address,uint64)void",
			"transfer(address,uint64,string)void",
		}, ae.Signatures())
	}

	_, err = s.FindMethod("missing")
	assert.Equal(t, ErrorCodeNotFoundMethod, errors.CodeOf(err))
	_, err = s.FindMethod("transfer(address)void")
	assert.Equal(t, ErrorCodeNotFoundMethod, errors.CodeOf(err))

	m, err = s.FindMethod("get")
	if assert.NoError(t, err) {
		assert.True(t, m.Readonly)
		v, err := m.Method.DecodeReturn(mustHex("151f7c75" + testInfoHex))
		assert.NoError(t, err)
		assert.Equal(t, testInfo(), v)

		dv, err := m.Args[0].DefaultValue.Literal(m.Method.Args[0].Type.Type)
		assert.NoError(t, err)
		assert.Equal(t, "abc", dv)
	}

	m, err = s.FindMethod("deposit")
	if assert.NoError(t, err) {
		assert.True(t, m.Method.Args[0].Type.IsTransaction())
		assert.Equal(t, []string{"NoOp", "OptIn"}, m.Actions.Call)
	}
}

func Test_SpecDecodeEvent(t *testing.T) {
	s := loadTestSpec(t)

	e, v, err := s.DecodeEvent(mustHex("2e14412c" + "0002" + testInfoHex))
	if assert.NoError(t, err) {
		assert.Equal(t, "Registered((string,uint64))", e.Signature)
		assert.Equal(t, map[string]interface{}{"info": testInfo()}, v)
	}

	transferred, err := s.FindEvent("Transferred")
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "ce844195", hex.EncodeToString(transferred.Selector))
	b, err := transferred.Encode(map[string]interface{}{"to": abi.ZeroAddress, "amount": 5})
	assert.NoError(t, err)
	assert.Len(t, b, abi.SelectorSize+32+8)

	e, v, err = s.DecodeEvent(b)
	if assert.NoError(t, err) {
		assert.Equal(t, transferred, e)
		assert.Equal(t, map[string]interface{}{"to": abi.ZeroAddress, "amount": big.NewInt(5)}, v)
	}

	_, _, err = s.DecodeEvent(mustHex("00000000"))
	assert.Equal(t, ErrorCodeNotFoundEvent, errors.CodeOf(err))
	_, _, err = s.DecodeEvent(mustHex("2e14"))
	assert.Equal(t, ErrorCodeNotFoundEvent, errors.CodeOf(err))
	_, _, err = s.DecodeEvent(mustHex("2e14412c0002"))
	assert.True(t, abi.IsTruncatedInput(err) || abi.IsInvalidEncoding(err), "err:%v", err)
}

func Test_SpecStorage(t *testing.T) {
	s := loadTestSpec(t)

	v, err := s.DecodeStorageValue(ScopeGlobal, "total", mustHex("0000000000000064"))
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(100), v)

	v, err = s.DecodeStorageValue(ScopeGlobal, "owner", make([]byte, 32))
	assert.NoError(t, err)
	assert.Equal(t, abi.ZeroAddress, v)

	k, err := s.StorageKey(ScopeLocal, "level")
	if assert.NoError(t, err) {
		assert.Equal(t, []byte("level"), k.KeyBytes)
		assert.Equal(t, "uint64", k.ValueStorageType.String())
	}

	v, err = s.DecodeStorageValue(ScopeBox, "info", mustHex(testInfoHex))
	assert.NoError(t, err)
	assert.Equal(t, testInfo(), v)

	m, err := s.StorageMap(ScopeBox, "balances")
	if assert.NoError(t, err) {
		key, err := m.Key(abi.ZeroAddress)
		assert.NoError(t, err)
		assert.Equal(t, append([]byte("b"), make([]byte, 32)...), key)
		dk, err := m.DecodeKey(key)
		assert.NoError(t, err)
		assert.Equal(t, abi.ZeroAddress, dk)
		_, err = m.DecodeKey([]byte("x"))
		assert.Equal(t, ErrorCodeInvalidParam, errors.CodeOf(err))
	}

	_, err = s.StorageKey(ScopeBox, "missing")
	assert.Equal(t, ErrorCodeNotFoundStorage, errors.CodeOf(err))
	_, err = s.StorageMap(ScopeGlobal, "balances")
	assert.Equal(t, ErrorCodeNotFoundStorage, errors.CodeOf(err))
	_, err = s.StorageKey(Scope("heap"), "total")
	assert.Equal(t, ErrorCodeInvalidParam, errors.CodeOf(err))
}

func Test_ParseSpecInvalid(t *testing.T) {
	cases := map[string]string{
		"syntax": `{"name":`,
		"empty name": `{"name":""}`,
		"cyclic struct": `{"name":"c","structs":{
			"A":[{"name":"b","type":"B"}],
			"B":[{"name":"a","type":"A"}]}}`,
		"unknown struct type": `{"name":"c","structs":{"A":[{"name":"x","type":"Missing"}]}}`,
		"unknown arg struct": `{"name":"c","methods":[{"name":"m",
			"args":[{"type":"(uint64)","struct":"Missing"}],"returns":{"type":"void"}}]}`,
		"struct mismatch": `{"name":"c","structs":{"A":[{"name":"x","type":"uint64"}]},
			"methods":[{"name":"m","args":[{"type":"(uint32)","struct":"A"}],"returns":{"type":"void"}}]}`,
		"bad arg type": `{"name":"c","methods":[{"name":"m",
			"args":[{"type":"uint7"}],"returns":{"type":"void"}}]}`,
		"txn return": `{"name":"c","methods":[{"name":"m","args":[],"returns":{"type":"pay"}}]}`,
		"bad storage key": `{"name":"c","state":{"keys":{"global":{
			"k":{"keyType":"AVMString","valueType":"uint64","key":"%%"}}}}}`,
		"bad storage type": `{"name":"c","state":{"keys":{"global":{
			"k":{"keyType":"AVMString","valueType":"Missing","key":"aw=="}}}}}`,
	}
	for name, c := range cases {
		_, err := ParseSpec([]byte(c))
		assert.Error(t, err, name)
	}
}
