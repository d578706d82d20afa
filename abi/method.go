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
	"bytes"
	"crypto/sha512"
	"strings"
)

const (
	SelectorSize = 4
	VoidReturn   = "void"

	// MaxAppArgs is the number of application arguments including the selector.
	MaxAppArgs = 16
	// argsTupleIndex is the position of the first argument packed into the
	// trailing tuple when a method has more arguments than fit.
	argsTupleIndex = MaxAppArgs - 2
)

var (
	ReturnPrefix = []byte{0x15, 0x1f, 0x7c, 0x75}

	referenceIndexType = MustUintType(8)
)

type TransactionType string

const (
	TxnAny             TransactionType = "txn"
	TxnPayment         TransactionType = "pay"
	TxnKeyRegistration TransactionType = "keyreg"
	TxnAssetConfig     TransactionType = "acfg"
	TxnAssetTransfer   TransactionType = "axfer"
	TxnAssetFreeze     TransactionType = "afrz"
	TxnAppCall         TransactionType = "appl"
)

func IsTransactionType(s string) bool {
	switch TransactionType(s) {
	case TxnAny, TxnPayment, TxnKeyRegistration, TxnAssetConfig,
		TxnAssetTransfer, TxnAssetFreeze, TxnAppCall:
		return true
	default:
		return false
	}
}

type ReferenceType string

const (
	RefAccount     ReferenceType = "account"
	RefApplication ReferenceType = "application"
	RefAsset       ReferenceType = "asset"
)

func IsReferenceType(s string) bool {
	switch ReferenceType(s) {
	case RefAccount, RefApplication, RefAsset:
		return true
	default:
		return false
	}
}

// ArgType is the type of a method argument. Exactly one of Type, Txn and
// Ref is set.
type ArgType struct {
	Type *Type
	Txn  TransactionType
	Ref  ReferenceType
}

func ParseArgType(s string) (ArgType, error) {
	if IsTransactionType(s) {
		return ArgType{Txn: TransactionType(s)}, nil
	}
	if IsReferenceType(s) {
		return ArgType{Ref: ReferenceType(s)}, nil
	}
	t, err := ParseType(s)
	if err != nil {
		return ArgType{}, err
	}
	return ArgType{Type: t}, nil
}

func (a ArgType) IsTransaction() bool {
	return len(a.Txn) > 0
}

func (a ArgType) IsReference() bool {
	return len(a.Ref) > 0
}

func (a ArgType) String() string {
	switch {
	case a.IsTransaction():
		return string(a.Txn)
	case a.IsReference():
		return string(a.Ref)
	case a.Type != nil:
		return a.Type.String()
	default:
		return ""
	}
}

type MethodArg struct {
	Name string
	Desc string
	Type ArgType
}

type Method struct {
	Name     string
	Desc     string
	Args     []MethodArg
	Returns  *Type
	Readonly bool
}

// ParseMethod reads a signature such as "add(uint64,uint64)uint128".
func ParseMethod(signature string) (*Method, error) {
	start := strings.IndexByte(signature, '(')
	if start <= 0 {
		return nil, malformedf("invalid method signature %q", signature)
	}
	end := -1
	depth := 0
loop:
	for i := start; i < len(signature); i++ {
		switch signature[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
				break loop
			}
		}
	}
	if end < 0 {
		return nil, malformedf("invalid method signature %q", signature)
	}
	parts, err := SplitTupleContent(signature[start+1 : end])
	if err != nil {
		return nil, err
	}
	m := &Method{
		Name: signature[:start],
		Args: make([]MethodArg, len(parts)),
	}
	for i, part := range parts {
		if m.Args[i].Type, err = ParseArgType(part); err != nil {
			return nil, err
		}
	}
	ret := signature[end+1:]
	if len(ret) == 0 {
		return nil, malformedf("missing return type in %q", signature)
	}
	if ret != VoidReturn {
		if m.Returns, err = ParseType(ret); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func MustParseMethod(signature string) *Method {
	m, err := ParseMethod(signature)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Method) IsVoid() bool {
	return m.Returns == nil
}

func (m *Method) Signature() string {
	args := make([]string, len(m.Args))
	for i, arg := range m.Args {
		args[i] = arg.Type.String()
	}
	ret := VoidReturn
	if m.Returns != nil {
		ret = m.Returns.String()
	}
	return m.Name + "(" + strings.Join(args, ",") + ")" + ret
}

func (m *Method) Selector() []byte {
	h := sha512.Sum512_256([]byte(m.Signature()))
	return h[:SelectorSize]
}

// encodableTypes returns the types that go into application arguments,
// with the index of the method argument each came from.
func (m *Method) encodableTypes() ([]*Type, []int) {
	types := make([]*Type, 0, len(m.Args))
	indexes := make([]int, 0, len(m.Args))
	for i, arg := range m.Args {
		switch {
		case arg.Type.IsTransaction():
			continue
		case arg.Type.IsReference():
			types = append(types, referenceIndexType)
		default:
			types = append(types, arg.Type.Type)
		}
		indexes = append(indexes, i)
	}
	return types, indexes
}

// EncodeArgs returns the application arguments of a call, selector first.
// values has one entry per method argument. Values of transaction arguments
// are ignored, and reference arguments take their foreign array index.
func (m *Method) EncodeArgs(values ...interface{}) ([][]byte, error) {
	if len(values) != len(m.Args) {
		return nil, mismatchf("", "method %s expects %d args, actual %d",
			m.Name, len(m.Args), len(values))
	}
	types, indexes := m.encodableTypes()
	appArgs := [][]byte{m.Selector()}
	packed := len(types) > MaxAppArgs-1
	for k, t := range types {
		if packed && k == argsTupleIndex {
			break
		}
		b, err := encode(t, values[indexes[k]], path("").index(indexes[k]))
		if err != nil {
			return nil, err
		}
		appArgs = append(appArgs, b)
	}
	if packed {
		tt, err := NewTupleType(types[argsTupleIndex:]...)
		if err != nil {
			return nil, err
		}
		rest := make([]interface{}, 0, len(types)-argsTupleIndex)
		for _, i := range indexes[argsTupleIndex:] {
			rest = append(rest, values[i])
		}
		b, err := encode(tt, rest, "")
		if err != nil {
			return nil, err
		}
		appArgs = append(appArgs, b)
	}
	abiLogger.Tracef("EncodeArgs %s appArgs:%d", m.Signature(), len(appArgs))
	return appArgs, nil
}

// DecodeArgs is the inverse of EncodeArgs. Transaction arguments decode to
// nil and reference arguments to their foreign array index.
func (m *Method) DecodeArgs(appArgs [][]byte) ([]interface{}, error) {
	if len(appArgs) == 0 {
		return nil, truncatedf("", "missing method selector")
	}
	if !bytes.Equal(appArgs[0], m.Selector()) {
		return nil, invalidf("", "selector 0x%x does not match %s", appArgs[0], m.Signature())
	}
	types, indexes := m.encodableTypes()
	packed := len(types) > MaxAppArgs-1
	expected := len(types)
	if packed {
		expected = argsTupleIndex + 1
	}
	if len(appArgs)-1 != expected {
		return nil, invalidf("", "method %s expects %d app args, actual %d",
			m.Signature(), expected+1, len(appArgs))
	}
	values := make([]interface{}, len(m.Args))
	for k, t := range types {
		if packed && k == argsTupleIndex {
			break
		}
		v, err := decode(t, appArgs[k+1], path("").index(indexes[k]))
		if err != nil {
			return nil, err
		}
		values[indexes[k]] = v
	}
	if packed {
		tt, err := NewTupleType(types[argsTupleIndex:]...)
		if err != nil {
			return nil, err
		}
		v, err := decode(tt, appArgs[argsTupleIndex+1], "")
		if err != nil {
			return nil, err
		}
		for k, elem := range v.([]interface{}) {
			values[indexes[argsTupleIndex+k]] = elem
		}
	}
	return values, nil
}

// DecodeReturn decodes the return value logged by the method. Void methods
// return nil.
func (m *Method) DecodeReturn(log []byte) (interface{}, error) {
	if m.Returns == nil {
		return nil, nil
	}
	if len(log) < len(ReturnPrefix) {
		return nil, truncatedf("", "return log too short, %d bytes", len(log))
	}
	if !bytes.Equal(log[:len(ReturnPrefix)], ReturnPrefix) {
		return nil, invalidf("", "missing return prefix 0x%x", ReturnPrefix)
	}
	return Decode(m.Returns, log[len(ReturnPrefix):])
}

// EncodeReturn builds the log a method emits to return value.
func (m *Method) EncodeReturn(value interface{}) ([]byte, error) {
	if m.Returns == nil {
		return nil, mismatchf("", "method %s returns void", m.Name)
	}
	b, err := Encode(m.Returns, value)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, ReturnPrefix...), b...), nil
}
