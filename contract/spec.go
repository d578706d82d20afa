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
	"bytes"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/arc4-sdk/abi"
)

var (
	specLogger = log.New()
)

func init() {
	specLogger.SetLevel(log.DebugLevel)
}

// FieldSpec is a struct field. Its type is either a type name, which may
// refer to another struct, or a nested list of fields.
type FieldSpec struct {
	Name   string      `json:"name"`
	Type   string      `json:"-"`
	Fields []FieldSpec `json:"-"`
}

func (s *FieldSpec) UnmarshalJSON(data []byte) error {
	v := struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
	}{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.Name = v.Name
	if len(v.Type) > 0 && v.Type[0] == '[' {
		return json.Unmarshal(v.Type, &s.Fields)
	}
	return json.Unmarshal(v.Type, &s.Type)
}

func (s FieldSpec) MarshalJSON() ([]byte, error) {
	v := struct {
		Name string      `json:"name"`
		Type interface{} `json:"type"`
	}{Name: s.Name, Type: s.Type}
	if s.Fields != nil {
		v.Type = s.Fields
	}
	return json.Marshal(v)
}

// StorageType is either an ABI type or an AVM type.
type StorageType struct {
	ABI *abi.Type
	AVM abi.AVMType
}

func (t StorageType) String() string {
	if t.ABI != nil {
		return t.ABI.DisplayName()
	}
	return string(t.AVM)
}

func (t StorageType) Encode(value interface{}) ([]byte, error) {
	if t.ABI != nil {
		return abi.Encode(t.ABI, value)
	}
	return abi.EncodeAVMValue(t.AVM, value)
}

func (t StorageType) Decode(b []byte) (interface{}, error) {
	if t.ABI != nil {
		return abi.Decode(t.ABI, b)
	}
	return abi.DecodeAVMValue(t.AVM, b)
}

type DefaultValueSpec struct {
	Data   string `json:"data"`
	Type   string `json:"type,omitempty"`
	Source string `json:"source"`

	DataType *StorageType `json:"-"`
}

const (
	DefaultValueSourceBox     = "box"
	DefaultValueSourceGlobal  = "global"
	DefaultValueSourceLocal   = "local"
	DefaultValueSourceLiteral = "literal"
	DefaultValueSourceMethod  = "method"
)

// Literal decodes the base64 data of a literal default value by its own
// type, or by argType when none is declared.
func (s *DefaultValueSpec) Literal(argType *abi.Type) (interface{}, error) {
	if s.Source != DefaultValueSourceLiteral {
		return nil, ErrorCodeInvalidParam.Errorf("default value source %s is not literal", s.Source)
	}
	b, err := base64.StdEncoding.DecodeString(s.Data)
	if err != nil {
		return nil, ErrorCodeInvalidSpec.Wrapf(err, "invalid default value data %s", s.Data)
	}
	if s.DataType != nil {
		return s.DataType.Decode(b)
	}
	if argType == nil {
		return nil, ErrorCodeInvalidParam.Errorf("no type to decode default value")
	}
	return abi.Decode(argType, b)
}

type ArgSpec struct {
	Type         string            `json:"type"`
	Struct       string            `json:"struct,omitempty"`
	Name         string            `json:"name,omitempty"`
	Desc         string            `json:"desc,omitempty"`
	DefaultValue *DefaultValueSpec `json:"defaultValue,omitempty"`
}

type ReturnSpec struct {
	Type   string `json:"type"`
	Struct string `json:"struct,omitempty"`
	Desc   string `json:"desc,omitempty"`
}

type ActionsSpec struct {
	Create []string `json:"create"`
	Call   []string `json:"call"`
}

type MethodSpec struct {
	Name     string      `json:"name"`
	Desc     string      `json:"desc,omitempty"`
	Args     []ArgSpec   `json:"args"`
	Returns  ReturnSpec  `json:"returns"`
	Actions  ActionsSpec `json:"actions"`
	Readonly bool        `json:"readonly,omitempty"`
	Events   []EventSpec `json:"events,omitempty"`

	Method *abi.Method `json:"-"`
}

func (s *MethodSpec) resolveType(r *structResolver) error {
	m := &abi.Method{
		Name:     s.Name,
		Desc:     s.Desc,
		Args:     make([]abi.MethodArg, len(s.Args)),
		Readonly: s.Readonly,
	}
	for i := range s.Args {
		arg := &s.Args[i]
		specLogger.Traceln("MethodSpec resolve arg:", arg.Name, "type:", arg.Type)
		at, err := r.argType(arg.Type, arg.Struct)
		if err != nil {
			return errors.Wrapf(err, "fail to resolve arg %d of method %s", i, s.Name)
		}
		m.Args[i] = abi.MethodArg{Name: arg.Name, Desc: arg.Desc, Type: at}
		if arg.DefaultValue != nil && len(arg.DefaultValue.Type) > 0 {
			st, err := r.storageType(arg.DefaultValue.Type)
			if err != nil {
				return err
			}
			arg.DefaultValue.DataType = &st
		}
	}
	if s.Returns.Type != abi.VoidReturn {
		specLogger.Traceln("MethodSpec resolve returns:", s.Returns.Type)
		at, err := r.argType(s.Returns.Type, s.Returns.Struct)
		if err != nil {
			return errors.Wrapf(err, "fail to resolve returns of method %s", s.Name)
		}
		if at.Type == nil {
			return ErrorCodeInvalidSpec.Errorf("invalid return type %s of method %s", s.Returns.Type, s.Name)
		}
		m.Returns = at.Type
	}
	for i := range s.Events {
		if err := s.Events[i].resolveType(r); err != nil {
			return err
		}
	}
	s.Method = m
	return nil
}

type EventSpec struct {
	Name string    `json:"name"`
	Desc string    `json:"desc,omitempty"`
	Args []ArgSpec `json:"args"`

	Type      *abi.Type `json:"-"`
	Signature string    `json:"-"`
	Selector  []byte    `json:"-"`
}

func (s *EventSpec) resolveType(r *structResolver) error {
	fields := make([]abi.Field, len(s.Args))
	texts := make([]string, len(s.Args))
	for i, arg := range s.Args {
		at, err := r.argType(arg.Type, arg.Struct)
		if err != nil {
			return errors.Wrapf(err, "fail to resolve arg %d of event %s", i, s.Name)
		}
		if at.Type == nil {
			return ErrorCodeInvalidSpec.Errorf("invalid arg type %s of event %s", arg.Type, s.Name)
		}
		name := arg.Name
		if len(name) == 0 {
			name = fmt.Sprintf("arg%d", i)
		}
		fields[i] = abi.Field{Name: name, Type: at.Type}
		texts[i] = at.Type.String()
	}
	t, err := abi.NewStructType(s.Name, fields...)
	if err != nil {
		return err
	}
	s.Type = t
	s.Signature = s.Name + "(" + strings.Join(texts, ",") + ")"
	h := sha512.Sum512_256([]byte(s.Signature))
	s.Selector = h[:abi.SelectorSize]
	specLogger.Tracef("EventSpec resolve name:%s signature:%s\n", s.Name, s.Signature)
	return nil
}

// Decode decodes an event log, which is the selector followed by the
// encoded args.
func (s *EventSpec) Decode(log []byte) (map[string]interface{}, error) {
	if len(log) < abi.SelectorSize || !bytes.Equal(log[:abi.SelectorSize], s.Selector) {
		return nil, ErrorCodeNotFoundEvent.Errorf("log does not match event %s", s.Signature)
	}
	v, err := abi.Decode(s.Type, log[abi.SelectorSize:])
	if err != nil {
		return nil, err
	}
	return v.(map[string]interface{}), nil
}

func (s *EventSpec) Encode(args interface{}) ([]byte, error) {
	b, err := abi.Encode(s.Type, args)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, s.Selector...), b...), nil
}

type StorageKeySpec struct {
	Desc      string `json:"desc,omitempty"`
	KeyType   string `json:"keyType"`
	ValueType string `json:"valueType"`
	// Key is base64 encoded
	Key string `json:"key"`

	KeyBytes         []byte      `json:"-"`
	KeyStorageType   StorageType `json:"-"`
	ValueStorageType StorageType `json:"-"`
}

func (s *StorageKeySpec) resolveType(r *structResolver) (err error) {
	if s.KeyBytes, err = base64.StdEncoding.DecodeString(s.Key); err != nil {
		return ErrorCodeInvalidSpec.Wrapf(err, "invalid storage key %s", s.Key)
	}
	if s.KeyStorageType, err = r.storageType(s.KeyType); err != nil {
		return err
	}
	s.ValueStorageType, err = r.storageType(s.ValueType)
	return err
}

func (s *StorageKeySpec) DecodeValue(raw []byte) (interface{}, error) {
	return s.ValueStorageType.Decode(raw)
}

type StorageMapSpec struct {
	Desc      string `json:"desc,omitempty"`
	KeyType   string `json:"keyType"`
	ValueType string `json:"valueType"`
	// Prefix is base64 encoded
	Prefix string `json:"prefix,omitempty"`

	PrefixBytes      []byte      `json:"-"`
	KeyStorageType   StorageType `json:"-"`
	ValueStorageType StorageType `json:"-"`
}

func (s *StorageMapSpec) resolveType(r *structResolver) (err error) {
	if s.PrefixBytes, err = base64.StdEncoding.DecodeString(s.Prefix); err != nil {
		return ErrorCodeInvalidSpec.Wrapf(err, "invalid storage map prefix %s", s.Prefix)
	}
	if s.KeyStorageType, err = r.storageType(s.KeyType); err != nil {
		return err
	}
	s.ValueStorageType, err = r.storageType(s.ValueType)
	return err
}

// Key returns the raw storage key of an entry, the prefix followed by the
// encoded key.
func (s *StorageMapSpec) Key(key interface{}) ([]byte, error) {
	b, err := s.KeyStorageType.Encode(key)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, s.PrefixBytes...), b...), nil
}

func (s *StorageMapSpec) DecodeKey(raw []byte) (interface{}, error) {
	if !bytes.HasPrefix(raw, s.PrefixBytes) {
		return nil, ErrorCodeInvalidParam.Errorf("key 0x%x does not have prefix 0x%x", raw, s.PrefixBytes)
	}
	return s.KeyStorageType.Decode(raw[len(s.PrefixBytes):])
}

func (s *StorageMapSpec) DecodeValue(raw []byte) (interface{}, error) {
	return s.ValueStorageType.Decode(raw)
}

type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeLocal  Scope = "local"
	ScopeBox    Scope = "box"
)

type StorageKeysSpec struct {
	Global map[string]*StorageKeySpec `json:"global"`
	Local  map[string]*StorageKeySpec `json:"local"`
	Box    map[string]*StorageKeySpec `json:"box"`
}

func (s *StorageKeysSpec) scope(scope Scope) (map[string]*StorageKeySpec, error) {
	switch scope {
	case ScopeGlobal:
		return s.Global, nil
	case ScopeLocal:
		return s.Local, nil
	case ScopeBox:
		return s.Box, nil
	default:
		return nil, ErrorCodeInvalidParam.Errorf("invalid scope %s", scope)
	}
}

type StorageMapsSpec struct {
	Global map[string]*StorageMapSpec `json:"global"`
	Local  map[string]*StorageMapSpec `json:"local"`
	Box    map[string]*StorageMapSpec `json:"box"`
}

func (s *StorageMapsSpec) scope(scope Scope) (map[string]*StorageMapSpec, error) {
	switch scope {
	case ScopeGlobal:
		return s.Global, nil
	case ScopeLocal:
		return s.Local, nil
	case ScopeBox:
		return s.Box, nil
	default:
		return nil, ErrorCodeInvalidParam.Errorf("invalid scope %s", scope)
	}
}

type SchemaSpec struct {
	Ints  int `json:"ints"`
	Bytes int `json:"bytes"`
}

type StateSpec struct {
	Schema struct {
		Global SchemaSpec `json:"global"`
		Local  SchemaSpec `json:"local"`
	} `json:"schema"`
	Keys StorageKeysSpec `json:"keys"`
	Maps StorageMapsSpec `json:"maps"`
}

type NetworkSpec struct {
	AppID uint64 `json:"appID"`
}

type ProgramsSpec struct {
	Approval string `json:"approval"`
	Clear    string `json:"clear"`
}

// Spec is an ARC-56 application specification. Types referenced by methods,
// events and storage are resolved on unmarshal.
type Spec struct {
	Arcs         []int                  `json:"arcs"`
	Name         string                 `json:"name"`
	Desc         string                 `json:"desc,omitempty"`
	Networks     map[string]NetworkSpec `json:"networks,omitempty"`
	Structs      map[string][]FieldSpec `json:"structs"`
	Methods      []MethodSpec           `json:"methods"`
	State        StateSpec              `json:"state"`
	BareActions  ActionsSpec            `json:"bareActions"`
	Events       []EventSpec            `json:"events,omitempty"`
	Source       *ProgramsSpec          `json:"source,omitempty"`
	ByteCode     *ProgramsSpec          `json:"byteCode,omitempty"`
	SourceInfo   json.RawMessage        `json:"sourceInfo,omitempty"`
	CompilerInfo json.RawMessage        `json:"compilerInfo,omitempty"`

	StructTypes map[string]*abi.Type `json:"-"`
	EventMap    map[string]*EventSpec `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *Spec) UnmarshalJSON(data []byte) error {
	type tSpec Spec
	if err := json.Unmarshal(data, (*tSpec)(s)); err != nil {
		return err
	}
	return s.resolveType()
}

func ParseSpec(b []byte) (*Spec, error) {
	s := &Spec{}
	if err := json.Unmarshal(b, s); err != nil {
		if errors.CodeOf(err) != errors.UnknownError {
			return nil, err
		}
		return nil, ErrorCodeInvalidSpec.Wrapf(err, "fail to parse spec err:%s", err.Error())
	}
	if len(s.Name) == 0 {
		return nil, ErrorCodeInvalidSpec.New("empty contract name")
	}
	return s, nil
}

func (s *Spec) resolveType() error {
	r := &structResolver{
		structs:  s.Structs,
		resolved: make(map[string]*abi.Type),
		visiting: make(map[string]bool),
	}
	for _, name := range sortedKeys(s.Structs) {
		specLogger.Tracef("StructSpec resolve name:%s\n", name)
		if _, err := r.structType(name); err != nil {
			return err
		}
	}
	s.StructTypes = r.resolved
	s.EventMap = make(map[string]*EventSpec)
	for i := range s.Methods {
		v := &s.Methods[i]
		specLogger.Tracef("MethodSpec resolve name:%s readonly:%v\n", v.Name, v.Readonly)
		if err := v.resolveType(r); err != nil {
			return err
		}
		for j := range v.Events {
			s.addEvent(&v.Events[j])
		}
	}
	for i := range s.Events {
		if err := s.Events[i].resolveType(r); err != nil {
			return err
		}
		s.addEvent(&s.Events[i])
	}
	for _, keys := range []map[string]*StorageKeySpec{s.State.Keys.Global, s.State.Keys.Local, s.State.Keys.Box} {
		for name, v := range keys {
			specLogger.Traceln("StorageKeySpec resolve name:", name)
			if err := v.resolveType(r); err != nil {
				return err
			}
		}
	}
	for _, maps := range []map[string]*StorageMapSpec{s.State.Maps.Global, s.State.Maps.Local, s.State.Maps.Box} {
		for name, v := range maps {
			specLogger.Traceln("StorageMapSpec resolve name:", name)
			if err := v.resolveType(r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Spec) addEvent(e *EventSpec) {
	if _, ok := s.EventMap[e.Signature]; !ok {
		s.EventMap[e.Signature] = e
	}
}

func (s *Spec) StructType(name string) (*abi.Type, error) {
	t, ok := s.StructTypes[name]
	if !ok {
		return nil, ErrorCodeNotFoundStruct.Errorf("not found struct %s in %s", name, s.Name)
	}
	return t, nil
}

// FindMethod looks up a method by signature, or by name when
// nameOrSignature has no parenthesis. A name shared by several methods is
// an AmbiguousMethodError.
func (s *Spec) FindMethod(nameOrSignature string) (*MethodSpec, error) {
	if strings.Contains(nameOrSignature, "(") {
		for i := range s.Methods {
			if s.Methods[i].Method.Signature() == nameOrSignature {
				return &s.Methods[i], nil
			}
		}
		return nil, ErrorCodeNotFoundMethod.Errorf("not found method %s in %s", nameOrSignature, s.Name)
	}
	var found []*MethodSpec
	for i := range s.Methods {
		if s.Methods[i].Name == nameOrSignature {
			found = append(found, &s.Methods[i])
		}
	}
	switch len(found) {
	case 0:
		return nil, ErrorCodeNotFoundMethod.Errorf("not found method %s in %s", nameOrSignature, s.Name)
	case 1:
		return found[0], nil
	default:
		signatures := make([]string, len(found))
		for i, m := range found {
			signatures[i] = m.Method.Signature()
		}
		return nil, NewAmbiguousMethodError(nameOrSignature, signatures)
	}
}

func (s *Spec) FindEvent(nameOrSignature string) (*EventSpec, error) {
	if e, ok := s.EventMap[nameOrSignature]; ok {
		return e, nil
	}
	for _, e := range s.EventMap {
		if e.Name == nameOrSignature {
			return e, nil
		}
	}
	return nil, ErrorCodeNotFoundEvent.Errorf("not found event %s in %s", nameOrSignature, s.Name)
}

// DecodeEvent finds the event whose selector prefixes log and decodes its args.
func (s *Spec) DecodeEvent(log []byte) (*EventSpec, map[string]interface{}, error) {
	if len(log) < abi.SelectorSize {
		return nil, nil, ErrorCodeNotFoundEvent.Errorf("log too short, %d bytes", len(log))
	}
	for _, e := range s.EventMap {
		if bytes.Equal(e.Selector, log[:abi.SelectorSize]) {
			v, err := e.Decode(log)
			if err != nil {
				return nil, nil, err
			}
			return e, v, nil
		}
	}
	return nil, nil, ErrorCodeNotFoundEvent.Errorf("not found event for selector 0x%x", log[:abi.SelectorSize])
}

func (s *Spec) StorageKey(scope Scope, name string) (*StorageKeySpec, error) {
	keys, err := s.State.Keys.scope(scope)
	if err != nil {
		return nil, err
	}
	k, ok := keys[name]
	if !ok {
		return nil, ErrorCodeNotFoundStorage.Errorf("not found %s storage key %s in %s", scope, name, s.Name)
	}
	return k, nil
}

func (s *Spec) StorageMap(scope Scope, name string) (*StorageMapSpec, error) {
	maps, err := s.State.Maps.scope(scope)
	if err != nil {
		return nil, err
	}
	m, ok := maps[name]
	if !ok {
		return nil, ErrorCodeNotFoundStorage.Errorf("not found %s storage map %s in %s", scope, name, s.Name)
	}
	return m, nil
}

func (s *Spec) DecodeStorageValue(scope Scope, name string, raw []byte) (interface{}, error) {
	k, err := s.StorageKey(scope, name)
	if err != nil {
		return nil, err
	}
	return k.DecodeValue(raw)
}

type structResolver struct {
	structs  map[string][]FieldSpec
	resolved map[string]*abi.Type
	visiting map[string]bool
}

func (r *structResolver) structType(name string) (*abi.Type, error) {
	if t, ok := r.resolved[name]; ok {
		return t, nil
	}
	fields, ok := r.structs[name]
	if !ok {
		return nil, ErrorCodeNotFoundStruct.Errorf("not found struct %s", name)
	}
	if r.visiting[name] {
		return nil, ErrorCodeInvalidSpec.Errorf("struct %s refers to itself", name)
	}
	r.visiting[name] = true
	defer delete(r.visiting, name)
	abiFields, err := r.fields(fields)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to resolve struct %s", name)
	}
	t, err := abi.NewStructType(name, abiFields...)
	if err != nil {
		return nil, err
	}
	r.resolved[name] = t
	return t, nil
}

func (r *structResolver) fields(fields []FieldSpec) ([]abi.Field, error) {
	l := make([]abi.Field, len(fields))
	for i, f := range fields {
		var (
			t   *abi.Type
			err error
		)
		switch {
		case f.Fields != nil:
			var nested []abi.Field
			if nested, err = r.fields(f.Fields); err == nil {
				t, err = abi.NewStructType("", nested...)
			}
		case r.isStruct(f.Type):
			t, err = r.structType(f.Type)
		default:
			t, err = abi.ParseType(f.Type)
		}
		if err != nil {
			return nil, err
		}
		l[i] = abi.Field{Name: f.Name, Type: t}
	}
	return l, nil
}

func (r *structResolver) isStruct(name string) bool {
	_, ok := r.structs[name]
	return ok
}

// argType resolves a method or event arg. A struct annotation must agree
// with the tuple notation of the declared type.
func (r *structResolver) argType(typ, structName string) (abi.ArgType, error) {
	if len(structName) > 0 {
		t, err := r.structType(structName)
		if err != nil {
			return abi.ArgType{}, err
		}
		if t.String() != typ {
			return abi.ArgType{}, ErrorCodeInvalidSpec.Errorf(
				"struct %s is %s, but declared type is %s", structName, t.String(), typ)
		}
		return abi.ArgType{Type: t}, nil
	}
	return abi.ParseArgType(typ)
}

func (r *structResolver) storageType(typ string) (StorageType, error) {
	if abi.IsAVMType(typ) {
		return StorageType{AVM: abi.AVMType(typ)}, nil
	}
	if r.isStruct(typ) {
		t, err := r.structType(typ)
		return StorageType{ABI: t}, err
	}
	t, err := abi.ParseType(typ)
	if err != nil {
		return StorageType{}, err
	}
	return StorageType{ABI: t}, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
