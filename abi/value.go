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
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/intconv"
	"github.com/mitchellh/mapstructure"
)

const (
	TagName = "abi"
)

// path locates a value inside the value tree for error messages.
type path string

func (p path) index(i int) path {
	return path(fmt.Sprintf("%s[%d]", p, i))
}

func (p path) field(name string) path {
	if len(p) == 0 {
		return path(name)
	}
	return path(string(p) + "." + name)
}

func (p path) prefix() string {
	if len(p) == 0 {
		return ""
	}
	return "at " + string(p) + ", "
}

// IntegerOf converts value to a non-negative big.Int.
func IntegerOf(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil *big.Int")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case json.Number:
		return parseInteger(string(v))
	case string:
		return parseInteger(v)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.Abs(v) > (1<<53) {
			return nil, fmt.Errorf("not an exact integer %v", v)
		}
		return big.NewInt(int64(v)), nil
	case float32:
		return IntegerOf(float64(v))
	case bool:
		return nil, fmt.Errorf("invalid type %T", value)
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return big.NewInt(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return new(big.Int).SetUint64(rv.Uint()), nil
		default:
			return nil, fmt.Errorf("invalid type %T", value)
		}
	}
}

func parseInteger(s string) (*big.Int, error) {
	i := new(big.Int)
	if err := intconv.ParseBigInt(i, strings.TrimSpace(s)); err != nil {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return i, nil
}

func BooleanOf(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
		return false, fmt.Errorf("invalid type %T", value)
	}
}

func StringOf(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
		return "", fmt.Errorf("invalid type %T", value)
	}
}

// BytesOf returns raw bytes for []byte values, hexutil.Bytes and 0x-prefixed
// hex strings.
func BytesOf(value interface{}) ([]byte, bool, error) {
	switch v := value.(type) {
	case []byte:
		return v, true, nil
	case hexutil.Bytes:
		return v, true, nil
	case string:
		if strings.HasPrefix(v, "0x") {
			b, err := hexutil.Decode(v)
			if err != nil {
				return nil, true, err
			}
			return b, true, nil
		}
	}
	return nil, false, nil
}

func AddressOf(value interface{}) (Address, error) {
	switch v := value.(type) {
	case Address:
		return v, nil
	case *Address:
		if v == nil {
			return ZeroAddress, fmt.Errorf("nil *Address")
		}
		return *v, nil
	case [addressSize]byte:
		return v, nil
	case []byte:
		return AddressFromPublicKey(v)
	case string:
		return ParseAddress(v)
	default:
		return ZeroAddress, fmt.Errorf("invalid type %T", value)
	}
}

// SequenceOf returns the elements of a slice or array value.
func SequenceOf(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case nil:
		return nil, fmt.Errorf("nil sequence")
	case string:
		return nil, fmt.Errorf("invalid type %T", value)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		l := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			l[i] = rv.Index(i).Interface()
		}
		return l, nil
	default:
		return nil, fmt.Errorf("invalid type %T", value)
	}
}

// FieldValuesOf linearizes value by the declared order of fields. value is a
// name-keyed map, a Go struct or a positional sequence.
func FieldValuesOf(fields []Field, value interface{}) ([]interface{}, error) {
	m, err := fieldMapOf(value)
	if err != nil {
		return nil, err
	}
	if m == nil {
		l, err := SequenceOf(value)
		if err != nil {
			return nil, err
		}
		if len(l) != len(fields) {
			return nil, fmt.Errorf("expected %d fields, actual %d", len(fields), len(l))
		}
		return l, nil
	}
	values := make([]interface{}, len(fields))
	for i, f := range fields {
		v, ok := m[f.Name]
		if !ok {
			return nil, fmt.Errorf("missing field %q", f.Name)
		}
		values[i] = v
	}
	if len(m) != len(fields) {
		for k := range m {
			found := false
			for _, f := range fields {
				if f.Name == k {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("unknown field %q", k)
			}
		}
	}
	return values, nil
}

func fieldMapOf(value interface{}) (map[string]interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		return v, nil
	case nil:
		return nil, fmt.Errorf("nil struct")
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("nil struct")
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("not supported key type %v", rv.Type().Key())
		}
		m := make(map[string]interface{}, rv.Len())
		for _, k := range rv.MapKeys() {
			m[k.String()] = rv.MapIndex(k).Interface()
		}
		return m, nil
	case reflect.Struct:
		if _, ok := rv.Interface().(big.Int); ok {
			return nil, fmt.Errorf("invalid type %T", value)
		}
		rt := rv.Type()
		m := make(map[string]interface{}, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			name := fieldNameOf(sf)
			if name == "-" {
				continue
			}
			m[name] = rv.Field(i).Interface()
		}
		return m, nil
	default:
		return nil, nil
	}
}

func fieldNameOf(sf reflect.StructField) string {
	for _, tag := range []string{TagName, "json"} {
		if name, _, _ := strings.Cut(sf.Tag.Get(tag), ","); len(name) > 0 {
			return name
		}
	}
	return sf.Name
}

// DecodeInto decodes b as t and binds the result onto out, which must be a
// pointer. Struct fields are matched by the "abi" tag.
func DecodeInto(t *Type, b []byte, out interface{}) error {
	v, err := Decode(t, b)
	if err != nil {
		return err
	}
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    TagName,
		Result:     out,
		DecodeHook: bigIntHook,
	})
	if err != nil {
		return err
	}
	if err = d.Decode(v); err != nil {
		return ErrorCodeValueShapeMismatch.Wrapf(err, "fail to bind %s onto %T", t.DisplayName(), out)
	}
	return nil
}

var (
	bigIntPtrType = reflect.TypeOf(&big.Int{})
	bigIntType    = reflect.TypeOf(big.Int{})
)

func bigIntHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from != bigIntPtrType {
		return data, nil
	}
	bi := data.(*big.Int)
	switch to {
	case bigIntPtrType:
		return bi, nil
	case bigIntType:
		return *bi, nil
	}
	switch to.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !bi.IsUint64() {
			return nil, fmt.Errorf("integer %s overflows %v", bi.String(), to)
		}
		return bi.Uint64(), nil
	case reflect.String:
		return bi.String(), nil
	}
	return data, nil
}
