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
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/intconv"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/arc4-sdk/abi"
)

type IntegerFormat int

const (
	DecimalInteger IntegerFormat = iota
	HexInteger
)

func MustParamOf(value interface{}, f IntegerFormat) interface{} {
	ret, err := ParamOf(value, f)
	if err != nil {
		log.Panicf("fail to ParamOf err:%v", err)
	}
	return ret
}

// ParamOf converts a decoded value into a JSON friendly form. Byte strings
// become hex, big integers become strings and addresses their text form.
func ParamOf(value interface{}, f IntegerFormat) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *big.Int:
		if v == nil {
			return nil, errors.New("nil *big.Int")
		}
		if f == HexInteger {
			return intconv.FormatBigInt(v), nil
		}
		return v.String(), nil
	case uint64:
		if f == HexInteger {
			return intconv.FormatBigInt(new(big.Int).SetUint64(v)), nil
		}
		return v, nil
	case bool, string, byte:
		return v, nil
	case []byte:
		return hexutil.Bytes(v), nil
	case abi.Address:
		return v.String(), nil
	case map[string]interface{}:
		ret := make(map[string]interface{}, len(v))
		for k, e := range v {
			p, err := ParamOf(e, f)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid field %s", k)
			}
			ret[k] = p
		}
		return ret, nil
	case []interface{}:
		ret := make([]interface{}, len(v))
		for i, e := range v {
			p, err := ParamOf(e, f)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid element %d", i)
			}
			ret[i] = p
		}
		return ret, nil
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			ret := make([]interface{}, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				p, err := ParamOf(rv.Index(i).Interface(), f)
				if err != nil {
					return nil, err
				}
				ret[i] = p
			}
			return ret, nil
		}
		return nil, errors.Errorf("not supported type %T", value)
	}
}

// ArgsOf arranges call arguments in declared order. value is either a
// positional list or a map keyed by argument name, in which a transaction
// argument may be absent.
func ArgsOf(m *abi.Method, value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case nil:
		if len(m.Args) > 0 {
			return nil, ErrorCodeInvalidParam.Errorf("required %d args for %s", len(m.Args), m.Signature())
		}
		return []interface{}{}, nil
	case []interface{}:
		if len(v) != len(m.Args) {
			return nil, ErrorCodeInvalidParam.Errorf("invalid number of args, expected:%d actual:%d",
				len(m.Args), len(v))
		}
		return v, nil
	case map[string]interface{}:
		ret := make([]interface{}, len(m.Args))
		for i, arg := range m.Args {
			p, ok := v[arg.Name]
			if !ok && !arg.Type.IsTransaction() {
				return nil, ErrorCodeInvalidParam.Errorf("required param:%s", arg.Name)
			}
			ret[i] = p
		}
		if len(v) > len(m.Args) {
			return nil, ErrorCodeInvalidParam.Errorf("too many params for %s", m.Signature())
		}
		return ret, nil
	default:
		return nil, ErrorCodeInvalidParam.Errorf("invalid args type %T", value)
	}
}
