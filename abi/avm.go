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
	"unicode/utf8"
)

// AVMType is a native VM stack type, used by storage and default values.
type AVMType string

const (
	AVMBytes  AVMType = "AVMBytes"
	AVMString AVMType = "AVMString"
	AVMUint64 AVMType = "AVMUint64"
)

var uint64Type = MustUintType(64)

func IsAVMType(s string) bool {
	switch AVMType(s) {
	case AVMBytes, AVMString, AVMUint64:
		return true
	default:
		return false
	}
}

func EncodeAVMValue(t AVMType, value interface{}) ([]byte, error) {
	switch t {
	case AVMBytes:
		if b, ok, err := BytesOf(value); ok {
			if err != nil {
				return nil, mismatchf("", "fail to encode %s, err:%s", t, err.Error())
			}
			return append([]byte{}, b...), nil
		}
		s, err := StringOf(value)
		if err != nil {
			return nil, mismatchf("", "fail to encode %s, err:%s", t, err.Error())
		}
		return []byte(s), nil
	case AVMString:
		s, err := StringOf(value)
		if err != nil {
			return nil, mismatchf("", "fail to encode %s, err:%s", t, err.Error())
		}
		return []byte(s), nil
	case AVMUint64:
		return Encode(uint64Type, value)
	default:
		return nil, mismatchf("", "unknown AVM type %q", t)
	}
}

func DecodeAVMValue(t AVMType, b []byte) (interface{}, error) {
	switch t {
	case AVMBytes:
		return append([]byte{}, b...), nil
	case AVMString:
		if !utf8.Valid(b) {
			return nil, invalidf("", "fail to decode %s, invalid UTF-8", t)
		}
		return string(b), nil
	case AVMUint64:
		return Decode(uint64Type, b)
	default:
		return nil, invalidf("", "unknown AVM type %q", t)
	}
}
