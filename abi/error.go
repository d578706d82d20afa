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

import "github.com/icon-project/btp2/common/errors"

const (
	CodeABI errors.Code = 1000
)

const (
	ErrorCodeMalformedType errors.Code = CodeABI + iota
	ErrorCodeValueShapeMismatch
	ErrorCodeTruncatedInput
	ErrorCodeInvalidEncoding
)

func IsMalformedType(err error) bool {
	return err != nil && errors.CodeOf(err) == ErrorCodeMalformedType
}

func IsValueShapeMismatch(err error) bool {
	return err != nil && errors.CodeOf(err) == ErrorCodeValueShapeMismatch
}

func IsTruncatedInput(err error) bool {
	return err != nil && errors.CodeOf(err) == ErrorCodeTruncatedInput
}

func IsInvalidEncoding(err error) bool {
	return err != nil && errors.CodeOf(err) == ErrorCodeInvalidEncoding
}

func malformedf(format string, args ...interface{}) error {
	return ErrorCodeMalformedType.Errorf(format, args...)
}

func mismatchf(p path, format string, args ...interface{}) error {
	return ErrorCodeValueShapeMismatch.Errorf("%s"+format, append([]interface{}{p.prefix()}, args...)...)
}

func truncatedf(p path, format string, args ...interface{}) error {
	return ErrorCodeTruncatedInput.Errorf("%s"+format, append([]interface{}{p.prefix()}, args...)...)
}

func invalidf(p path, format string, args ...interface{}) error {
	return ErrorCodeInvalidEncoding.Errorf("%s"+format, append([]interface{}{p.prefix()}, args...)...)
}
