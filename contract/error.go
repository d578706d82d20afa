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
	"strings"

	"github.com/icon-project/btp2/common/errors"
)

const (
	CodeContract errors.Code = 1100
)

const (
	ErrorCodeNotFoundMethod errors.Code = CodeContract + iota
	ErrorCodeAmbiguousMethod
	ErrorCodeNotFoundEvent
	ErrorCodeNotFoundStruct
	ErrorCodeNotFoundStorage
	ErrorCodeNotFoundContract
	ErrorCodeInvalidSpec
	ErrorCodeInvalidParam
)

var (
	errAmbiguousMethod = errors.NewBase(ErrorCodeAmbiguousMethod, "AmbiguousMethodError")
)

// AmbiguousMethodError is returned when a bare method name matches more
// than one method. Signatures lists every candidate.
type AmbiguousMethodError interface {
	errors.ErrorCoder
	Name() string
	Signatures() []string
}

type ambiguousMethodError struct {
	errors.ErrorCoder
	name       string
	signatures []string
}

func (e *ambiguousMethodError) Name() string {
	return e.name
}

func (e *ambiguousMethodError) Signatures() []string {
	return append([]string{}, e.signatures...)
}

func (e *ambiguousMethodError) Error() string {
	return "method " + e.name + " is ambiguous, use one of signatures: " +
		strings.Join(e.signatures, ", ")
}

func NewAmbiguousMethodError(name string, signatures []string) AmbiguousMethodError {
	return &ambiguousMethodError{
		ErrorCoder: errAmbiguousMethod,
		name:       name,
		signatures: append([]string{}, signatures...),
	}
}
