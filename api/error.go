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

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/icon-project/btp2/common/errors"
	"github.com/labstack/echo/v4"

	"github.com/icon-project/arc4-sdk/abi"
	"github.com/icon-project/arc4-sdk/contract"
)

const (
	CodeAPI errors.Code = 1200
)

const (
	ErrorCodeBadRequest errors.Code = CodeAPI + iota
	ErrorCodeNotFound
	ErrorCodeMethodNotAllowed
)

type ErrorResponse struct {
	Code    errors.Code     `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("code:%d, message:%s", e.Code, e.Message)
}

func (e *ErrorResponse) ErrorCode() errors.Code {
	return e.Code
}

func (e *ErrorResponse) MarshalData(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e.Data = b
	return nil
}

func (e *ErrorResponse) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

type AmbiguousMethodData struct {
	Name       string   `json:"name"`
	Signatures []string `json:"signatures"`
}

// StatusOf maps an error code to an HTTP status.
func StatusOf(code errors.Code) int {
	switch code {
	case abi.ErrorCodeMalformedType, abi.ErrorCodeValueShapeMismatch,
		abi.ErrorCodeTruncatedInput, abi.ErrorCodeInvalidEncoding,
		contract.ErrorCodeAmbiguousMethod, contract.ErrorCodeInvalidSpec,
		contract.ErrorCodeInvalidParam, ErrorCodeBadRequest:
		return http.StatusBadRequest
	case contract.ErrorCodeNotFoundMethod, contract.ErrorCodeNotFoundEvent,
		contract.ErrorCodeNotFoundStruct, contract.ErrorCodeNotFoundStorage,
		contract.ErrorCodeNotFoundContract, ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func NewErrorResponse(err error) *ErrorResponse {
	if er, ok := err.(*ErrorResponse); ok {
		return er
	}
	er := &ErrorResponse{
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		er.Code = ErrorCodeBadRequest
		er.Message = ve.Error()
	}
	if ae, ok := err.(contract.AmbiguousMethodError); ok {
		_ = er.MarshalData(&AmbiguousMethodData{
			Name:       ae.Name(),
			Signatures: ae.Signatures(),
		})
	}
	return er
}

func HttpErrorHandler(err error, c echo.Context) {
	var (
		status int
		er     *ErrorResponse
	)
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if e, ok := he.Message.(error); ok {
			er = NewErrorResponse(e)
		} else {
			er = &ErrorResponse{Code: ErrorCodeOfStatus(he.Code), Message: fmt.Sprint(he.Message)}
		}
	} else {
		er = NewErrorResponse(err)
		if _, ok := err.(validator.ValidationErrors); ok {
			status = http.StatusBadRequest
		} else {
			status = StatusOf(er.Code)
		}
	}
	if !c.Response().Committed {
		if err = c.JSON(status, er); err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}

func ErrorCodeOfStatus(status int) errors.Code {
	switch status {
	case http.StatusNotFound:
		return ErrorCodeNotFound
	case http.StatusMethodNotAllowed:
		return ErrorCodeMethodNotAllowed
	default:
		if status/100 == 4 {
			return ErrorCodeBadRequest
		}
		return errors.UnknownError
	}
}
