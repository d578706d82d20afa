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
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/icon-project/arc4-sdk/abi"
	"github.com/icon-project/arc4-sdk/contract"
)

type TypeRequest struct {
	Type string `json:"type" validate:"required"`
}

type TypeInfo struct {
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
	Dynamic     bool   `json:"dynamic"`
	// ByteLen is the encoded length of a static type, -1 for a dynamic one
	ByteLen int `json:"byteLen"`
	Depth   int `json:"depth"`
}

func TypeInfoOf(t *abi.Type) *TypeInfo {
	n, err := t.ByteLen()
	if err != nil {
		n = -1
	}
	return &TypeInfo{
		Type:        t.String(),
		DisplayName: t.DisplayName(),
		Dynamic:     t.IsDynamic(),
		ByteLen:     n,
		Depth:       t.Depth(),
	}
}

type EncodeRequest struct {
	Type  string      `json:"type" validate:"required"`
	Value interface{} `json:"value"`
}

type EncodeResponse struct {
	Type string        `json:"type"`
	Data hexutil.Bytes `json:"data"`
}

type DecodeRequest struct {
	Type string        `json:"type" validate:"required"`
	Data hexutil.Bytes `json:"data"`
}

type DecodeResponse struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

type MethodRequest struct {
	Signature string `json:"signature" validate:"required"`
}

type ArgInfo struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
	Desc string `json:"desc,omitempty"`
}

type MethodInfo struct {
	Name      string        `json:"name"`
	Signature string        `json:"signature"`
	Selector  hexutil.Bytes `json:"selector"`
	Args      []ArgInfo     `json:"args"`
	Returns   string        `json:"returns"`
	Readonly  bool          `json:"readonly"`
}

func MethodInfoOf(m *abi.Method) *MethodInfo {
	args := make([]ArgInfo, len(m.Args))
	for i, a := range m.Args {
		args[i] = ArgInfo{Name: a.Name, Type: a.Type.String(), Desc: a.Desc}
		if a.Type.Type != nil {
			args[i].Type = a.Type.Type.DisplayName()
		}
	}
	returns := abi.VoidReturn
	if m.Returns != nil {
		returns = m.Returns.DisplayName()
	}
	return &MethodInfo{
		Name:      m.Name,
		Signature: m.Signature(),
		Selector:  m.Selector(),
		Args:      args,
		Returns:   returns,
		Readonly:  m.Readonly,
	}
}

type EventInfo struct {
	Name      string        `json:"name"`
	Signature string        `json:"signature"`
	Selector  hexutil.Bytes `json:"selector"`
}

type ContractInfo struct {
	Name      string      `json:"name"`
	Desc      string      `json:"desc,omitempty"`
	Methods   int         `json:"methods"`
	Events    int         `json:"events"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Detail    *SpecDetail `json:"detail,omitempty"`
}

type SpecDetail struct {
	Arcs        []int        `json:"arcs"`
	MethodInfos []MethodInfo `json:"methodInfos"`
	EventInfos  []EventInfo  `json:"eventInfos"`
	Structs     []TypeInfo   `json:"structs"`
}

func ContractInfoOf(rec contract.SpecRecord) ContractInfo {
	return ContractInfo{
		Name:      rec.Name,
		Desc:      rec.Desc,
		Methods:   rec.Methods,
		Events:    rec.Events,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func SpecDetailOf(s *contract.Spec) *SpecDetail {
	d := &SpecDetail{
		Arcs:        s.Arcs,
		MethodInfos: make([]MethodInfo, len(s.Methods)),
		EventInfos:  make([]EventInfo, 0, len(s.EventMap)),
		Structs:     make([]TypeInfo, 0, len(s.StructTypes)),
	}
	for i := range s.Methods {
		d.MethodInfos[i] = *MethodInfoOf(s.Methods[i].Method)
	}
	for _, sig := range sortedKeys(s.EventMap) {
		e := s.EventMap[sig]
		d.EventInfos = append(d.EventInfos, EventInfo{Name: e.Name, Signature: e.Signature, Selector: e.Selector})
	}
	for _, name := range sortedKeys(s.StructTypes) {
		d.Structs = append(d.Structs, *TypeInfoOf(s.StructTypes[name]))
	}
	return d
}

type CallRequest struct {
	Method string      `json:"method" validate:"required"`
	Args   interface{} `json:"args"`
}

type CallResponse struct {
	Method   string          `json:"method"`
	Selector hexutil.Bytes   `json:"selector"`
	AppArgs  []hexutil.Bytes `json:"appArgs"`
}

type ReturnRequest struct {
	Method string        `json:"method" validate:"required"`
	Log    hexutil.Bytes `json:"log"`
}

type ReturnResponse struct {
	Method string      `json:"method"`
	Value  interface{} `json:"value"`
}

type EventRequest struct {
	Log hexutil.Bytes `json:"log" validate:"required"`
}

type EventResponse struct {
	Event string      `json:"event"`
	Value interface{} `json:"value"`
}

type StreamOp string

const (
	StreamOpType   StreamOp = "type"
	StreamOpEncode StreamOp = "encode"
	StreamOpDecode StreamOp = "decode"
)

// StreamRequest is a single operation over the websocket stream. Value is
// used by encode and Data by decode.
type StreamRequest struct {
	ID    string        `json:"id" validate:"required"`
	Op    StreamOp      `json:"op" validate:"required,streamop"`
	Type  string        `json:"type" validate:"required"`
	Value interface{}   `json:"value,omitempty"`
	Data  hexutil.Bytes `json:"data,omitempty"`
}

type StreamResponse struct {
	ID    string         `json:"id"`
	Info  *TypeInfo      `json:"info,omitempty"`
	Data  hexutil.Bytes  `json:"data,omitempty"`
	Value interface{}    `json:"value,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
