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
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/arc4-sdk/abi"
	"github.com/icon-project/arc4-sdk/contract"
	"github.com/icon-project/arc4-sdk/database"
)

const (
	openapi3Version     = "3.0.3"
	infoTitle           = "ARC-4 SDK"
	infoTitleSuffix     = " - OpenAPI " + openapi3Version
	infoDefaultVersion  = "0.1.0"
	tagType             = "Type"
	tagContract         = "Contract"
	tagGeneral          = "General"
	schemaRefPrefix     = "#/components/schemas/"
	schemaInteger       = "Integer"
	schemaAddress       = "Address"
	schemaBytes         = "Bytes"
	schemaErrorResponse = "ErrorResponse"
	schemaTypeInfo      = "TypeInfo"
	schemaMethodInfo    = "MethodInfo"
	schemaContractInfo  = "ContractInfo"
	schemaCallResponse  = "CallResponse"
	hexBytesPattern     = "^0x([0-9a-f][0-9a-f])*$"
)

var (
	infoLicenseApache = &openapi3.License{
		Name: "Apache 2.0",
		URL:  "http://www.apache.org/licenses/LICENSE-2.0.html",
	}
	externalDocs = &openapi3.ExternalDocs{
		Description: "Find out more about ARC-4 SDK",
		URL:         "https://github.com/icon-project/arc4-sdk",
	}
	integerSchema = openapi3.NewOneOfSchema(
		openapi3.NewStringSchema().WithPattern("^0x(0|[1-9a-f][0-9a-f]*)$"),
		openapi3.NewStringSchema().WithPattern("^(0|[1-9][0-9]*)$"),
		openapi3.NewIntegerSchema().WithMin(0),
	)
	addressSchema  = openapi3.NewStringSchema().WithFormat(abi.AddressType.String()).WithPattern("^[A-Z2-7]{58}$")
	bytesSchema    = openapi3.NewStringSchema().WithPattern(hexBytesPattern)
	defaultSchemas = map[string]*openapi3.Schema{
		schemaInteger:       integerSchema,
		schemaAddress:       addressSchema,
		schemaBytes:         bytesSchema,
		schemaErrorResponse: MustGenerateSchema(&ErrorResponse{}),
		schemaTypeInfo:      MustGenerateSchema(&TypeInfo{}),
		schemaMethodInfo:    MustGenerateSchema(&MethodInfo{}),
		schemaContractInfo:  MustGenerateSchema(&ContractInfo{}),
		schemaCallResponse:  MustGenerateSchema(&CallResponse{}),
	}
	defaultTags = openapi3.Tags{
		NewTag(tagType, "Type inspection and value encoding"),
		NewTag(tagContract, "Registered application specifications"),
		NewTag(tagGeneral, "General purpose"),
	}
	schemaNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

func MustGenerateSchema(v interface{}) *openapi3.Schema {
	ref, err := openapi3gen.NewSchemaRefForValue(v, nil)
	if err != nil {
		log.Panicf("%+v", err)
	}
	return ref.Value
}

func DefaultSchemaRef(name string) *openapi3.SchemaRef {
	if s, ok := defaultSchemas[name]; ok {
		return openapi3.NewSchemaRef(schemaRefPrefix+name, s)
	}
	return nil
}

func NewSchemas() openapi3.Schemas {
	schemas := make(openapi3.Schemas)
	for k, s := range defaultSchemas {
		schemas[k] = s.NewRef()
	}
	return schemas
}

func NewTag(name, desc string) *openapi3.Tag {
	return &openapi3.Tag{
		Name:        name,
		Description: desc,
	}
}

// SchemaName maps a struct or method name to a valid component name.
func SchemaName(name string) string {
	return schemaNameRegexp.ReplaceAllString(name, "_")
}

// TypeSchemaRef describes the JSON form of values accepted and produced for
// t. Struct schemas are registered in schemas and referenced by name.
func TypeSchemaRef(t *abi.Type, schemas openapi3.Schemas) *openapi3.SchemaRef {
	switch t.Tag() {
	case abi.TUint, abi.TUfixed:
		return DefaultSchemaRef(schemaInteger)
	case abi.TByte:
		return openapi3.NewIntegerSchema().WithMin(0).WithMax(255).NewRef()
	case abi.TBool:
		return openapi3.NewBoolSchema().NewRef()
	case abi.TString:
		return openapi3.NewStringSchema().NewRef()
	case abi.TAddress:
		return DefaultSchemaRef(schemaAddress)
	case abi.TStaticArray, abi.TDynamicArray:
		var schema *openapi3.Schema
		if t.Elem().Tag() == abi.TByte {
			schema = bytesSchema
			if t.Tag() == abi.TStaticArray {
				schema = openapi3.NewStringSchema().
					WithPattern(fmt.Sprintf("^0x([0-9a-f][0-9a-f]){%d}$", t.Length()))
			}
			return schema.NewRef()
		}
		schema = openapi3.NewArraySchema()
		schema.Items = TypeSchemaRef(t.Elem(), schemas)
		if t.Tag() == abi.TStaticArray {
			schema.WithMinItems(int64(t.Length())).WithMaxItems(int64(t.Length()))
		}
		return schema.NewRef()
	case abi.TTuple:
		items := openapi3.NewOneOfSchema()
		for _, c := range t.Children() {
			items.OneOf = append(items.OneOf, TypeSchemaRef(c, schemas))
		}
		n := int64(len(t.Children()))
		schema := openapi3.NewArraySchema().WithMinItems(n).WithMaxItems(n)
		schema.Items = items.NewRef()
		schema.Description = t.String()
		return schema.NewRef()
	case abi.TStruct:
		name := SchemaName(t.Name())
		ref, ok := schemas[name]
		if !ok {
			ref = NewFieldsSchema(t.Fields(), schemas).NewRef()
			ref.Value.Description = t.String()
			schemas[name] = ref
		}
		return openapi3.NewSchemaRef(schemaRefPrefix+name, ref.Value)
	default:
		schema := openapi3.NewObjectSchema()
		schema.Description = t.Tag().String()
		return schema.NewRef()
	}
}

func NewFieldsSchema(fields []abi.Field, schemas openapi3.Schemas) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for _, f := range fields {
		schema.WithPropertyRef(f.Name, TypeSchemaRef(f.Type, schemas))
		schema.Required = append(schema.Required, f.Name)
	}
	return schema
}

// ArgTypeSchemaRef describes a method argument. A reference argument takes
// its index in the foreign array and a transaction argument takes no value.
func ArgTypeSchemaRef(a abi.ArgType, schemas openapi3.Schemas) *openapi3.SchemaRef {
	switch {
	case a.IsTransaction():
		schema := openapi3.NewObjectSchema().WithNullable()
		schema.Description = fmt.Sprintf("%s transaction, not encoded", a.Txn)
		return schema.NewRef()
	case a.IsReference():
		schema := openapi3.NewIntegerSchema().WithMin(0).WithMax(255)
		schema.Description = fmt.Sprintf("index of the %s in the foreign array", a.Ref)
		return schema.NewRef()
	default:
		return TypeSchemaRef(a.Type, schemas)
	}
}

func NewPathParameterWithSchema(name string, s *openapi3.Schema) *openapi3.Parameter {
	return openapi3.NewPathParameter(name).WithRequired(true).WithSchema(s)
}

func NewParameters(ps ...*openapi3.Parameter) openapi3.Parameters {
	parameters := make(openapi3.Parameters, 0, len(ps))
	for _, p := range ps {
		parameters = append(parameters, &openapi3.ParameterRef{Value: p})
	}
	return parameters
}

// NewQueryParametersByObjectSchema lists the properties of s in their
// declared order.
func NewQueryParametersByObjectSchema(s *openapi3.Schema, names ...string) []*openapi3.Parameter {
	l := make([]*openapi3.Parameter, 0, len(names))
	for _, k := range names {
		v, ok := s.Properties[k]
		if !ok {
			continue
		}
		l = append(l, openapi3.NewQueryParameter(k).WithSchema(v.Value))
	}
	return l
}

func NewRequestBodyWithSchema(s *openapi3.Schema) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(s),
	}
}

func NewSuccessResponse() *openapi3.Response {
	return openapi3.NewResponse().WithDescription("Successful operation")
}

func NewSuccessResponseWithSchema(s *openapi3.Schema) *openapi3.Response {
	return NewSuccessResponse().WithJSONSchema(s)
}

func NewSuccessResponseWithSchemaRef(sr *openapi3.SchemaRef) *openapi3.Response {
	return NewSuccessResponse().WithJSONSchemaRef(sr)
}

func NewErrorResponseWithStatus(status int) *openapi3.Response {
	return openapi3.NewResponse().
		WithDescription(http.StatusText(status)).
		WithJSONSchemaRef(DefaultSchemaRef(schemaErrorResponse))
}

func ResponsesWithResponse(m openapi3.Responses, status int, resp *openapi3.Response) openapi3.Responses {
	if m == nil {
		m = make(openapi3.Responses)
	}
	m[strconv.FormatInt(int64(status), 10)] = &openapi3.ResponseRef{
		Value: resp,
	}
	return m
}

// NewResponses returns resp for 200 and ErrorResponse for each of errs.
func NewResponses(resp *openapi3.Response, errs ...int) openapi3.Responses {
	m := ResponsesWithResponse(nil, http.StatusOK, resp)
	for _, status := range errs {
		m = ResponsesWithResponse(m, status, NewErrorResponseWithStatus(status))
	}
	return m
}

func NewStringEnumSchema(strs ...string) *openapi3.Schema {
	values := make([]interface{}, len(strs))
	for i := 0; i < len(strs); i++ {
		values[i] = strs[i]
	}
	return openapi3.NewStringSchema().WithEnum(values...)
}

func newOpenAPISpec(title string) *openapi3.T {
	tags := make(openapi3.Tags, len(defaultTags))
	copy(tags, defaultTags)
	return &openapi3.T{
		OpenAPI: openapi3Version,
		Info: &openapi3.Info{
			Title:   title + infoTitleSuffix,
			Version: infoDefaultVersion,
			License: infoLicenseApache,
		},
		ExternalDocs: externalDocs,
		Tags:         tags,
		Paths:        make(openapi3.Paths),
		Components: &openapi3.Components{
			Schemas: NewSchemas(),
		},
	}
}

func newPostOperation(tag, summary string, req *openapi3.Schema, resp *openapi3.Response, errs ...int) *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{tag},
		Summary:     summary,
		RequestBody: NewRequestBodyWithSchema(req),
		Responses:   NewResponses(resp, append([]int{http.StatusBadRequest}, errs...)...),
	}
}

// NewOpenAPISpec describes every route served by Server.
func NewOpenAPISpec() *openapi3.T {
	oas := newOpenAPISpec(infoTitle)
	typeInfo := NewSuccessResponseWithSchemaRef(DefaultSchemaRef(schemaTypeInfo))
	oas.Paths[GroupUrlApi+UrlType] = &openapi3.PathItem{
		Post: newPostOperation(tagType, "Parse type notation",
			MustGenerateSchema(&TypeRequest{}), typeInfo),
	}
	oas.Paths[GroupUrlApi+UrlEncode] = &openapi3.PathItem{
		Post: newPostOperation(tagType, "Encode value",
			MustGenerateSchema(&EncodeRequest{}),
			NewSuccessResponseWithSchema(MustGenerateSchema(&EncodeResponse{}))),
	}
	oas.Paths[GroupUrlApi+UrlDecode] = &openapi3.PathItem{
		Post: newPostOperation(tagType, "Decode value",
			MustGenerateSchema(&DecodeRequest{}),
			NewSuccessResponseWithSchema(MustGenerateSchema(&DecodeResponse{}))),
	}
	oas.Paths[GroupUrlApi+UrlMethod] = &openapi3.PathItem{
		Post: newPostOperation(tagType, "Parse method signature",
			MustGenerateSchema(&MethodRequest{}),
			NewSuccessResponseWithSchemaRef(DefaultSchemaRef(schemaMethodInfo))),
	}
	oas.Paths[GroupUrlApi+UrlStream] = &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:    []string{tagType},
			Summary: "Websocket stream of type, encode and decode operations",
			Description: "Each text message is a StreamRequest and is answered with a StreamResponse " +
				"carrying the same id, in arrival order.",
			Responses: ResponsesWithResponse(nil, http.StatusSwitchingProtocols,
				openapi3.NewResponse().WithDescription("Switching to websocket")),
		},
	}
	oas.Paths[GroupUrlApi+UrlOpenAPI] = &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:      []string{tagGeneral},
			Summary:   "This document",
			Responses: NewResponses(NewSuccessResponseWithSchema(openapi3.NewObjectSchema())),
		},
	}
	oas.Paths[UrlMetrics] = &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:    []string{tagGeneral},
			Summary: "Prometheus metrics",
			Responses: NewResponses(NewSuccessResponse().WithContent(
				openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"}))),
		},
	}

	contractInfo := NewSuccessResponseWithSchemaRef(DefaultSchemaRef(schemaContractInfo))
	contracts := GroupUrlApi + UrlContracts
	oas.Paths[contracts] = &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:    []string{tagContract},
			Summary: "List registered specifications",
			Parameters: NewParameters(NewQueryParametersByObjectSchema(
				MustGenerateSchema(&database.Pageable{}), "page", "size", "sort")...),
			Responses: NewResponses(NewSuccessResponseWithSchema(
				MustGenerateSchema(&database.Page[ContractInfo]{})), http.StatusBadRequest),
		},
		Post: newPostOperation(tagContract, "Register ARC-56 specification",
			openapi3.NewObjectSchema(), contractInfo),
	}
	nameParam := NewParameters(NewPathParameterWithSchema(ParamName, openapi3.NewStringSchema()))
	named := fmt.Sprintf("%s/{%s}", contracts, ParamName)
	oas.Paths[named] = &openapi3.PathItem{
		Parameters: nameParam,
		Get: &openapi3.Operation{
			Tags:      []string{tagContract},
			Summary:   "Get registered specification",
			Responses: NewResponses(contractInfo, http.StatusNotFound),
		},
		Delete: &openapi3.Operation{
			Tags:      []string{tagContract},
			Summary:   "Delete registered specification",
			Responses: NewResponses(NewSuccessResponse(), http.StatusNotFound),
		},
	}
	oas.Paths[named+UrlEncode] = &openapi3.PathItem{
		Parameters: nameParam,
		Post: newPostOperation(tagContract, "Encode application arguments of method call",
			MustGenerateSchema(&CallRequest{}),
			NewSuccessResponseWithSchemaRef(DefaultSchemaRef(schemaCallResponse)), http.StatusNotFound),
	}
	oas.Paths[named+UrlDecode] = &openapi3.PathItem{
		Parameters: nameParam,
		Post: newPostOperation(tagContract, "Decode return value of method call",
			MustGenerateSchema(&ReturnRequest{}),
			NewSuccessResponseWithSchema(MustGenerateSchema(&ReturnResponse{})), http.StatusNotFound),
	}
	oas.Paths[named+UrlEvent] = &openapi3.PathItem{
		Parameters: nameParam,
		Post: newPostOperation(tagContract, "Decode event log",
			MustGenerateSchema(&EventRequest{}),
			NewSuccessResponseWithSchema(MustGenerateSchema(&EventResponse{})), http.StatusNotFound),
	}
	oas.Paths[named+UrlOpenAPI] = &openapi3.PathItem{
		Parameters: nameParam,
		Get: &openapi3.Operation{
			Tags:    []string{tagContract},
			Summary: "OpenAPI document of registered specification",
			Responses: NewResponses(NewSuccessResponseWithSchema(openapi3.NewObjectSchema()),
				http.StatusNotFound),
		},
	}
	return oas
}

// NewContractOpenAPISpec describes the contract routes of one registered
// specification, with schemas for its structs, method arguments, return
// values and events.
func NewContractOpenAPISpec(s *contract.Spec) *openapi3.T {
	oas := newOpenAPISpec(s.Name)
	oas.Info.Description = s.Desc
	oas.Tags = append(oas.Tags, NewTag(s.Name, s.Desc))
	schemas := oas.Components.Schemas
	for _, name := range sortedKeys(s.StructTypes) {
		TypeSchemaRef(s.StructTypes[name], schemas)
	}

	calls := openapi3.NewOneOfSchema()
	returns := openapi3.NewOneOfSchema()
	for i := range s.Methods {
		m := s.Methods[i].Method
		name := SchemaName(fmt.Sprintf("%s_%x", m.Name, m.Selector()))
		args := openapi3.NewObjectSchema()
		for _, a := range m.Args {
			args.WithPropertyRef(a.Name, ArgTypeSchemaRef(a.Type, schemas))
			if !a.Type.IsTransaction() {
				args.Required = append(args.Required, a.Name)
			}
		}
		call := openapi3.NewObjectSchema().
			WithProperty("method", NewStringEnumSchema(m.Signature())).
			WithProperty("args", args)
		call.Required = []string{"method"}
		call.Description = m.Desc
		schemas[name+"Call"] = call.NewRef()
		calls.OneOf = append(calls.OneOf, openapi3.NewSchemaRef(schemaRefPrefix+name+"Call", call))

		ret := openapi3.NewObjectSchema().
			WithProperty("method", NewStringEnumSchema(m.Signature()))
		if m.Returns != nil {
			ret.WithPropertyRef("value", TypeSchemaRef(m.Returns, schemas))
		} else {
			ret.WithProperty("value", openapi3.NewObjectSchema().WithNullable())
		}
		schemas[name+"Return"] = ret.NewRef()
		returns.OneOf = append(returns.OneOf, openapi3.NewSchemaRef(schemaRefPrefix+name+"Return", ret))
	}

	events := openapi3.NewOneOfSchema()
	for _, sig := range sortedKeys(s.EventMap) {
		e := s.EventMap[sig]
		name := SchemaName(fmt.Sprintf("%s_%x", e.Name, e.Selector))
		ev := openapi3.NewObjectSchema().
			WithProperty("event", NewStringEnumSchema(e.Signature)).
			WithProperty("value", NewFieldsSchema(e.Type.Fields(), schemas))
		ev.Description = e.Desc
		schemas[name+"Event"] = ev.NewRef()
		events.OneOf = append(events.OneOf, openapi3.NewSchemaRef(schemaRefPrefix+name+"Event", ev))
	}

	base := fmt.Sprintf("%s%s/%s", GroupUrlApi, UrlContracts, s.Name)
	oas.Paths[base+UrlEncode] = &openapi3.PathItem{
		Post: newPostOperation(s.Name, "Encode application arguments of method call", calls,
			NewSuccessResponseWithSchemaRef(DefaultSchemaRef(schemaCallResponse)), http.StatusNotFound),
	}
	oas.Paths[base+UrlDecode] = &openapi3.PathItem{
		Post: newPostOperation(s.Name, "Decode return value of method call",
			MustGenerateSchema(&ReturnRequest{}),
			NewSuccessResponseWithSchema(returns), http.StatusNotFound),
	}
	if len(events.OneOf) > 0 {
		oas.Paths[base+UrlEvent] = &openapi3.PathItem{
			Post: newPostOperation(s.Name, "Decode event log",
				MustGenerateSchema(&EventRequest{}),
				NewSuccessResponseWithSchema(events), http.StatusNotFound),
		}
	}
	return oas
}
