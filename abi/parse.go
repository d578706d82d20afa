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
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/icon-project/btp2/common/log"
)

const (
	DefaultParserCacheSize = 1024
)

var (
	staticArrayRegexp = regexp.MustCompile(`^([a-z\d[\](),]+)\[(0|[1-9][\d]*)]$`)
	ufixedRegexp      = regexp.MustCompile(`^ufixed([1-9][\d]*)x([1-9][\d]*)$`)

	defaultParser = MustNewParser(DefaultParserCacheSize)
)

// Parser converts type notation into descriptors, keeping recently parsed
// results in an LRU cache.
type Parser struct {
	cache *lru.Cache
}

func NewParser(cacheSize int) (*Parser, error) {
	c, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Parser{cache: c}, nil
}

func MustNewParser(cacheSize int) *Parser {
	p, err := NewParser(cacheSize)
	if err != nil {
		log.Panicf("fail to NewParser err:%+v", err)
	}
	return p
}

func (p *Parser) Parse(text string) (*Type, error) {
	if v, ok := p.cache.Get(text); ok {
		return v.(*Type), nil
	}
	t, err := parseType(text, 1)
	if err != nil {
		return nil, err
	}
	p.cache.Add(text, t)
	return t, nil
}

func (p *Parser) Len() int {
	return p.cache.Len()
}

func ParseType(text string) (*Type, error) {
	return defaultParser.Parse(text)
}

func MustParseType(text string) *Type {
	t, err := ParseType(text)
	if err != nil {
		log.Panicf("fail to ParseType err:%+v", err)
	}
	return t
}

func parseType(s string, depth int) (*Type, error) {
	if depth > MaxTypeDepth {
		return nil, malformedf("type depth exceeds %d", MaxTypeDepth)
	}
	abiLogger.Traceln("parseType", s, "depth:", depth)
	if strings.HasSuffix(s, "[]") {
		elem, err := parseType(s[:len(s)-2], depth+1)
		if err != nil {
			return nil, err
		}
		return NewDynamicArrayType(elem)
	}
	if strings.HasSuffix(s, "]") {
		m := staticArrayRegexp.FindStringSubmatch(s)
		if m == nil {
			return nil, malformedf("malformed static array type %q", s)
		}
		length, err := strconv.Atoi(m[2])
		if err != nil || length > MaxLength {
			return nil, malformedf("invalid static array length %q", m[2])
		}
		elem, err := parseType(m[1], depth+1)
		if err != nil {
			return nil, err
		}
		return NewStaticArrayType(elem, length)
	}
	if strings.HasPrefix(s, "uint") {
		digits := s[len("uint"):]
		if !isDigits(digits) {
			return nil, malformedf("malformed uint type %q", s)
		}
		bitSize, err := strconv.Atoi(digits)
		if err != nil {
			return nil, malformedf("malformed uint type %q", s)
		}
		return NewUintType(bitSize)
	}
	switch s {
	case "byte":
		return ByteType, nil
	case "bool":
		return BoolType, nil
	case "address":
		return AddressType, nil
	case "string":
		return StringType, nil
	}
	if m := ufixedRegexp.FindStringSubmatch(s); m != nil {
		bitSize, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, malformedf("malformed ufixed type %q", s)
		}
		precision, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, malformedf("malformed ufixed type %q", s)
		}
		return NewUfixedType(bitSize, precision)
	}
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		parts, err := SplitTupleContent(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		children := make([]*Type, len(parts))
		for i, part := range parts {
			if children[i], err = parseType(part, depth+1); err != nil {
				return nil, err
			}
		}
		return NewTupleType(children...)
	}
	return nil, malformedf("cannot parse type %q", s)
}

func isDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// SplitTupleContent splits the content of a tuple notation, without the
// enclosing parentheses, at commas outside nested parentheses.
func SplitTupleContent(content string) ([]string, error) {
	if len(content) == 0 {
		return []string{}, nil
	}
	if strings.HasPrefix(content, ",") {
		return nil, malformedf("tuple content %q starts with comma", content)
	}
	if strings.HasSuffix(content, ",") {
		return nil, malformedf("tuple content %q ends with comma", content)
	}
	var (
		parts []string
		depth = 0
		start = 0
	)
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return nil, malformedf("unbalanced parenthesis in %q", content)
			}
			depth--
		case ',':
			if depth == 0 {
				if i == start {
					return nil, malformedf("consecutive commas in %q", content)
				}
				parts = append(parts, content[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, malformedf("unbalanced parenthesis in %q", content)
	}
	return append(parts, content[start:]), nil
}
