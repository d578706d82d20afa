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
	"bytes"
	"io"
	"net/http"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
)

const (
	DefaultTransportLogLevel = log.TraceLevel
	TransportLogLevelLimit   = log.InfoLevel
	DefaultDumpLimit         = 4096
)

// HttpTransport dumps request and response bodies at its log level.
type HttpTransport struct {
	*http.Transport
	lv    log.Level
	limit int
	l     log.Logger
}

func (t *HttpTransport) dump(prefix string, rc io.ReadCloser) (io.ReadCloser, error) {
	if rc == nil || rc == http.NoBody {
		return rc, nil
	}
	b, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "fail to io.ReadAll err:%s", err.Error())
	}
	if t.l.GetLevel() >= t.lv {
		if len(b) > t.limit {
			t.l.Logf(t.lv, "%s=%s...(%d bytes)", prefix, b[:t.limit], len(b))
		} else {
			t.l.Logf(t.lv, "%s=%s", prefix, b)
		}
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (t *HttpTransport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	if req.Body, err = t.dump("request", req.Body); err != nil {
		return nil, err
	}
	if resp, err = t.Transport.RoundTrip(req); err != nil {
		return nil, errors.Wrapf(err, "fail to RoundTrip err:%s", err.Error())
	}
	if resp.Body, err = t.dump("response", resp.Body); err != nil {
		return nil, err
	}
	return resp, nil
}

func NewHttpTransport(lv log.Level, l log.Logger) *HttpTransport {
	return &HttpTransport{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
		lv:        EnsureTransportLogLevel(lv),
		limit:     DefaultDumpLimit,
		l:         l,
	}
}

func NewHttpClient(lv log.Level, l log.Logger) *http.Client {
	return &http.Client{
		Transport: NewHttpTransport(lv, l),
	}
}

// EnsureTransportLogLevel keeps body dumps at info level or more verbose.
func EnsureTransportLogLevel(lv log.Level) log.Level {
	if lv < TransportLogLevelLimit {
		return DefaultTransportLogLevel
	}
	return lv
}
