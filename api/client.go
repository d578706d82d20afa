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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gorilla/websocket"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/arc4-sdk/database"
)

const wsCloseTimeout = time.Second

type Client struct {
	*http.Client
	baseUrl    string
	baseApiUrl string
	lv         log.Level
	l          log.Logger
}

func NewClient(url string, transportLogLevel log.Level, l log.Logger) *Client {
	l = Logger(l)
	return &Client{
		Client:     NewHttpClient(transportLogLevel, l),
		baseUrl:    url,
		baseApiUrl: url + GroupUrlApi,
		lv:         EnsureTransportLogLevel(transportLogLevel),
		l:          l,
	}
}

func (c *Client) apiUrl(format string, args ...interface{}) string {
	return c.baseApiUrl + fmt.Sprintf(format, args...)
}

func (c *Client) do(method, url string, reqPtr, respPtr interface{}) (resp *http.Response, err error) {
	var reqBody io.Reader
	if reqPtr != nil {
		var b []byte
		if b, err = json.Marshal(reqPtr); err != nil {
			c.l.Debugf("fail to encode Request err:%+v", err)
			return nil, err
		}
		reqBody = bytes.NewReader(b)
	}
	if !strings.HasPrefix(url, c.baseApiUrl) {
		url = c.baseApiUrl + url
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		c.l.Debugf("fail to NewRequest err:%+v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.l.Debugf("url=%s", req.URL)
	if resp, err = c.Client.Do(req); err != nil {
		return
	}
	if resp.StatusCode/100 != 2 {
		er := &ErrorResponse{}
		if err = UnmarshalBody(resp.Body, er); err != nil {
			c.l.Debugf("fail to decode ErrorResponse err:%+v", err)
			err = errors.Errorf("server response not success, StatusCode:%d",
				resp.StatusCode)
			return
		}
		err = er
		return
	}
	if respPtr != nil {
		if err = UnmarshalBody(resp.Body, respPtr); err != nil {
			c.l.Debugf("fail to decode resp err:%+v", err)
			return
		}
	} else {
		_ = resp.Body.Close()
	}
	return
}

func (c *Client) Type(typ string) (*TypeInfo, error) {
	r := &TypeInfo{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlType), &TypeRequest{Type: typ}, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Encode(typ string, value interface{}) ([]byte, error) {
	r := &EncodeResponse{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlEncode), &EncodeRequest{Type: typ, Value: value}, r); err != nil {
		return nil, err
	}
	return r.Data, nil
}

func (c *Client) Decode(typ string, data []byte) (interface{}, error) {
	r := &DecodeResponse{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlDecode), &DecodeRequest{Type: typ, Data: data}, r); err != nil {
		return nil, err
	}
	return r.Value, nil
}

func (c *Client) Method(signature string) (*MethodInfo, error) {
	r := &MethodInfo{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlMethod), &MethodRequest{Signature: signature}, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) OpenAPI() (*openapi3.T, error) {
	r := &openapi3.T{}
	if _, err := c.do(http.MethodGet, c.apiUrl(UrlOpenAPI), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Contracts(p database.Pageable) (*database.Page[ContractInfo], error) {
	q := url.Values{}
	q.Set("page", strconv.FormatUint(uint64(p.Page), 10))
	q.Set("size", strconv.FormatUint(uint64(p.Size), 10))
	if len(p.Sort) > 0 {
		q.Set("sort", p.Sort)
	}
	r := &database.Page[ContractInfo]{}
	if _, err := c.do(http.MethodGet, c.apiUrl("%s?%s", UrlContracts, q.Encode()), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Register uploads an ARC-56 document, replacing the one with the same name.
func (c *Client) Register(raw []byte) (*ContractInfo, error) {
	r := &ContractInfo{}
	if _, err := c.do(http.MethodPost, c.apiUrl(UrlContracts), json.RawMessage(raw), r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Contract(name string) (*ContractInfo, error) {
	r := &ContractInfo{}
	if _, err := c.do(http.MethodGet, c.apiUrl("%s/%s", UrlContracts, url.PathEscape(name)), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) DeleteContract(name string) error {
	_, err := c.do(http.MethodDelete, c.apiUrl("%s/%s", UrlContracts, url.PathEscape(name)), nil, nil)
	return err
}

func (c *Client) ContractOpenAPI(name string) (*openapi3.T, error) {
	r := &openapi3.T{}
	if _, err := c.do(http.MethodGet, c.apiUrl("%s/%s%s", UrlContracts, url.PathEscape(name), UrlOpenAPI), nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

// EncodeCall returns the application arguments for calling method with
// args, either a positional list or a map keyed by argument name.
func (c *Client) EncodeCall(name, method string, args interface{}) (*CallResponse, error) {
	r := &CallResponse{}
	req := &CallRequest{Method: method, Args: args}
	if _, err := c.do(http.MethodPost, c.apiUrl("%s/%s%s", UrlContracts, url.PathEscape(name), UrlEncode), req, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) DecodeReturn(name, method string, log []byte) (*ReturnResponse, error) {
	r := &ReturnResponse{}
	req := &ReturnRequest{Method: method, Log: log}
	if _, err := c.do(http.MethodPost, c.apiUrl("%s/%s%s", UrlContracts, url.PathEscape(name), UrlDecode), req, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) DecodeEvent(name string, log []byte) (*EventResponse, error) {
	r := &EventResponse{}
	req := &EventRequest{Log: log}
	if _, err := c.do(http.MethodPost, c.apiUrl("%s/%s%s", UrlContracts, url.PathEscape(name), UrlEvent), req, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) wsID(conn *websocket.Conn) string {
	return conn.LocalAddr().String()
}

func (c *Client) wsConnect(ctx context.Context, url string) (*websocket.Conn, error) {
	url = strings.Replace(url, "http", "ws", 1)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if err == websocket.ErrBadHandshake && resp != nil {
			er := &ErrorResponse{}
			if err = UnmarshalBody(resp.Body, er); err != nil {
				err = errors.Errorf("server response not success, StatusCode:%d",
					resp.StatusCode)
			} else {
				err = er
			}
		}
		c.l.Debugf("fail to Dial url:%s err:%+v", url, err)
		return nil, err
	}
	c.l.Debugf("[%s]wsConnect", c.wsID(conn))
	return conn, nil
}

// wsClose may run while another goroutine is writing, so the close frame
// goes through WriteControl.
func (c *Client) wsClose(conn *websocket.Conn) {
	id := c.wsID(conn)
	c.l.Debugf("[%s]wsClose", id)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsCloseTimeout)); err != nil {
		c.l.Debugf("[%s]fail to write close message err:%+v", id, err)
	}
	if err := conn.Close(); err != nil {
		c.l.Debugf("[%s]fail to close err:%+v", id, err)
	}
}

func (c *Client) wsWrite(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.l.Logf(c.lv, "[%s]wsWrite=%s", c.wsID(conn), b)
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (c *Client) wsReadLoop(ctx context.Context, conn *websocket.Conn, cb func(b []byte) (bool, error)) error {
	id := c.wsID(conn)
	ech := make(chan error, 1)
	go func() {
		defer func() {
			c.l.Debugf("[%s]wsReadLoop finish", id)
		}()
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				ech <- err
				return
			}
			c.l.Logf(c.lv, "[%s]wsReadLoop=%s", id, b)
			done, err := cb(b)
			if err != nil || done {
				ech <- err
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		c.l.Debugf("[%s]wsReadLoop context Done", id)
		return ctx.Err()
	case err := <-ech:
		if err != nil {
			c.l.Debugf("[%s]wsReadLoop err:%+v", id, err)
		}
		return err
	}
}

// Stream sends reqs over one websocket connection and calls cb with each
// response in request order. A failed operation is reported through
// StreamResponse.Error and does not end the stream.
func (c *Client) Stream(ctx context.Context, reqs []StreamRequest, cb func(resp *StreamResponse) error) error {
	if len(reqs) == 0 {
		return nil
	}
	conn, err := c.wsConnect(ctx, c.apiUrl(UrlStream))
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	wch := make(chan error, 1)
	go func() {
		for i := range reqs {
			select {
			case <-stop:
				wch <- nil
				return
			default:
			}
			if err := c.wsWrite(conn, &reqs[i]); err != nil {
				wch <- err
				return
			}
		}
		wch <- nil
	}()
	received := 0
	err = c.wsReadLoop(ctx, conn, func(b []byte) (bool, error) {
		resp := &StreamResponse{}
		if err := unmarshalJSON(b, resp); err != nil {
			return false, err
		}
		received++
		if err := cb(resp); err != nil {
			return false, err
		}
		return received == len(reqs), nil
	})
	close(stop)
	if err != nil {
		// closing the connection fails a write in progress
		c.wsClose(conn)
		<-wch
		return err
	}
	err = <-wch
	c.wsClose(conn)
	return err
}
