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
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gorilla/websocket"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/icon-project/arc4-sdk/abi"
	"github.com/icon-project/arc4-sdk/contract"
	"github.com/icon-project/arc4-sdk/database"
)

const (
	ParamName          = "name"
	GroupUrlApi        = "/api"
	UrlType            = "/type"
	UrlEncode          = "/encode"
	UrlDecode          = "/decode"
	UrlMethod          = "/method"
	UrlContracts       = "/contracts"
	UrlEvent           = "/event"
	UrlOpenAPI         = "/openapi"
	UrlStream          = "/stream"
	MaxSpecSize        = 4 * 1024 * 1024
	WsHandshakeTimeout = time.Second * 3
)

func Logger(l log.Logger) log.Logger {
	return l.WithFields(log.Fields{log.FieldKeyModule: "api"})
}

type Server struct {
	e    *echo.Echo
	addr string
	reg  *contract.Registry
	p    *abi.Parser
	oas  *openapi3.T
	m    *Metrics
	u    websocket.Upgrader
	lv   log.Level
	l    log.Logger
}

// NewServer builds the echo instance with every route registered, so that
// Handler can serve before Start.
func NewServer(addr string, transportLogLevel log.Level, reg *contract.Registry, parserCacheSize int, l log.Logger) (*Server, error) {
	if parserCacheSize <= 0 {
		parserCacheSize = abi.DefaultParserCacheSize
	}
	p, err := abi.NewParser(parserCacheSize)
	if err != nil {
		return nil, err
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HttpErrorHandler
	s := &Server{
		e:    e,
		addr: addr,
		reg:  reg,
		p:    p,
		oas:  NewOpenAPISpec(),
		m:    NewMetrics(),
		u: websocket.Upgrader{
			HandshakeTimeout: WsHandshakeTimeout,
		},
		lv: EnsureTransportLogLevel(transportLogLevel),
		l:  Logger(l),
	}
	e.Use(
		s.m.Middleware(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			MaxAge: 3600,
		}),
		middleware.Recover())
	e.GET(UrlMetrics, s.m.Handler())
	s.RegisterAPIHandler(e.Group(GroupUrlApi))
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start() error {
	s.l.Infof("starting the server address:%s", s.addr)
	return s.e.Start(s.addr)
}

func (s *Server) Stop() error {
	s.l.Infoln("shutting down the server")
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func (s *Server) bind(c echo.Context, v interface{}) error {
	if err := UnmarshalRequestBody(c, v); err != nil {
		s.l.Debugf("fail to UnmarshalRequestBody err:%+v", err)
		return ErrorCodeBadRequest.Wrapf(err, "invalid request body err:%s", err.Error())
	}
	if err := c.Validate(v); err != nil {
		s.l.Debugf("fail to Validate err:%+v", err)
		return err
	}
	return nil
}

func (s *Server) RegisterAPIHandler(g *echo.Group) {
	g.Use(middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), UrlStream)
		},
		Handler: func(c echo.Context, reqBody []byte, resBody []byte) {
			s.l.Debugf("url=%s", c.Request().RequestURI)
			s.l.Logf(s.lv, "request=%s", reqBody)
			s.l.Logf(s.lv, "response=%s", resBody)
		},
	}))
	g.POST(UrlType, func(c echo.Context) error {
		req := &TypeRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		t, err := s.p.Parse(req.Type)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, TypeInfoOf(t))
	})
	g.POST(UrlEncode, func(c echo.Context) error {
		req := &EncodeRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		t, err := s.p.Parse(req.Type)
		if err != nil {
			return err
		}
		b, err := abi.Encode(t, req.Value)
		if err != nil {
			s.l.Debugf("fail to Encode type:%s err:%+v", req.Type, err)
			return err
		}
		return c.JSON(http.StatusOK, &EncodeResponse{Type: t.String(), Data: b})
	})
	g.POST(UrlDecode, func(c echo.Context) error {
		req := &DecodeRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		t, err := s.p.Parse(req.Type)
		if err != nil {
			return err
		}
		v, err := abi.Decode(t, req.Data)
		if err != nil {
			s.l.Debugf("fail to Decode type:%s err:%+v", req.Type, err)
			return err
		}
		if v, err = contract.ParamOf(v, contract.DecimalInteger); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, &DecodeResponse{Type: t.String(), Value: v})
	})
	g.POST(UrlMethod, func(c echo.Context) error {
		req := &MethodRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		m, err := abi.ParseMethod(req.Signature)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, MethodInfoOf(m))
	})
	g.GET(UrlOpenAPI, func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.oas)
	})
	g.GET(UrlStream, s.stream)
	s.RegisterContractHandler(g.Group(UrlContracts))
}

func (s *Server) RegisterContractHandler(g *echo.Group) {
	g.GET("", func(c echo.Context) error {
		p := database.Pageable{}
		if err := (&echo.DefaultBinder{}).BindQueryParams(c, &p); err != nil {
			return ErrorCodeBadRequest.Wrapf(err, "invalid query err:%s", err.Error())
		}
		page, err := s.reg.List(p)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, database.Map(page, ContractInfoOf))
	})
	g.POST("", func(c echo.Context) error {
		b, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxSpecSize+1))
		if err != nil {
			return ErrorCodeBadRequest.Wrapf(err, "fail to read spec err:%s", err.Error())
		}
		if len(b) > MaxSpecSize {
			return ErrorCodeBadRequest.Errorf("spec exceeds %d bytes", MaxSpecSize)
		}
		rec, spec, err := s.reg.Register(b)
		if err != nil {
			s.l.Debugf("fail to Register err:%+v", err)
			return err
		}
		ci := ContractInfoOf(*rec)
		ci.Detail = SpecDetailOf(spec)
		return c.JSON(http.StatusOK, ci)
	})

	named := "/:" + ParamName
	g.GET(named, func(c echo.Context) error {
		name := c.Param(ParamName)
		rec, err := s.reg.Record(name)
		if err != nil {
			return err
		}
		spec, err := s.reg.Get(name)
		if err != nil {
			return err
		}
		ci := ContractInfoOf(*rec)
		ci.Detail = SpecDetailOf(spec)
		return c.JSON(http.StatusOK, ci)
	})
	g.DELETE(named, func(c echo.Context) error {
		if err := s.reg.Delete(c.Param(ParamName)); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})
	g.POST(named+UrlEncode, func(c echo.Context) error {
		req := &CallRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		m, appArgs, err := s.reg.EncodeCall(c.Param(ParamName), req.Method, req.Args)
		if err != nil {
			s.l.Debugf("fail to EncodeCall method:%s err:%+v", req.Method, err)
			return err
		}
		resp := &CallResponse{
			Method:   m.Method.Signature(),
			Selector: m.Method.Selector(),
			AppArgs:  make([]hexutil.Bytes, len(appArgs)),
		}
		for i, b := range appArgs {
			resp.AppArgs[i] = b
		}
		return c.JSON(http.StatusOK, resp)
	})
	g.POST(named+UrlDecode, func(c echo.Context) error {
		req := &ReturnRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		m, v, err := s.reg.DecodeReturn(c.Param(ParamName), req.Method, req.Log)
		if err != nil {
			s.l.Debugf("fail to DecodeReturn method:%s err:%+v", req.Method, err)
			return err
		}
		if v, err = contract.ParamOf(v, contract.DecimalInteger); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, &ReturnResponse{Method: m.Method.Signature(), Value: v})
	})
	g.POST(named+UrlEvent, func(c echo.Context) error {
		req := &EventRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		e, v, err := s.reg.DecodeEvent(c.Param(ParamName), req.Log)
		if err != nil {
			return err
		}
		p, err := contract.ParamOf(v, contract.DecimalInteger)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, &EventResponse{Event: e.Signature, Value: p})
	})
	g.GET(named+UrlOpenAPI, func(c echo.Context) error {
		spec, err := s.reg.Get(c.Param(ParamName))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, NewContractOpenAPISpec(spec))
	})
}

func (s *Server) wsID(conn *websocket.Conn) string {
	return conn.RemoteAddr().String()
}

func (s *Server) wsConnect(c echo.Context) (*websocket.Conn, error) {
	conn, err := s.u.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.l.Debugf("fail to Upgrade err:%+v", err)
		return nil, err
	}
	s.l.Debugf("[%s]wsConnect", s.wsID(conn))
	return conn, nil
}

func (s *Server) wsClose(conn *websocket.Conn) {
	s.l.Debugf("[%s]wsClose", s.wsID(conn))
	conn.Close()
}

func (s *Server) wsWrite(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.l.Logf(s.lv, "[%s]wsWrite=%s", s.wsID(conn), b)
	return conn.WriteMessage(websocket.TextMessage, b)
}

// stream serves StreamRequests in arrival order, one StreamResponse for
// each, until the peer closes the connection.
func (s *Server) stream(c echo.Context) error {
	conn, err := s.wsConnect(c)
	if err != nil {
		return err
	}
	defer s.wsClose(conn)
	s.m.onStream(true)
	defer s.m.onStream(false)
	id := s.wsID(conn)
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.l.Debugf("[%s]fail to ReadMessage err:%+v", id, err)
			}
			return nil
		}
		s.l.Logf(s.lv, "[%s]wsRead=%s", id, b)
		req := &StreamRequest{}
		resp := &StreamResponse{}
		if err = unmarshalJSON(b, req); err != nil {
			err = ErrorCodeBadRequest.Wrapf(err, "invalid stream request err:%s", err.Error())
		} else {
			resp.ID = req.ID
			if err = c.Validate(req); err == nil {
				err = s.handleStream(req, resp)
			}
		}
		s.m.onStreamMessage(req.Op, err)
		if err != nil {
			resp.Error = NewErrorResponse(err)
		}
		if err = s.wsWrite(conn, resp); err != nil {
			s.l.Debugf("[%s]fail to wsWrite err:%+v", id, err)
			return nil
		}
	}
}

func (s *Server) handleStream(req *StreamRequest, resp *StreamResponse) error {
	t, err := s.p.Parse(req.Type)
	if err != nil {
		return err
	}
	switch req.Op {
	case StreamOpType:
		resp.Info = TypeInfoOf(t)
	case StreamOpEncode:
		if resp.Data, err = abi.Encode(t, req.Value); err != nil {
			return err
		}
	case StreamOpDecode:
		v, err := abi.Decode(t, req.Data)
		if err != nil {
			return err
		}
		if resp.Value, err = contract.ParamOf(v, contract.DecimalInteger); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown op %s", req.Op)
	}
	return nil
}

func UnmarshalRequestBody(c echo.Context, v interface{}) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	return UnmarshalBody(c.Request().Body, v)
}

// UnmarshalBody decodes JSON keeping numbers as json.Number, which holds
// integers beyond float64 precision.
func UnmarshalBody(b io.ReadCloser, v interface{}) error {
	defer b.Close()
	d := json.NewDecoder(b)
	d.UseNumber()
	return d.Decode(v)
}

func unmarshalJSON(b []byte, v interface{}) error {
	return UnmarshalBody(io.NopCloser(bytes.NewReader(b)), v)
}
