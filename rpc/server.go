// Package rpc exposes the controller's three operations over HTTP.
// Grounded on the teacher's ais/tgts3.go dispatch-by-method pattern
// (single handler, switch on method/path, nlog on entry), ported to
// fasthttp since that is the HTTP stack this module carries instead of
// net/http.
/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package rpc

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"

	"github.com/streamworks/streamctl/cmn/nlog"
	"github.com/streamworks/streamctl/core/ctl"
	"github.com/streamworks/streamctl/stats"
)

const (
	pathCreateStream    = "/v1/streams"
	pathOpenStream      = "/v1/streams/open"
	pathCommitWALObject = "/v1/wal/commit"
)

// Journal is the one thing a handler does after computing a
// ControllerResult: append its records to the durable metadata log and
// apply them to live state. Kept as a narrow interface so the server
// doesn't need to know about the log's transport.
type Journal interface {
	Append(records []ctl.Record) (offset int64, err error)
}

type Server struct {
	manager *ctl.Manager
	state   *ctl.State
	journal Journal
	metrics *stats.Registry

	mu serverMu
}

// serverMu serializes operation+journal-append pairs so two concurrent
// requests never race to append records computed against the same
// State snapshot (spec §4: operations read State, only Replay - driven
// by the journal's own offset order - mutates it).
type serverMu struct{ lockCh chan struct{} }

func newServerMu() serverMu {
	m := serverMu{lockCh: make(chan struct{}, 1)}
	m.lockCh <- struct{}{}
	return m
}
func (m serverMu) Lock()   { <-m.lockCh }
func (m serverMu) Unlock() { m.lockCh <- struct{}{} }

func NewServer(manager *ctl.Manager, state *ctl.State, journal Journal, metrics *stats.Registry) *Server {
	return &Server{manager: manager, state: state, journal: journal, metrics: metrics, mu: newServerMu()}
}

func (s *Server) ListenAndServe(addr string) error {
	nlog.Infof("rpc: listening on %s", addr)
	return fasthttp.ListenAndServe(addr, s.handler)
}

func (s *Server) handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case path == pathCreateStream && ctx.IsPost():
		s.serve(ctx, "create_stream", s.handleCreateStream)
	case path == pathOpenStream && ctx.IsPost():
		s.serve(ctx, "open_stream", s.handleOpenStream)
	case path == pathCommitWALObject && ctx.IsPost():
		s.serve(ctx, "commit_wal_object", s.handleCommitWALObject)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) serve(ctx *fasthttp.RequestCtx, op string, fn func(ctx *fasthttp.RequestCtx) (errCode string, err error)) {
	start := time.Now()
	errCode, err := fn(ctx)
	if s.metrics != nil {
		s.metrics.ObserveRequest(op, start)
		if errCode != "" {
			s.metrics.ObserveError(op, errCode)
		}
	}
	if err != nil {
		nlog.Errorf("rpc: %s failed: %v", op, err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
}

func (s *Server) handleCreateStream(ctx *fasthttp.RequestCtx) (string, error) {
	var req ctl.CreateStreamRequest
	if err := jsoniter.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return "", err
	}

	s.mu.Lock()
	resp, result := s.manager.CreateStream(s.state, &req)
	if err := s.commit(result); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	if resp.ErrorCode == ctl.ErrNone {
		s.metrics.IncStreamsCreated()
	}
	return writeJSON(ctx, resp, resp.ErrorCode)
}

func (s *Server) handleOpenStream(ctx *fasthttp.RequestCtx) (string, error) {
	var req ctl.OpenStreamRequest
	if err := jsoniter.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return "", err
	}

	s.mu.Lock()
	resp, result := s.manager.OpenStream(s.state, &req)
	err := s.commit(result)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return writeJSON(ctx, resp, resp.ErrorCode)
}

func (s *Server) handleCommitWALObject(ctx *fasthttp.RequestCtx) (string, error) {
	var req ctl.CommitWALObjectRequest
	if err := jsoniter.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return "", err
	}

	s.mu.Lock()
	resp, result := s.manager.CommitWALObject(s.state, &req)
	err := s.commit(result)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if resp.ErrorCode == ctl.ErrNone {
		s.metrics.IncObjectsCommitted()
	}
	return writeJSON(ctx, resp, resp.ErrorCode)
}

// commit appends result's records to the journal and applies them to
// live state in the same order, iff there are any - idempotent
// lookups (spec §4.2) legitimately produce zero records.
func (s *Server) commit(result *ctl.ControllerResult) error {
	if len(result.Records) == 0 {
		return nil
	}
	if _, err := s.journal.Append(result.Records); err != nil {
		return err
	}
	for _, rec := range result.Records {
		ctl.Replay(s.state, rec)
	}
	return nil
}

func writeJSON(ctx *fasthttp.RequestCtx, v any, code ctl.ErrorCode) (string, error) {
	raw, err := jsoniter.Marshal(v)
	if err != nil {
		return "", err
	}
	ctx.SetContentType("application/json")
	if _, err = ctx.Write(raw); err != nil {
		return "", err
	}
	if code != ctl.ErrNone {
		return code.String(), nil
	}
	return "", nil
}
