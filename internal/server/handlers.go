package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/djb258/client-sub001/internal/database"
	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/gateway"
	"github.com/djb258/client-sub001/internal/logger"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r.Context())
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "driver": string(s.db.Driver())})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req gateway.ExecuteRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(w, http.StatusBadRequest, "sql is required")
		return
	}

	jobID := uuid.NewString()
	log := logger.FromContext(r.Context()).With(
		logger.F("job_id", jobID),
		logger.F("schema", req.Schema),
		logger.F("migration", req.Migration),
	)

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()
	if err := s.db.ExecScript(ctx, req.SQL); err != nil {
		log.Error("execute failed", err)
		writeErr(w, err)
		return
	}
	log.Info("executed", logger.F("bytes", len(req.SQL)))
	writeJSON(w, http.StatusOK, gateway.ExecuteResult{JobID: jobID})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	var req gateway.SchemaRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Schema) == "" {
		writeError(w, http.StatusBadRequest, "schema is required")
		return
	}

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()
	info, err := s.db.InspectSchema(ctx, req.Schema)
	if err != nil {
		logger.FromContext(r.Context()).Error("inspect failed", err, logger.F("schema", req.Schema))
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liveSchema(info))
}

// liveSchema converts introspection output to the gateway wire shape.
func liveSchema(info *database.Schema) gateway.LiveSchema {
	out := gateway.LiveSchema{Tables: make(map[string]gateway.LiveTable, len(info.Tables))}
	for name, t := range info.Tables {
		cols := make(map[string]gateway.LiveColumn, len(t.Columns))
		for _, c := range t.Columns {
			cols[c.Name] = gateway.LiveColumn{Type: c.DataType}
		}
		out.Tables[name] = gateway.LiveTable{Columns: cols}
	}
	return out
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindQueryFailed:
		return http.StatusUnprocessableEntity
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
