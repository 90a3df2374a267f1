package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/aleister1102/filecompare/internal/orchestrator"
	"github.com/aleister1102/filecompare/internal/rslimiter"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status     string                  `json:"status"`
	Dispatcher string                  `json:"dispatcher"`
	Resources  rslimiter.ResourceUsage `json:"resources"`
}

// POST /api/compare
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, err)
		return
	}

	a, err := formFile(r, "fileA")
	if err != nil {
		s.writeError(w, err)
		return
	}
	b, err := formFile(r, "fileB")
	if err != nil {
		s.writeError(w, err)
		return
	}

	cfg := s.defaultConfig
	if raw := r.FormValue("config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			s.writeError(w, common.NewValidationError("config", raw, "config must be a JSON object"))
			return
		}
	}

	result, err := s.service.CompareFiles(r.Context(), a, b, cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// POST /api/parse
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, err)
		return
	}

	in, err := formFile(r, "file")
	if err != nil {
		s.writeError(w, err)
		return
	}

	parsed, err := s.service.ParseFile(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, parsed)
}

// GET /api/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.ComparisonResult{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// DELETE /api/history
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearHistory(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Resources: rslimiter.GetResourceUsage(),
	}
	if s.state != nil {
		resp.Dispatcher = s.state.State().String()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	limit := int64(s.cfg.MaxUploadMB) * 1024 * 1024
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return common.NewValidationError("body", r.Header.Get("Content-Type"), fmt.Sprintf("invalid multipart form: %v", err))
	}
	return nil
}

func formFile(r *http.Request, field string) (orchestrator.FileInput, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return orchestrator.FileInput{}, common.NewValidationError(field, nil, "file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return orchestrator.FileInput{}, common.WrapErrorf(err, "failed to read upload %s", field)
	}
	return orchestrator.FileInput{Name: header.Filename, Data: data}, nil
}

// statusFor maps caller mistakes and undecodable inputs to 400 and every
// other failure to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrContainerDecode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).AnErr("root_cause", common.GetRootCause(err)).Msg("Request failed")
	} else {
		s.logger.Debug().Err(err).Msg("Request rejected")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
