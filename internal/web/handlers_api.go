package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/table"
	mw "github.com/JonMunkholm/datasweeper/internal/web/middleware"
)

// maxJSONBody caps API request bodies other than uploads.
const maxJSONBody = 1 << 20

// PreviewResponse is the first rows of a table as display strings.
type PreviewResponse struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// FileResponse is the JSON form of core.FileView.
type FileResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Columns      []core.ColumnInfo   `json:"columns"`
	State        core.CleaningState  `json:"state"`
	Rows         int                 `json:"rows"`
	Cols         int                 `json:"cols"`
	Preview      PreviewResponse     `json:"preview"`
	Chart        *table.ChartSummary `json:"chart,omitempty"`
	ChartMessage string              `json:"chart_message,omitempty"`
	OutputName   string              `json:"output_name"`
}

// FailureResponse is a file that could not be loaded.
type FailureResponse struct {
	FileName string `json:"file_name"`
	Message  string `json:"message"`
	Action   string `json:"action,omitempty"`
	Code     string `json:"code"`
}

// BatchResponse is the result of a session's upload or file listing.
type BatchResponse struct {
	Files    []FileResponse    `json:"files"`
	Failures []FailureResponse `json:"failures"`
}

// ChartResponse is a chart summary or the informational empty state.
type ChartResponse struct {
	*table.ChartSummary
	Empty   bool   `json:"empty,omitempty"`
	Message string `json:"message,omitempty"`
}

func toFileResponse(v core.FileView) FileResponse {
	header, rows := v.Preview.Records()
	if rows == nil {
		rows = [][]string{}
	}
	return FileResponse{
		ID:           v.ID,
		Name:         v.Name,
		Columns:      v.Columns,
		State:        v.State,
		Rows:         v.Rows,
		Cols:         v.Cols,
		Preview:      PreviewResponse{Header: header, Rows: rows},
		Chart:        v.Chart,
		ChartMessage: v.ChartMessage,
		OutputName:   v.OutputName,
	}
}

func toBatchResponse(files []core.FileView, failures []core.FileFailure) BatchResponse {
	resp := BatchResponse{
		Files:    make([]FileResponse, 0, len(files)),
		Failures: make([]FailureResponse, 0, len(failures)),
	}
	for _, f := range files {
		resp.Files = append(resp.Files, toFileResponse(f))
	}
	for _, f := range failures {
		msg := core.MapError(f.Err)
		resp.Failures = append(resp.Failures, FailureResponse{
			FileName: f.FileName,
			Message:  msg.Message,
			Action:   msg.Action,
			Code:     msg.Code,
		})
	}
	return resp
}

// decodeJSON reads a small JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if isMaxBytes(err) {
			return err
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, failures, err := s.service.Files(mw.SessionID(r.Context()))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(files, failures))
}

func (s *Server) handleUploadAPI(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	batch, err := s.service.Upload(r.Context(), mw.SessionID(r.Context()), files)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(batch.Files, batch.Failures))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	s.respondFile(w, r)
}

// respondFile writes the current view of the routed file.
func (s *Server) respondFile(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.File(mw.SessionID(r.Context()), chi.URLParam(r, "fileID"))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(view))
}

// apiFileAction runs a per-file operation and responds with the new view.
func (s *Server) apiFileAction(w http.ResponseWriter, r *http.Request, op func(sessionID, fileID string) error) {
	if err := op(mw.SessionID(r.Context()), chi.URLParam(r, "fileID")); err != nil {
		respondError(w, r, err, 0)
		return
	}
	s.respondFile(w, r)
}

func (s *Server) handleDedupeAPI(w http.ResponseWriter, r *http.Request) {
	s.apiFileAction(w, r, s.service.Deduplicate)
}

func (s *Server) handleFillAPI(w http.ResponseWriter, r *http.Request) {
	s.apiFileAction(w, r, s.service.FillMissing)
}

func (s *Server) handleColumnsAPI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Columns []string `json:"columns"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, 0)
		return
	}
	if req.Columns == nil {
		respondError(w, r, fmt.Errorf("%w: columns is required", core.ErrInvalidRequest), 0)
		return
	}
	s.apiFileAction(w, r, func(sid, fid string) error {
		return s.service.SelectColumns(sid, fid, req.Columns)
	})
}

func (s *Server) handleChartAPI(w http.ResponseWriter, r *http.Request) {
	summary, ok, err := s.service.Chart(mw.SessionID(r.Context()), chi.URLParam(r, "fileID"))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, ChartResponse{Empty: true, Message: table.NoNumericDataMessage})
		return
	}
	writeJSON(w, http.StatusOK, ChartResponse{ChartSummary: &summary})
}

func (s *Server) handleSetChartAPI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, 0)
		return
	}
	if req.Enabled == nil {
		respondError(w, r, fmt.Errorf("%w: enabled is required", core.ErrInvalidRequest), 0)
		return
	}
	s.apiFileAction(w, r, func(sid, fid string) error {
		return s.service.SetChart(sid, fid, *req.Enabled)
	})
}

func (s *Server) handleFormatAPI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string `json:"format"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, 0)
		return
	}
	format, err := core.ParseFormat(req.Format)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	s.apiFileAction(w, r, func(sid, fid string) error {
		return s.service.SetFormat(sid, fid, format)
	})
}
