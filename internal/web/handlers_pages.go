package web

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datasweeper/internal/core"
	mw "github.com/JonMunkholm/datasweeper/internal/web/middleware"
	"github.com/JonMunkholm/datasweeper/internal/web/templates"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// handleIndex renders the upload form and every file of the session.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	files, failures, err := s.service.Files(mw.SessionID(r.Context()))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.Index(templates.IndexData{
		Files:         files,
		Failures:      failures,
		MaxFiles:      s.cfg.Upload.MaxFiles,
		MaxUploadSize: s.cfg.Upload.MaxFileSize,
	}).Render(r.Context(), w)
}

// handleUploadForm loads the posted files and redirects back to the page.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if _, err := s.service.Upload(r.Context(), mw.SessionID(r.Context()), files); err != nil {
		respondError(w, r, err, 0)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// readUploads reads every "files" part of a multipart request. Oversized files
// and files with an unsupported extension are passed on without content so
// they are reported like any other rejected file.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]core.UploadedFile, error) {
	maxFile := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*int64(max(s.cfg.Upload.MaxFiles, 1)))

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isMaxBytes(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, core.ErrNoFiles
	}
	if len(headers) > s.cfg.Upload.MaxFiles {
		return nil, fmt.Errorf("%w: %d files, limit %d", core.ErrTooManyFiles, len(headers), s.cfg.Upload.MaxFiles)
	}

	files := make([]core.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxFile || !core.IsSupportedName(fh.Filename) {
			files = append(files, core.UploadedFile{Name: fh.Filename, Size: fh.Size})
			continue
		}
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, core.UploadedFile{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func isMaxBytes(err error) bool {
	return statusFor(err) == http.StatusRequestEntityTooLarge
}

// fileAction runs a per-file operation from a form post and redirects to
// the file's card.
func (s *Server) fileAction(w http.ResponseWriter, r *http.Request, op func(sessionID, fileID string) error) {
	fileID := chi.URLParam(r, "fileID")
	if err := op(mw.SessionID(r.Context()), fileID); err != nil {
		respondError(w, r, err, 0)
		return
	}
	http.Redirect(w, r, "/#file-"+fileID, http.StatusSeeOther)
}

func (s *Server) handleDedupeForm(w http.ResponseWriter, r *http.Request) {
	s.fileAction(w, r, s.service.Deduplicate)
}

func (s *Server) handleFillForm(w http.ResponseWriter, r *http.Request) {
	s.fileAction(w, r, s.service.FillMissing)
}

// handleColumnsForm applies the checked columns. Unchecking every box
// selects no columns.
func (s *Server) handleColumnsForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err), 0)
		return
	}
	columns := r.PostForm["columns"]
	if columns == nil {
		columns = []string{}
	}
	s.fileAction(w, r, func(sid, fid string) error {
		return s.service.SelectColumns(sid, fid, columns)
	})
}

func (s *Server) handleChartForm(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.FormValue("enabled"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: enabled: %v", core.ErrInvalidRequest, err), 0)
		return
	}
	s.fileAction(w, r, func(sid, fid string) error {
		return s.service.SetChart(sid, fid, enabled)
	})
}

func (s *Server) handleFormatForm(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseFormat(r.FormValue("format"))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	s.fileAction(w, r, func(sid, fid string) error {
		return s.service.SetFormat(sid, fid, format)
	})
}

// handleDownload converts the current table. ?format= overrides the
// file's chosen format for this download only.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var override *core.Format
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := core.ParseFormat(v)
		if err != nil {
			respondError(w, r, err, 0)
			return
		}
		override = &f
	}

	result, err := s.service.Convert(r.Context(), mw.SessionID(r.Context()), chi.URLParam(r, "fileID"), override)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", result.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Write(result.Data)
}
