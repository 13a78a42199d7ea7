package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/config"
	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/table"
	"github.com/google/uuid"
)

// Service holds browser sessions and runs the pipeline on their files.
// Every session is independent; nothing is shared across files.
type Service struct {
	cfg     *config.Config
	limiter *UploadLimiter
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// session is one browser session's uploaded files and their states.
type session struct {
	mu       sync.Mutex
	id       string
	files    []*sessionFile
	failures []FileFailure
	lastSeen time.Time
}

type sessionFile struct {
	id       string
	name     string
	original *table.Table
	state    CleaningState
}

// FileFailure is a file from the last upload that could not be loaded.
type FileFailure struct {
	FileName string
	Err      error
}

// ColumnInfo describes one column of the original file.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Selected bool   `json:"selected"`
}

// FileView is everything a front end needs to show one file.
type FileView struct {
	ID           string
	Name         string
	Columns      []ColumnInfo
	State        CleaningState
	Rows         int // rows of the evaluated table
	Cols         int // columns of the evaluated table
	Preview      *table.Table
	Chart        *table.ChartSummary
	ChartMessage string
	OutputName   string
}

// BatchResult reports a whole upload: loaded files and skipped ones.
type BatchResult struct {
	Files    []FileView
	Failures []FileFailure
}

// NewService creates a Service configured from cfg.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:      cfg,
		limiter:  NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// EnsureSession returns id when it names a live session, otherwise it
// creates a new session and returns its ID.
func (s *Service) EnsureSession(id string) string {
	if id != "" {
		if _, err := s.session(id); err == nil {
			return id
		}
	}

	id = uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	if max := s.cfg.Session.MaxSessions; max > 0 && len(s.sessions) >= max {
		s.evictOldestLocked()
	}
	s.sessions[id] = &session{id: id, lastSeen: s.now()}
	return id
}

// session looks up a live session and marks it as seen.
func (s *Service) session(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess.mu.Lock()
	sess.lastSeen = s.now()
	sess.mu.Unlock()
	return sess, nil
}

// evictOldestLocked drops the least recently seen session. s.mu must be held.
func (s *Service) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		sess.mu.Lock()
		seen := sess.lastSeen
		sess.mu.Unlock()
		if oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

// Upload loads a batch of files into a session, replacing the files it
// held before and resetting every cleaning state. Files that fail to load
// are reported in the result; the rest of the batch is unaffected.
func (s *Service) Upload(ctx context.Context, sessionID string, files []UploadedFile) (*BatchResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if max := s.cfg.Upload.MaxFiles; max > 0 && len(files) > max {
		return nil, fmt.Errorf("%w: %d files, limit is %d", ErrTooManyFiles, len(files), max)
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	logger := logging.WithFields(ctx, "files", len(files))
	start := s.now()

	results := ProcessBatch(ctx, files, PipelineOptions{MaxFileSize: s.cfg.Upload.MaxFileSize})

	loaded := make([]*sessionFile, 0, len(results))
	var failures []FileFailure
	for _, res := range results {
		if res.Err != nil {
			failures = append(failures, FileFailure{FileName: res.File.Name, Err: res.Err})
			continue
		}
		loaded = append(loaded, &sessionFile{
			id:       uuid.New().String(),
			name:     res.File.Name,
			original: res.Original,
			state:    res.State,
		})
	}

	// Views are built before the files are published; afterwards other
	// requests may change their states under sess.mu.
	batch := &BatchResult{Failures: failures}
	for _, f := range loaded {
		view, err := s.view(f)
		if err != nil {
			return nil, err
		}
		batch.Files = append(batch.Files, view)
	}

	sess.mu.Lock()
	sess.files = loaded
	sess.failures = failures
	sess.mu.Unlock()

	logger.Info("upload processed",
		"loaded", len(loaded),
		"failed", len(failures),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return batch, nil
}

// Files returns views of every file in a session plus the failures of the
// last upload.
func (s *Service) Files(sessionID string) ([]FileView, []FileFailure, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}

	sess.mu.Lock()
	files := append([]*sessionFile(nil), sess.files...)
	failures := append([]FileFailure(nil), sess.failures...)
	sess.mu.Unlock()

	views := make([]FileView, 0, len(files))
	for _, f := range files {
		view, err := s.viewLocked(sess, f)
		if err != nil {
			return nil, nil, err
		}
		views = append(views, view)
	}
	return views, failures, nil
}

// File returns the view of one file.
func (s *Service) File(sessionID, fileID string) (FileView, error) {
	var view FileView
	err := s.withFile(sessionID, fileID, func(f *sessionFile) error {
		var err error
		view, err = s.view(f)
		return err
	})
	return view, err
}

// Deduplicate turns on duplicate removal for a file.
func (s *Service) Deduplicate(sessionID, fileID string) error {
	return s.withFile(sessionID, fileID, func(f *sessionFile) error {
		f.state.Deduplicated = true
		return nil
	})
}

// FillMissing turns on mean filling of missing numeric values for a file.
func (s *Service) FillMissing(sessionID, fileID string) error {
	return s.withFile(sessionID, fileID, func(f *sessionFile) error {
		f.state.FilledMissing = true
		return nil
	})
}

// SelectColumns sets the ordered column selection of a file. Every name must
// be a column of the file; an empty selection is allowed.
func (s *Service) SelectColumns(sessionID, fileID string, columns []string) error {
	return s.withFile(sessionID, fileID, func(f *sessionFile) error {
		if _, err := table.Select(f.original, columns); err != nil {
			return err
		}
		f.state.Selected = append([]string{}, columns...)
		return nil
	})
}

// SetChart turns the chart of a file on or off.
func (s *Service) SetChart(sessionID, fileID string, enabled bool) error {
	return s.withFile(sessionID, fileID, func(f *sessionFile) error {
		f.state.ChartEnabled = enabled
		return nil
	})
}

// SetFormat chooses the download format of a file.
func (s *Service) SetFormat(sessionID, fileID string, format Format) error {
	return s.withFile(sessionID, fileID, func(f *sessionFile) error {
		if format != FormatCSV && format != FormatExcel {
			return ErrInvalidFormat
		}
		f.state.Format = format
		return nil
	})
}

// Chart returns the chart summary of a file's current table. ok is false
// when there is no numeric column to plot.
func (s *Service) Chart(sessionID, fileID string) (summary table.ChartSummary, ok bool, err error) {
	err = s.withFile(sessionID, fileID, func(f *sessionFile) error {
		current, err := Evaluate(f.original, f.state)
		if err != nil {
			return err
		}
		summary, ok = table.Chart(current)
		return nil
	})
	return summary, ok, err
}

// Convert serializes a file's current table. A nil format uses the file's
// chosen format.
func (s *Service) Convert(ctx context.Context, sessionID, fileID string, format *Format) (*ConversionResult, error) {
	var result *ConversionResult
	err := s.withFile(sessionID, fileID, func(f *sessionFile) error {
		current, err := Evaluate(f.original, f.state)
		if err != nil {
			return err
		}
		out := f.state.Format
		if format != nil {
			out = *format
		}
		result, err = Convert(current, out, f.name)
		if err != nil {
			logFileError(logging.FromContext(ctx), f.name, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("file converted",
		"file", result.FileName,
		"mime", result.MIMEType,
		"bytes", len(result.Data),
	)
	return result, nil
}

// withFile runs fn on a file while holding its session lock.
func (s *Service) withFile(sessionID, fileID string, fn func(*sessionFile) error) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	for _, f := range sess.files {
		if f.id == fileID {
			return fn(f)
		}
	}
	return ErrFileNotFound
}

// viewLocked builds a file view while holding the session lock.
func (s *Service) viewLocked(sess *session, f *sessionFile) (FileView, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.view(f)
}

// view evaluates the pipeline for f and packs the result for display.
func (s *Service) view(f *sessionFile) (FileView, error) {
	current, err := Evaluate(f.original, f.state)
	if err != nil {
		return FileView{}, err
	}

	selected := make(map[string]bool, len(f.state.Selected))
	for _, name := range f.state.Selected {
		selected[name] = true
	}
	cols := make([]ColumnInfo, 0, f.original.NumCols())
	for _, c := range f.original.Columns() {
		cols = append(cols, ColumnInfo{Name: c.Name, Type: c.Type.String(), Selected: selected[c.Name]})
	}

	view := FileView{
		ID:         f.id,
		Name:       f.name,
		Columns:    cols,
		State:      f.state,
		Rows:       current.NumRows(),
		Cols:       current.NumCols(),
		Preview:    current.Head(s.cfg.Preview.Rows),
		OutputName: OutputName(f.name, f.state.Format),
	}
	view.State.Selected = append([]string{}, f.state.Selected...)

	if f.state.ChartEnabled {
		if summary, ok := table.Chart(current.Head(s.cfg.Preview.ChartMaxPoints)); ok {
			view.Chart = &summary
		} else {
			view.ChartMessage = table.NoNumericDataMessage
		}
	}
	return view, nil
}

// ServiceStatus is a snapshot for monitoring.
type ServiceStatus struct {
	Sessions int                 `json:"sessions"`
	Upload   UploadLimiterStatus `json:"upload"`
}

// Status returns session and upload limiter counts.
func (s *Service) Status() ServiceStatus {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	return ServiceStatus{Sessions: n, Upload: s.limiter.Status()}
}

// UploadLimiterStatus returns the current upload limiter state.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight uploads finish or ctx is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
