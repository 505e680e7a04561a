// Package session applies user interactions to stored session state and builds the page view.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/urlmatch/internal/extract"
	"github.com/hyperjump/urlmatch/internal/matcher"
	"github.com/hyperjump/urlmatch/internal/models"
	"github.com/hyperjump/urlmatch/internal/storage"
	"github.com/hyperjump/urlmatch/pkg/utils"
)

// Notices shown when there is nothing, or nothing useful, to match yet.
const (
	NoticeNoFile   = "Upload an Excel file to get started."
	NoticeNoTerms  = "Enter URLs to check."
	NoticeNoValues = "The selected column has no values."
)

// ErrNoFile is returned when an operation needs an uploaded table and there is none.
var ErrNoFile = errors.New("no file uploaded")

// Manager loads a session, applies one change, saves it, and derives the view.
type Manager struct {
	store        storage.Store
	extractor    *extract.Extractor
	previewLimit int
	logger       *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for upload and mutation events.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = utils.NopLogger(l) }
}

// WithPreviewLimit sets how many references the view lists.
func WithPreviewLimit(n int) ManagerOption {
	return func(m *Manager) { m.previewLimit = n }
}

// NewManager returns a Manager backed by store.
func NewManager(store storage.Store, extractor *extract.Extractor, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:        store,
		extractor:    extractor,
		previewLimit: 10,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewID returns a fresh session ID.
func NewID() string {
	return uuid.NewString()
}

// Get returns the session with the given ID, or a new one with a single empty
// slot if the ID is unknown. New sessions are not saved until first changed.
func (m *Manager) Get(ctx context.Context, id string) (*models.Session, error) {
	s, err := m.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return models.NewSession(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

// ExpireSessions deletes sessions not saved within ttl.
func (m *Manager) ExpireSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := m.store.DeleteOlderThan(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	if n > 0 {
		m.logger.Info("expired sessions", zap.Int64("count", n), zap.Duration("ttl", ttl))
	}
	return n, nil
}

// RunExpiry calls ExpireSessions every interval until ctx is done. A
// non-positive ttl or interval disables expiry and returns immediately.
func (m *Manager) RunExpiry(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.ExpireSessions(ctx, ttl); err != nil && ctx.Err() == nil {
				m.logger.Warn("session expiry failed", zap.Error(err))
			}
		}
	}
}

func (m *Manager) update(ctx context.Context, id string, fn func(*models.Session) error) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Upload parses content as the session's table and selects its first column.
// When parsing fails the previous table is dropped, the error text is kept
// for display, and the parse error is returned.
func (m *Manager) Upload(ctx context.Context, id, fileName string, content []byte) error {
	var uploadErr error
	err := m.update(ctx, id, func(s *models.Session) error {
		s.ClearFile()
		s.Error = ""
		table, err := m.extractor.ExtractBytes(content, strings.ToLower(filepath.Ext(fileName)))
		if err != nil {
			s.Error = err.Error()
			uploadErr = err
			return nil
		}
		column, err := extract.SelectColumn(table, "")
		if err != nil {
			s.Error = err.Error()
			uploadErr = err
			return nil
		}
		s.FileName = fileName
		s.Table = table
		s.Column = column
		return nil
	})
	if err != nil {
		return err
	}
	if uploadErr != nil {
		m.logger.Debug("upload rejected", zap.String("session", id), zap.String("file", fileName), zap.Error(uploadErr))
		return uploadErr
	}
	m.logger.Debug("upload accepted", zap.String("session", id), zap.String("file", fileName), zap.Int("bytes", len(content)))
	return nil
}

// SelectColumn switches the column the references are read from.
func (m *Manager) SelectColumn(ctx context.Context, id, column string) error {
	return m.update(ctx, id, func(s *models.Session) error {
		if s.Table == nil {
			return ErrNoFile
		}
		name, err := extract.SelectColumn(s.Table, column)
		if err != nil {
			return err
		}
		s.Column = name
		return nil
	})
}

// AddTerm appends an empty term slot.
func (m *Manager) AddTerm(ctx context.Context, id string) error {
	return m.update(ctx, id, func(s *models.Session) error {
		s.AddTerm()
		return nil
	})
}

// RemoveTerm deletes the term slot at index.
func (m *Manager) RemoveTerm(ctx context.Context, id string, index int) error {
	return m.update(ctx, id, func(s *models.Session) error {
		return s.RemoveTerm(index)
	})
}

// SetTerm replaces the text of the term slot at index.
func (m *Manager) SetTerm(ctx context.Context, id string, index int, value string) error {
	return m.update(ctx, id, func(s *models.Session) error {
		return s.SetTerm(index, value)
	})
}

// SetTerms replaces every term slot.
func (m *Manager) SetTerms(ctx context.Context, id string, values []string) error {
	return m.update(ctx, id, func(s *models.Session) error {
		s.SetTerms(values)
		return nil
	})
}

// Reset forgets the session entirely.
func (m *Manager) Reset(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// View loads the session and derives what the page shows.
func (m *Manager) View(ctx context.Context, id string) (*models.View, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildView(s, m.previewLimit), nil
}

// BuildView derives the page model from s. Matching runs only when a file is
// loaded and at least one term is non-empty; it runs even if the selected
// column holds no values, in which case every term is unmatched and the view
// carries NoticeNoValues.
func BuildView(s *models.Session, previewLimit int) *models.View {
	v := &models.View{
		SessionID:      s.ID,
		Columns:        []string{},
		Preview:        []string{},
		Terms:          append([]string(nil), s.Terms...),
		ValidTermCount: len(matcher.ValidTerms(s.Terms)),
		Error:          s.Error,
	}
	if s.Table == nil {
		v.Notice = NoticeNoFile
		return v
	}
	v.FileName = s.FileName
	v.Columns = append(v.Columns, s.Table.Columns...)
	v.Column = s.Column

	refs, err := extract.ReferenceSet(s.Table, s.Column)
	if err != nil {
		v.Error = err.Error()
		return v
	}
	v.ReferenceCount = len(refs)
	n := max(0, min(len(refs), previewLimit))
	v.Preview = append(v.Preview, refs[:n]...)
	v.PreviewMore = len(refs) - n
	if len(refs) == 0 {
		v.Notice = NoticeNoValues
	}

	if v.ValidTermCount == 0 {
		if v.Notice == "" {
			v.Notice = NoticeNoTerms
		}
		return v
	}
	v.Evaluation = matcher.Evaluate(s.Terms, refs)
	return v
}
