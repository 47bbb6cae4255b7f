// Package uploads stores payment proof files on local disk and tracks them so
// that files never claimed by a registration can be swept.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdg-garage/ecsnova-registration-api/internal/metrics"
	"github.com/gdg-garage/ecsnova-registration-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxNameAttempts = 3

var (
	ErrNoFile       = errors.New("No file uploaded")
	ErrInvalidName  = errors.New("invalid upload name")
	ErrNameConflict = errors.New("could not allocate a unique upload name")
)

type Store struct {
	dir     string
	db      *gorm.DB
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates dir if it does not exist yet.
func NewStore(dir string, db *gorm.DB, m *metrics.Metrics, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, db: db, metrics: m, logger: logger, now: time.Now}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// StoredName builds the on-disk name for an uploaded file:
// <unix millis>-<random>-<base of original name>.
func StoredName(now time.Time, original string) string {
	return fmt.Sprintf("%d-%d-%s", now.UnixMilli(), rand.Int64N(1e9), cleanName(original))
}

func cleanName(original string) string {
	name := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

// Save writes r to a freshly named file and records it. A partially written
// file is removed when the copy fails.
func (s *Store) Save(ctx context.Context, original, contentType string, r io.Reader) (*models.Upload, error) {
	var (
		f    *os.File
		name string
		err  error
	)
	for range maxNameAttempts {
		name = StoredName(s.now(), original)
		f, err = os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create upload file: %w", err)
		}
	}
	if f == nil {
		return nil, ErrNameConflict
	}

	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.remove(name)
		return nil, fmt.Errorf("write upload file: %w", err)
	}

	upload := &models.Upload{
		Filename:     name,
		OriginalName: original,
		Size:         size,
		ContentType:  contentType,
	}
	if err := s.db.WithContext(ctx).Create(upload).Error; err != nil {
		s.remove(name)
		return nil, fmt.Errorf("record upload: %w", err)
	}

	s.metrics.UploadStored()
	s.logger.Info("upload stored", "filename", name, "size", size)
	return upload, nil
}

// Path resolves a stored name to its location on disk. Names carrying any
// path element are rejected.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// Claim links the upload referenced by paymentProofURL to a registration.
// URLs that do not point at a tracked upload are ignored.
func (s *Store) Claim(tx *gorm.DB, paymentProofURL string, registrationID uuid.UUID) error {
	name := NameFromURL(paymentProofURL)
	if name == "" {
		return nil
	}
	err := tx.Model(&models.Upload{}).
		Where("filename = ? AND registration_id IS NULL", name).
		Update("registration_id", registrationID).Error
	if err != nil {
		return fmt.Errorf("claim upload %s: %w", name, err)
	}
	return nil
}

// NameFromURL returns the stored filename referenced by an upload URL, or an
// empty string when the URL does not point under /uploads/.
func NameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	dir, name := path.Split(u.Path)
	if !strings.HasSuffix(dir, "/uploads/") || name == "" {
		return ""
	}
	return name
}

// SweepOrphans deletes uploads that were never claimed and are older than
// retention. It returns how many were removed.
func (s *Store) SweepOrphans(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)

	var orphans []models.Upload
	err := s.db.WithContext(ctx).
		Where("registration_id IS NULL AND created_at < ?", cutoff).
		Find(&orphans).Error
	if err != nil {
		return 0, fmt.Errorf("find orphan uploads: %w", err)
	}

	removed := 0
	for _, u := range orphans {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		// The row goes first; a registration may have claimed it since it was listed.
		res := s.db.WithContext(ctx).
			Where("id = ? AND registration_id IS NULL", u.ID).
			Delete(&models.Upload{})
		if res.Error != nil {
			return removed, fmt.Errorf("delete upload record %d: %w", u.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		s.remove(u.Filename)
		removed++
	}

	s.metrics.UploadsSwept(removed)
	if removed > 0 {
		s.logger.Info("swept orphan uploads", "count", removed)
	}
	return removed, nil
}

// RunSweeper calls SweepOrphans every interval until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval, retention time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepOrphans(ctx, retention); err != nil && ctx.Err() == nil {
				s.logger.Error("upload sweep failed", "error", err)
			}
		}
	}
}

func (s *Store) remove(name string) {
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove upload file", "filename", name, "error", err)
	}
}
