package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gdg-garage/ecsnova-registration-api/internal/metrics"
	"github.com/gdg-garage/ecsnova-registration-api/internal/models"
	"github.com/gdg-garage/ecsnova-registration-api/internal/notifier"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadClaimer links a stored payment proof to the registration that
// references it, inside the registration's transaction.
type UploadClaimer interface {
	Claim(tx *gorm.DB, paymentProofURL string, registrationID uuid.UUID) error
}

// Submission is the participant-supplied part of a registration.
type Submission struct {
	Name            string
	CollegeName     string
	Email           string
	CourseOfStudy   string
	WhatsappNumber  string
	SelectedEvents  []string
	TransactionID   string
	PaymentProofURL string
}

func (s Submission) complete() bool {
	for _, v := range []string{
		s.Name,
		s.CollegeName,
		s.Email,
		s.CourseOfStudy,
		s.WhatsappNumber,
		s.TransactionID,
		s.PaymentProofURL,
	} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return s.SelectedEvents != nil
}

type Service struct {
	db       *gorm.DB
	uploads  UploadClaimer
	notifier notifier.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService wires the registration service. uploads and n may be nil.
func NewService(db *gorm.DB, uploads UploadClaimer, n notifier.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, uploads: uploads, notifier: n, metrics: m, logger: logger}
}

// Register validates and stores a submission.
//
// The lookup for an existing email or transaction ID only short-circuits the
// common case. Two concurrent submissions can both pass it; the unique
// indexes then reject the second insert and that fault is reported as the
// same DuplicateError.
func (s *Service) Register(ctx context.Context, sub Submission) (*models.Registration, error) {
	if !sub.complete() {
		s.metrics.RegistrationRejected(metrics.ReasonMissingFields)
		return nil, ErrMissingFields
	}

	reg := &models.Registration{
		Name:            sub.Name,
		CollegeName:     sub.CollegeName,
		Email:           sub.Email,
		CourseOfStudy:   sub.CourseOfStudy,
		WhatsappNumber:  sub.WhatsappNumber,
		SelectedEvents:  sub.SelectedEvents,
		TransactionID:   sub.TransactionID,
		PaymentProofURL: sub.PaymentProofURL,
	}
	reg.Normalize()

	var existing models.Registration
	res := s.db.WithContext(ctx).
		Where("email = ? OR transaction_id = ?", reg.Email, reg.TransactionID).
		Limit(1).
		Find(&existing)
	if res.Error != nil {
		return nil, fmt.Errorf("check existing registration: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		field := "transaction_id"
		if existing.Email == reg.Email {
			field = "email"
		}
		return nil, s.duplicate(field)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reg).Error; err != nil {
			return err
		}
		if s.uploads != nil {
			return s.uploads.Claim(tx, reg.PaymentProofURL, reg.ID)
		}
		return nil
	})
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			s.metrics.RegistrationRejected(metrics.ReasonInvalid)
			return nil, verr
		}
		if field, ok := duplicateKeyField(err); ok {
			return nil, s.duplicate(field)
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	s.metrics.RegistrationCreated()
	s.logger.InfoContext(ctx, "registration created", "id", reg.ID, "email", reg.Email)

	if s.notifier != nil {
		if err := s.notifier.NotifyRegistration(ctx, *reg); err != nil {
			s.logger.WarnContext(ctx, "failed to send registration notification", "id", reg.ID, "error", err)
		}
	}

	return reg, nil
}

func (s *Service) duplicate(field string) *DuplicateError {
	switch field {
	case "email":
		s.metrics.RegistrationRejected(metrics.ReasonDuplicateEmail)
	case "transaction_id":
		s.metrics.RegistrationRejected(metrics.ReasonDuplicateTransactionID)
	}
	return &DuplicateError{Field: field}
}

// List returns every registration without its payment proof URL. Ordering is
// left to the caller.
func (s *Service) List(ctx context.Context) ([]models.RegistrationSummary, error) {
	summaries := []models.RegistrationSummary{}
	if err := s.db.WithContext(ctx).Model(&models.Registration{}).Find(&summaries).Error; err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return summaries, nil
}

// Get returns the full registration, payment proof URL included.
func (s *Service) Get(ctx context.Context, rawID string) (*models.Registration, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidID
	}

	var reg models.Registration
	if err := s.db.WithContext(ctx).First(&reg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration %s: %w", id, err)
	}
	return &reg, nil
}
