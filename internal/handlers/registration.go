package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/ecsnova-registration-api/internal/models"
	"github.com/gdg-garage/ecsnova-registration-api/internal/registration"
	"github.com/google/uuid"
)

type RegistrationHandler struct {
	service *registration.Service
	logger  *slog.Logger
}

func NewRegistrationHandler(service *registration.Service, logger *slog.Logger) *RegistrationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationHandler{service: service, logger: logger}
}

// Fields are optional in the schema so that a missing field is answered with
// the single "All fields are required" message.
type RegistrationRequest struct {
	Body struct {
		_               struct{} `additionalProperties:"true"`
		Name            string   `json:"name,omitempty" doc:"Participant full name"`
		CollegeName     string   `json:"college_name,omitempty" doc:"College name"`
		Email           string   `json:"email,omitempty" doc:"Contact email, unique per registration"`
		CourseOfStudy   string   `json:"course_of_study,omitempty" doc:"Course of study"`
		WhatsappNumber  string   `json:"whatsapp_number,omitempty" doc:"10-digit WhatsApp number"`
		SelectedEvents  []string `json:"selected_events,omitempty" doc:"Events the participant registers for"`
		TransactionID   string   `json:"transaction_id,omitempty" doc:"Payment transaction ID, unique per registration"`
		PaymentProofURL string   `json:"payment_proof_url,omitempty" doc:"URL returned by /api/upload"`
	}
}

type RegistrationConfirmation struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

type RegistrationResponse struct {
	Body struct {
		Message      string                   `json:"message"`
		Registration RegistrationConfirmation `json:"registration"`
	}
}

func (h *RegistrationHandler) HandleRegister(ctx context.Context, input *RegistrationRequest) (*RegistrationResponse, error) {
	reg, err := h.service.Register(ctx, registration.Submission{
		Name:            input.Body.Name,
		CollegeName:     input.Body.CollegeName,
		Email:           input.Body.Email,
		CourseOfStudy:   input.Body.CourseOfStudy,
		WhatsappNumber:  input.Body.WhatsappNumber,
		SelectedEvents:  input.Body.SelectedEvents,
		TransactionID:   input.Body.TransactionID,
		PaymentProofURL: input.Body.PaymentProofURL,
	})
	if err != nil {
		var (
			dupErr   *registration.DuplicateError
			validErr *models.ValidationError
		)
		switch {
		case errors.Is(err, registration.ErrMissingFields):
			return nil, huma.Error400BadRequest(err.Error())
		case errors.As(err, &dupErr):
			return nil, huma.Error400BadRequest(dupErr.Error())
		case errors.As(err, &validErr):
			return nil, huma.Error400BadRequest(validErr.Error())
		}
		h.logger.ErrorContext(ctx, "registration failed", "error", err)
		return nil, huma.Error500InternalServerError("Registration failed")
	}

	res := &RegistrationResponse{}
	res.Body.Message = "Registration successful"
	res.Body.Registration = RegistrationConfirmation{
		ID:    reg.ID,
		Email: reg.Email,
		Name:  reg.Name,
	}
	return res, nil
}

type ListRegistrationsOutput struct {
	Body []models.RegistrationSummary
}

func (h *RegistrationHandler) HandleList(ctx context.Context, input *struct{}) (*ListRegistrationsOutput, error) {
	summaries, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing registrations failed", "error", err)
		return nil, huma.Error500InternalServerError("Failed to fetch registrations")
	}
	return &ListRegistrationsOutput{Body: summaries}, nil
}

type GetRegistrationInput struct {
	ID string `path:"id" doc:"Registration ID"`
}

type GetRegistrationOutput struct {
	Body models.Registration
}

func (h *RegistrationHandler) HandleGet(ctx context.Context, input *GetRegistrationInput) (*GetRegistrationOutput, error) {
	reg, err := h.service.Get(ctx, input.ID)
	switch {
	case errors.Is(err, registration.ErrInvalidID):
		return nil, huma.Error400BadRequest(err.Error())
	case errors.Is(err, registration.ErrNotFound):
		return nil, huma.Error404NotFound(err.Error())
	case err != nil:
		h.logger.ErrorContext(ctx, "fetching registration failed", "id", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("Failed to fetch registration")
	}
	return &GetRegistrationOutput{Body: *reg}, nil
}
