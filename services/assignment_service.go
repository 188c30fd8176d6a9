package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/models"
)

// AssignmentService answers one question: may this professional take this
// service, and at what effective price/duration. It is re-run at admin
// assignment time even when the booking already carries a price snapshot,
// because eligibility can change between creation and assignment.
type AssignmentService struct {
	store Store
}

func NewAssignmentService(store Store) *AssignmentService {
	return &AssignmentService{store: store}
}

// AssignmentResult is the effective offering for an eligible professional.
type AssignmentResult struct {
	OfferingID      *uuid.UUID
	PriceCents      int64
	DurationMinutes int
}

// Validate checks eligibility and resolves the effective price and
// duration: the offering's overrides when set, the service's base values
// otherwise. Returns ErrIneligibleProfessional when any gate fails.
func (s *AssignmentService) Validate(ctx context.Context, professionalID, serviceID uuid.UUID) (*AssignmentResult, error) {
	user, err := s.store.Profiles().GetUser(ctx, professionalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no such professional", ErrIneligibleProfessional)
		}
		return nil, err
	}
	if user.Role != models.RoleProfessional || !user.IsActive {
		return nil, fmt.Errorf("%w: account is not an active professional", ErrIneligibleProfessional)
	}

	profile, err := s.store.Profiles().GetProfessional(ctx, professionalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no professional profile", ErrIneligibleProfessional)
		}
		return nil, err
	}
	if profile.Status != "active" || !profile.IsVerified {
		return nil, fmt.Errorf("%w: profile not approved and verified", ErrIneligibleProfessional)
	}

	service, err := s.store.Catalog().GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown service", ErrValidation)
		}
		return nil, err
	}
	if !service.IsActive {
		return nil, fmt.Errorf("%w: service is not bookable", ErrValidation)
	}

	offering, err := s.store.Catalog().GetOffering(ctx, professionalID, serviceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: professional does not offer this service", ErrIneligibleProfessional)
		}
		return nil, err
	}
	if !offering.IsAvailable {
		return nil, fmt.Errorf("%w: offering is currently unavailable", ErrIneligibleProfessional)
	}

	result := &AssignmentResult{
		OfferingID:      &offering.ID,
		PriceCents:      service.BasePriceCents,
		DurationMinutes: service.BaseDurationMinutes,
	}
	if offering.PriceCents != nil {
		result.PriceCents = *offering.PriceCents
	}
	if offering.DurationMinutes != nil {
		result.DurationMinutes = *offering.DurationMinutes
	}
	return result, nil
}
