package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/dictatemed/dictatemed/internal/errs"
)

// emptyRequest is the payload for endpoints that take no input beyond the
// authenticated user.
type emptyRequest struct{}

func (r *emptyRequest) Validate() error {
	return nil
}

// parseUUID converts a path parameter the validator already accepted. A
// failure here means the route and the validation tag disagree.
func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errs.NewBadRequestError("Invalid identifier", false, nil, nil, nil)
	}
	return id, nil
}

// parseOptionalUUID converts an optional identifier field; nil stays nil.
func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := parseUUID(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseOptionalDate converts an optional YYYY-MM-DD field; nil stays nil.
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, errs.NewBadRequestError("Invalid date, expected YYYY-MM-DD", true, nil, nil, nil)
	}
	return &t, nil
}
