package handler

import (
	"github.com/dictatemed/dictatemed/internal/server"
	"github.com/dictatemed/dictatemed/internal/service"
)

// Handlers groups every HTTP handler so the router receives one object.
type Handlers struct {
	Health     *HealthHandler
	OpenAPI    *OpenAPIHandler
	Letters    *LettersHandler
	Recordings *RecordingsHandler
	Referrals  *ReferralsHandler
	Style      *StyleHandler
	Practices  *PracticesHandler
	Settings   *SettingsHandler
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	base := NewHandler(s, services.Auth)

	return &Handlers{
		Health:     NewHealthHandler(s),
		OpenAPI:    NewOpenAPIHandler(s),
		Letters:    NewLettersHandler(base, services.Letters),
		Recordings: NewRecordingsHandler(base, services.Recordings),
		Referrals:  NewReferralsHandler(base, services.Referrals),
		Style:      NewStyleHandler(base, services.Style),
		Practices:  NewPracticesHandler(base, services.Practices),
		Settings:   NewSettingsHandler(base, services.Users),
	}
}
