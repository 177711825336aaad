// Package v1 serves the assistant JSON API under /api/v1.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/angelo/ai"
	"github.com/hrygo/angelo/internal/profile"
	"github.com/hrygo/angelo/store"
)

// maxAudioBytes bounds one uploaded utterance.
const maxAudioBytes = 10 << 20

type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Assistant *ai.Assistant
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, assistant *ai.Assistant) *APIV1Service {
	return &APIV1Service{
		Profile:   profile,
		Store:     store,
		Assistant: assistant,
	}
}

// RegisterRoutes mounts every /api/v1 endpoint.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	corsHandler := middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"*"},
	})
	g := e.Group("/api/v1", corsHandler)

	g.POST("/sessions", s.CreateSession)
	g.GET("/sessions/:id", s.GetSession)
	g.DELETE("/sessions/:id", s.DeleteSession)
	g.POST("/sessions/:id/turns", s.CreateTurn)
	g.POST("/sessions/:id/select", s.SelectMember)
	g.POST("/sessions/:id/speech", s.RecognizeSpeech)
	g.POST("/sessions/:id/speak", s.SpeakReply)
	g.GET("/sessions/:id/events", s.StreamEvents)

	g.POST("/route", s.RouteText)

	g.GET("/members", s.ListMembers)
	g.GET("/members/:id", s.GetMember)

	g.GET("/preferences/:client", s.ListPreferences)
	g.GET("/preferences/:client/:key", s.GetPreference)
	g.PUT("/preferences/:client/:key", s.SetPreference)
	g.DELETE("/preferences/:client/:key", s.DeletePreference)
}
