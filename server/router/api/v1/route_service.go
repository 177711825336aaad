package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/angelo/ai/routing"
)

type RouteRequest struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

type RouteResponse struct {
	Intent routing.WireIntent `json:"intent"`
	Rule   string             `json:"rule"`
}

// RouteText runs only the deterministic router. No session state is touched.
func (s *APIV1Service) RouteText(c echo.Context) error {
	var req RouteRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return jsonError(c, http.StatusBadRequest, "text is required")
	}
	intent, rule := s.Assistant.Router.Match(req.Text, req.Context)
	s.Assistant.Metrics.RecordRouteRule(rule)
	return c.JSON(http.StatusOK, RouteResponse{Intent: routing.ToWire(intent), Rule: rule})
}
