package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/angelo/store"
)

type SetPreferenceRequest struct {
	Value string `json:"value"`
}

type ListPreferencesResponse struct {
	Preferences []*store.Preference `json:"preferences"`
}

func (s *APIV1Service) ListPreferences(c echo.Context) error {
	prefs, err := s.Store.ListPreferences(c.Request().Context(), c.Param("client"))
	if err != nil {
		return errorFor(c, err)
	}
	if prefs == nil {
		prefs = []*store.Preference{}
	}
	return c.JSON(http.StatusOK, ListPreferencesResponse{Preferences: prefs})
}

func (s *APIV1Service) GetPreference(c echo.Context) error {
	pref, err := s.Store.GetPreference(c.Request().Context(), c.Param("client"), store.PreferenceKey(c.Param("key")))
	if err != nil {
		return errorFor(c, err)
	}
	return c.JSON(http.StatusOK, pref)
}

func (s *APIV1Service) SetPreference(c echo.Context) error {
	var req SetPreferenceRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	pref, err := s.Store.SetPreference(c.Request().Context(), c.Param("client"), store.PreferenceKey(c.Param("key")), req.Value)
	if err != nil {
		return errorFor(c, err)
	}
	return c.JSON(http.StatusOK, pref)
}

func (s *APIV1Service) DeletePreference(c echo.Context) error {
	if err := s.Store.DeletePreference(c.Request().Context(), c.Param("client"), store.PreferenceKey(c.Param("key"))); err != nil {
		return errorFor(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
