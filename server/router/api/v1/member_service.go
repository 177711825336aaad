package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/angelo/ai/conversation"
	"github.com/hrygo/angelo/store"
)

type ListMembersResponse struct {
	Members []*store.FamilyMember `json:"members"`
}

func (s *APIV1Service) ListMembers(c echo.Context) error {
	return c.JSON(http.StatusOK, ListMembersResponse{Members: s.Store.Directory().ListMembers()})
}

func (s *APIV1Service) GetMember(c echo.Context) error {
	member, ok := s.Store.Directory().GetMember(c.Param("id"))
	if !ok {
		return errorFor(c, conversation.ErrUnknownMember)
	}
	return c.JSON(http.StatusOK, member)
}
