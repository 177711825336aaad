package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/angelo/ai/routing"
)

// EffectKind is a side effect requested from the host application.
type EffectKind string

const (
	EffectNavigate EffectKind = "navigate"
	EffectGoBack   EffectKind = "go_back"
	EffectScroll   EffectKind = "scroll"
	EffectTheme    EffectKind = "theme"
	EffectSelect   EffectKind = "select"
)

// Effect is a host-side action. Navigation effects carry the delay the host
// waits before changing route, so the reply is visible first.
type Effect struct {
	Kind      EffectKind        `json:"kind"`
	Route     string            `json:"route,omitempty"`
	DelayMs   int64             `json:"delay_ms,omitempty"`
	Direction routing.Direction `json:"direction,omitempty"`
	Theme     routing.Theme     `json:"theme,omitempty"`
	MemberID  string            `json:"member_id,omitempty"`
}

// EffectHandler applies effects on the host platform.
type EffectHandler interface {
	Apply(ctx context.Context, effect Effect) error
}

// EffectHandlerFunc adapts a function to EffectHandler.
type EffectHandlerFunc func(ctx context.Context, effect Effect) error

func (f EffectHandlerFunc) Apply(ctx context.Context, effect Effect) error {
	return f(ctx, effect)
}

// LogEffectHandler only logs, for hosts with no equivalent action.
type LogEffectHandler struct {
	Channel string
}

func (h LogEffectHandler) Apply(_ context.Context, effect Effect) error {
	slog.Info("conversation: effect without host action",
		"channel", h.Channel,
		"kind", effect.Kind,
		"route", effect.Route,
		"direction", effect.Direction,
		"theme", effect.Theme,
		"member_id", effect.MemberID,
	)
	return nil
}

var pageRoutes = map[routing.Page]string{
	routing.PageSettings: "/settings",
	routing.PageStore:    "/store",
	routing.PageProfile:  "/profile",
	routing.PageFamily:   "/family",
	routing.PageFeed:     "/feed",
	routing.PageInvite:   "/invite",
	routing.PageVariants: "/variants",
}

// RouteFor returns the client route of a page.
func RouteFor(p routing.Page) string {
	if route, ok := pageRoutes[p]; ok {
		return route
	}
	return "/"
}

func effectsFor(intent routing.Intent, navigationDelay time.Duration) []Effect {
	switch i := intent.(type) {
	case routing.NavigateTo:
		return []Effect{{Kind: EffectNavigate, Route: RouteFor(i.Page), DelayMs: navigationDelay.Milliseconds()}}
	case routing.GoBack:
		return []Effect{{Kind: EffectGoBack, DelayMs: navigationDelay.Milliseconds()}}
	case routing.Scroll:
		return []Effect{{Kind: EffectScroll, Direction: i.Direction}}
	case routing.ToggleTheme:
		return []Effect{{Kind: EffectTheme, Theme: i.Theme}}
	case routing.ShowPerson:
		return []Effect{{Kind: EffectSelect, MemberID: i.MemberID}}
	}
	return nil
}

// ViewFor returns the view an intent kind displays, if any.
func ViewFor(kind routing.IntentKind) (ViewType, bool) {
	switch kind {
	case routing.KindShowTree:
		return ViewTree, true
	case routing.KindShowPerson:
		return ViewPerson, true
	case routing.KindShowFeed:
		return ViewFeed, true
	case routing.KindSearchMedia:
		return ViewGallery, true
	case routing.KindCreatePublication:
		return ViewStory, true
	}
	return "", false
}
