// Package routing turns a visitor message into a structured intent.
package routing

import (
	"encoding/json"
	"fmt"
)

// IntentKind is the discriminator of an Intent.
type IntentKind string

const (
	KindShowTree          IntentKind = "show_tree"
	KindShowPerson        IntentKind = "show_person"
	KindShowFeed          IntentKind = "show_feed"
	KindSearchMedia       IntentKind = "search_media"
	KindCreatePublication IntentKind = "create_publication"
	KindNavigateTo        IntentKind = "navigate_to"
	KindGoBack            IntentKind = "go_back"
	KindScroll            IntentKind = "scroll"
	KindToggleTheme       IntentKind = "toggle_theme"
	KindGreeting          IntentKind = "greeting"
	KindHelp              IntentKind = "help"
	KindUnknown           IntentKind = "unknown"
)

// Intent is a closed sum type. Only the variants declared in this file implement it.
type Intent interface {
	Kind() IntentKind
	// Entity returns the variant payload in wire form, or "" for payload-free kinds.
	Entity() string
	isIntent()
}

// Page is a navigation target.
type Page string

const (
	PageSettings Page = "settings"
	PageStore    Page = "store"
	PageProfile  Page = "profile"
	PageFamily   Page = "family"
	PageFeed     Page = "feed"
	PageInvite   Page = "invite"
	PageVariants Page = "variants"
)

var knownPages = map[Page]struct{}{
	PageSettings: {}, PageStore: {}, PageProfile: {}, PageFamily: {},
	PageFeed: {}, PageInvite: {}, PageVariants: {},
}

// Direction of a scroll intent.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Theme requested by a toggle_theme intent.
type Theme string

const (
	ThemeDark   Theme = "dark"
	ThemeLight  Theme = "light"
	ThemeToggle Theme = "toggle"
)

type (
	ShowTree          struct{}
	ShowFeed          struct{}
	SearchMedia       struct{}
	CreatePublication struct{}
	GoBack            struct{}
	Greeting          struct{}
	Help              struct{}
	Unknown           struct{}

	// ShowPerson carries a member id that exists in the directory.
	ShowPerson struct {
		MemberID string
	}
	NavigateTo struct {
		Page Page
	}
	Scroll struct {
		Direction Direction
	}
	ToggleTheme struct {
		Theme Theme
	}
)

func (ShowTree) Kind() IntentKind          { return KindShowTree }
func (ShowFeed) Kind() IntentKind          { return KindShowFeed }
func (SearchMedia) Kind() IntentKind       { return KindSearchMedia }
func (CreatePublication) Kind() IntentKind { return KindCreatePublication }
func (GoBack) Kind() IntentKind            { return KindGoBack }
func (Greeting) Kind() IntentKind          { return KindGreeting }
func (Help) Kind() IntentKind              { return KindHelp }
func (Unknown) Kind() IntentKind           { return KindUnknown }
func (ShowPerson) Kind() IntentKind        { return KindShowPerson }
func (NavigateTo) Kind() IntentKind        { return KindNavigateTo }
func (Scroll) Kind() IntentKind            { return KindScroll }
func (ToggleTheme) Kind() IntentKind       { return KindToggleTheme }

func (ShowTree) Entity() string          { return "" }
func (ShowFeed) Entity() string          { return "" }
func (SearchMedia) Entity() string       { return "" }
func (CreatePublication) Entity() string { return "" }
func (GoBack) Entity() string            { return "" }
func (Greeting) Entity() string          { return "" }
func (Help) Entity() string              { return "" }
func (Unknown) Entity() string           { return "" }
func (i ShowPerson) Entity() string      { return i.MemberID }
func (i NavigateTo) Entity() string      { return string(i.Page) }
func (i Scroll) Entity() string          { return string(i.Direction) }
func (i ToggleTheme) Entity() string     { return string(i.Theme) }

func (ShowTree) isIntent()          {}
func (ShowFeed) isIntent()          {}
func (SearchMedia) isIntent()       {}
func (CreatePublication) isIntent() {}
func (GoBack) isIntent()            {}
func (Greeting) isIntent()          {}
func (Help) isIntent()              {}
func (Unknown) isIntent()           {}
func (ShowPerson) isIntent()        {}
func (NavigateTo) isIntent()        {}
func (Scroll) isIntent()            {}
func (ToggleTheme) isIntent()       {}

// WireIntent is the JSON shape shared by the HTTP API and the tool bridge.
type WireIntent struct {
	Type   IntentKind `json:"type"`
	Entity string     `json:"entity,omitempty"`
}

// ToWire flattens an intent to its wire form.
func ToWire(i Intent) WireIntent {
	if i == nil {
		return WireIntent{Type: KindUnknown}
	}
	return WireIntent{Type: i.Kind(), Entity: i.Entity()}
}

// MarshalIntent encodes an intent as {"type": ..., "entity": ...}.
func MarshalIntent(i Intent) ([]byte, error) {
	return json.Marshal(ToWire(i))
}

// ParseIntent builds an intent from its wire form. Payload kinds reject
// missing or out-of-range entities; member ids are not checked against a directory here.
func ParseIntent(kind IntentKind, entity string) (Intent, error) {
	switch kind {
	case KindShowTree:
		return ShowTree{}, nil
	case KindShowFeed:
		return ShowFeed{}, nil
	case KindSearchMedia:
		return SearchMedia{}, nil
	case KindCreatePublication:
		return CreatePublication{}, nil
	case KindGoBack:
		return GoBack{}, nil
	case KindGreeting:
		return Greeting{}, nil
	case KindHelp:
		return Help{}, nil
	case KindUnknown:
		return Unknown{}, nil
	case KindShowPerson:
		if entity == "" {
			return nil, fmt.Errorf("show_person requires a member id")
		}
		return ShowPerson{MemberID: entity}, nil
	case KindNavigateTo:
		page := Page(entity)
		if !IsKnownPage(page) {
			return nil, fmt.Errorf("unknown page %q", entity)
		}
		return NavigateTo{Page: page}, nil
	case KindScroll:
		switch Direction(entity) {
		case DirectionUp, DirectionDown:
			return Scroll{Direction: Direction(entity)}, nil
		case "":
			return Scroll{Direction: DirectionDown}, nil
		}
		return nil, fmt.Errorf("unknown scroll direction %q", entity)
	case KindToggleTheme:
		switch Theme(entity) {
		case ThemeDark, ThemeLight, ThemeToggle:
			return ToggleTheme{Theme: Theme(entity)}, nil
		case "":
			return ToggleTheme{Theme: ThemeToggle}, nil
		}
		return nil, fmt.Errorf("unknown theme %q", entity)
	}
	return nil, fmt.Errorf("unknown intent type %q", kind)
}

// UnmarshalIntent decodes the wire form produced by MarshalIntent.
func UnmarshalIntent(data []byte) (Intent, error) {
	var w WireIntent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return ParseIntent(w.Type, w.Entity)
}

// IsKnownPage reports whether p is a supported navigation target.
func IsKnownPage(p Page) bool {
	_, ok := knownPages[p]
	return ok
}
