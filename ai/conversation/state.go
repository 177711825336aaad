// Package conversation holds per-session chat state and the turn controller
// that maps utterances to replies, views and effects.
package conversation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/angelo/store"
)

// ErrUnknownMember is returned when a member id is not in the directory.
var ErrUnknownMember = errors.New("conversation: unknown member")

// ErrUnknownView is returned for a view type outside the closed set.
var ErrUnknownView = errors.New("conversation: unknown view type")

// Role is the author of a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Message is one chat line.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ViewType is what the assistant screen currently displays.
type ViewType string

const (
	ViewEmpty   ViewType = "empty"
	ViewTree    ViewType = "tree"
	ViewPerson  ViewType = "person"
	ViewFeed    ViewType = "feed"
	ViewGallery ViewType = "gallery"
	ViewStory   ViewType = "story"
)

func (v ViewType) valid() bool {
	switch v {
	case ViewEmpty, ViewTree, ViewPerson, ViewFeed, ViewGallery, ViewStory:
		return true
	}
	return false
}

// InterfaceView is the displayed view. For ViewPerson the payload is a *store.FamilyMember.
type InterfaceView struct {
	Type    ViewType `json:"type"`
	Payload any      `json:"payload,omitempty"`
}

// Snapshot is a consistent copy of the state.
type Snapshot struct {
	Messages        []Message     `json:"messages"`
	View            InterfaceView `json:"view"`
	SelectedContext string        `json:"selected_context,omitempty"`
	IsThinking      bool          `json:"is_thinking"`
	IsSpeaking      bool          `json:"is_speaking"`
}

// State is the memory-only conversation of one session.
// The mutex guards memory safety only; concurrent turns still interleave.
type State struct {
	directory *store.Directory
	hub       *Hub

	mu        sync.Mutex
	messages  []Message
	view      InterfaceView
	selected  string
	thinking  bool
	speaking  bool
	welcomeID string
	spokenID  string
}

// NewState creates a state seeded with the welcome message. hub may be nil.
func NewState(directory *store.Directory, hub *Hub) *State {
	s := &State{directory: directory, hub: hub}
	s.reset()
	return s
}

func newMessage(role Role, text string) Message {
	return Message{ID: uuid.NewString(), Role: role, Text: text, Timestamp: time.Now()}
}

func (s *State) reset() {
	welcome := newMessage(RoleAI, WelcomeText)
	s.messages = []Message{welcome}
	s.view = InterfaceView{Type: ViewEmpty}
	s.selected = ""
	s.thinking = false
	s.speaking = false
	s.welcomeID = welcome.ID
	s.spokenID = ""
}

// Reset returns the state to a fresh session.
func (s *State) Reset() {
	s.mu.Lock()
	s.reset()
	view := s.view
	s.mu.Unlock()
	s.hub.Publish(Event{Type: EventView, Payload: view})
}

func (s *State) addMessage(role Role, text string) Message {
	msg := newMessage(role, text)
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.hub.Publish(Event{Type: EventMessage, Payload: msg})
	return msg
}

func (s *State) AddUserMessage(text string) Message {
	return s.addMessage(RoleUser, text)
}

func (s *State) AddAIMessage(text string) Message {
	return s.addMessage(RoleAI, text)
}

// SetView replaces the displayed view.
func (s *State) SetView(t ViewType, payload any) error {
	if !t.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownView, t)
	}
	view := InterfaceView{Type: t, Payload: payload}
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()
	s.hub.Publish(Event{Type: EventView, Payload: view})
	return nil
}

// SelectEntity sets the selected context. "" clears it. An id outside the
// directory is rejected and the state is left as it was.
func (s *State) SelectEntity(id string) error {
	if id != "" && !s.directory.HasMember(id) {
		return fmt.Errorf("%w: %q", ErrUnknownMember, id)
	}
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	return nil
}

// SelectedContext returns the selected member id or "".
func (s *State) SelectedContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *State) SetThinking(v bool) {
	s.mu.Lock()
	changed := s.thinking != v
	s.thinking = v
	s.mu.Unlock()
	if changed {
		s.hub.Publish(Event{Type: EventThinking, Payload: v})
	}
}

func (s *State) SetSpeaking(v bool) {
	s.mu.Lock()
	changed := s.speaking != v
	s.speaking = v
	s.mu.Unlock()
	if changed {
		s.hub.Publish(Event{Type: EventSpeaking, Payload: v})
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := make([]Message, len(s.messages))
	copy(messages, s.messages)
	return Snapshot{
		Messages:        messages,
		View:            s.view,
		SelectedContext: s.selected,
		IsThinking:      s.thinking,
		IsSpeaking:      s.speaking,
	}
}

// nextToSpeak returns the last AI message unless it is the welcome message or
// was already spoken.
func (s *State) nextToSpeak() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		msg := s.messages[i]
		if msg.Role != RoleAI {
			continue
		}
		if msg.ID == s.welcomeID || msg.ID == s.spokenID {
			return Message{}, false
		}
		return msg, true
	}
	return Message{}, false
}

func (s *State) markSpoken(id string) {
	s.mu.Lock()
	s.spokenID = id
	s.mu.Unlock()
}
