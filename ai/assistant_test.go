package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/angelo/ai/conversation"
	"github.com/hrygo/angelo/ai/metrics"
	"github.com/hrygo/angelo/ai/routing"
	"github.com/hrygo/angelo/internal/profile"
	"github.com/hrygo/angelo/store"
)

func TestNewAssistant_RulesOnly(t *testing.T) {
	cfg := NewConfigFromProfile(&profile.Profile{LLMProvider: "openai"})
	a, err := NewAssistant(cfg, store.FixtureDirectory(), metrics.NewPrometheusExporter(metrics.DefaultConfig()))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Bridge)
	assert.False(t, a.Recognizer.Available())
	assert.False(t, a.Synthesizer.Available())

	s := a.Sessions.Create()
	res := s.Controller.HandleTurn(context.Background(), "Расскажи про бабушку")
	assert.Equal(t, routing.WireIntent{Type: routing.KindShowPerson, Entity: store.GrandmotherID}, res.Intent)
	assert.Equal(t, conversation.SourceRules, res.Source)
	assert.NotEmpty(t, res.ReplyHTML)
	assert.False(t, s.Controller.SpeechAvailable())
}

func TestNewAssistant_WithLLM(t *testing.T) {
	cfg := NewConfigFromProfile(&profile.Profile{
		LLMProvider: "openai",
		LLMAPIKey:   "sk-test",
		LLMModel:    "gpt-4o-mini",
		LLMBaseURL:  "http://127.0.0.1:1/v1",
	})
	a, err := NewAssistant(cfg, store.FixtureDirectory(), nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Bridge)
}

func TestNewAssistant_InvalidConfig(t *testing.T) {
	_, err := NewAssistant(&Config{Enabled: true}, store.FixtureDirectory(), nil)
	assert.Error(t, err)
}

func TestAssistant_SessionsSpeakIndependently(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(started)
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3"))
	}))
	defer upstream.Close()

	cfg := NewConfigFromProfile(&profile.Profile{
		LLMProvider:   "openai",
		SpeechEnabled: true,
		SpeechAPIKey:  "test-key",
		SpeechBaseURL: upstream.URL + "/v1",
	})
	a, err := NewAssistant(cfg, store.FixtureDirectory(), nil)
	require.NoError(t, err)
	defer a.Close()

	s1 := a.Sessions.Create()
	s2 := a.Sessions.Create()
	s1.Controller.HandleTurn(context.Background(), "покажи дерево")
	s2.Controller.HandleTurn(context.Background(), "покажи ленту")

	done := make(chan error, 1)
	go func() {
		_, err := s1.Controller.Speak(context.Background())
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first synthesis never reached the backend")
	}
	audio, err := s2.Controller.Speak(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)

	close(release)
	require.NoError(t, <-done)
}
