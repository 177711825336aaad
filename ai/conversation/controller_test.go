package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agent "github.com/hrygo/angelo/ai/agents"
	"github.com/hrygo/angelo/ai/e2e/mocks"
	"github.com/hrygo/angelo/ai/format"
	"github.com/hrygo/angelo/ai/routing"
	"github.com/hrygo/angelo/store"
)

type fakeSynth struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (f *fakeSynth) Available() bool { return true }

func (f *fakeSynth) Speak(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.spoken = append(f.spoken, text)
	return []byte("mp3"), nil
}

type recordingEffects struct {
	mu      sync.Mutex
	applied []Effect
}

func (r *recordingEffects) Apply(_ context.Context, e Effect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, e)
	return nil
}

func newRulesController(opts Options) *Controller {
	return NewController(store.FixtureDirectory(), opts)
}

func TestHandleTurn_ShowTree(t *testing.T) {
	c := newRulesController(Options{Formatter: format.NewFormatter()})

	res := c.HandleTurn(context.Background(), "Покажи дерево")
	assert.Equal(t, routing.WireIntent{Type: routing.KindShowTree}, res.Intent)
	assert.Equal(t, SourceRules, res.Source)
	assert.Equal(t, ViewTree, res.View.Type)
	assert.Equal(t, replyTree, res.Reply.Text)
	assert.Equal(t, "<p>"+replyTree+"</p>", res.ReplyHTML)

	snap := c.State().Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, RoleUser, snap.Messages[1].Role)
	assert.Equal(t, "Покажи дерево", snap.Messages[1].Text)
	assert.Equal(t, RoleAI, snap.Messages[2].Role)
	assert.Equal(t, ViewTree, snap.View.Type)
	assert.False(t, snap.IsThinking)
}

func TestHandleTurn_PersonThenPronoun(t *testing.T) {
	effects := &recordingEffects{}
	c := newRulesController(Options{Effects: effects})

	res := c.HandleTurn(context.Background(), "Расскажи про Ольгу Соколову")
	assert.Equal(t, routing.WireIntent{Type: routing.KindShowPerson, Entity: "m11"}, res.Intent)
	assert.Equal(t, ViewPerson, res.View.Type)
	member, ok := res.View.Payload.(*store.FamilyMember)
	require.True(t, ok)
	assert.Equal(t, "m11", member.ID)
	assert.Contains(t, res.Reply.Text, "Ольга")
	assert.Equal(t, "m11", c.State().SelectedContext())
	assert.Equal(t, []Effect{{Kind: EffectSelect, MemberID: "m11"}}, effects.applied)

	res = c.HandleTurn(context.Background(), "расскажи подробнее")
	assert.Equal(t, routing.WireIntent{Type: routing.KindShowPerson, Entity: "m11"}, res.Intent)
}

func TestHandleTurn_UnknownKeepsState(t *testing.T) {
	c := newRulesController(Options{})
	require.NoError(t, c.State().SelectEntity("m2"))
	require.NoError(t, c.State().SetView(ViewFeed, nil))

	res := c.HandleTurn(context.Background(), "абракадабра")
	assert.Equal(t, routing.KindUnknown, res.Intent.Type)
	assert.Equal(t, replyUnknown, res.Reply.Text)
	assert.Equal(t, ViewFeed, res.View.Type)
	assert.Equal(t, "m2", c.State().SelectedContext())
}

func TestHandleTurn_Effects(t *testing.T) {
	testCases := []struct {
		text   string
		effect Effect
		view   ViewType
	}{
		{"открой настройки", Effect{Kind: EffectNavigate, Route: "/settings", DelayMs: 800}, ViewEmpty},
		{"прокрути вверх", Effect{Kind: EffectScroll, Direction: routing.DirectionUp}, ViewEmpty},
		{"включи тёмную тему", Effect{Kind: EffectTheme, Theme: routing.ThemeDark}, ViewEmpty},
		{"назад", Effect{Kind: EffectGoBack, DelayMs: 800}, ViewEmpty},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			c := newRulesController(Options{NavigationDelay: 800 * time.Millisecond})
			res := c.HandleTurn(context.Background(), tc.text)
			require.Len(t, res.Effects, 1)
			assert.Equal(t, tc.effect, res.Effects[0])
			assert.Equal(t, tc.view, res.View.Type)
		})
	}
}

func TestHandleTurn_NoKeyNoNetwork(t *testing.T) {
	// Without an API key no bridge is built, so the turn never leaves the process.
	c := newRulesController(Options{TurnLatency: time.Millisecond})
	done := make(chan TurnResult, 1)
	go func() { done <- c.HandleTurn(context.Background(), "про дядю Сашу") }()

	select {
	case res := <-done:
		assert.Equal(t, SourceRules, res.Source)
		assert.Equal(t, routing.WireIntent{Type: routing.KindShowPerson, Entity: "m10"}, res.Intent)
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not finish")
	}
}

func TestHandleTurn_BridgeFirst(t *testing.T) {
	mock := mocks.NewMockLLM().WithToolCall("show_feed", `{}`)
	bridge := agent.NewBridge(mock, store.FixtureDirectory(), agent.Config{}, nil)
	c := newRulesController(Options{Bridge: bridge})

	res := c.HandleTurn(context.Background(), "покажи дерево")
	assert.Equal(t, SourceLLM, res.Source)
	assert.Equal(t, routing.KindShowFeed, res.Intent.Type)
	assert.Equal(t, ViewFeed, res.View.Type)
}

func TestHandleTurn_BridgeFailureFallsBack(t *testing.T) {
	mock := mocks.NewMockLLM().WithError(errors.New("connection refused"))
	bridge := agent.NewBridge(mock, store.FixtureDirectory(), agent.Config{}, nil)
	c := newRulesController(Options{Bridge: bridge})

	res := c.HandleTurn(context.Background(), "Покажи дерево")
	assert.Equal(t, SourceRules, res.Source)
	assert.Equal(t, routing.KindShowTree, res.Intent.Type)
}

func TestHandleTurn_AgentReplyForUnknown(t *testing.T) {
	mock := mocks.NewMockLLM().WithAnswer("Николай Петрович любит рыбалку.")
	bridge := agent.NewBridge(mock, store.FixtureDirectory(), agent.Config{MaxIterations: 3}, nil)
	c := newRulesController(Options{Bridge: bridge, AgentMode: true})

	res := c.HandleTurn(context.Background(), "чем увлекается дедушка")
	assert.Equal(t, SourceLLM, res.Source)
	assert.Equal(t, routing.KindUnknown, res.Intent.Type)
	assert.Equal(t, "Николай Петрович любит рыбалку.", res.Reply.Text)
}

func TestHandleTurn_Latency(t *testing.T) {
	c := newRulesController(Options{TurnLatency: 50 * time.Millisecond})
	start := time.Now()
	c.HandleTurn(context.Background(), "привет")
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c = newRulesController(Options{TurnLatency: time.Hour})
	res := c.HandleTurn(ctx, "привет")
	assert.Equal(t, routing.KindGreeting, res.Intent.Type)
}

func TestHandleTurn_Events(t *testing.T) {
	c := newRulesController(Options{})
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	c.HandleTurn(context.Background(), "покажи его фото")
	c.HandleTurn(context.Background(), "семейное древо")

	var types []EventType
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Contains(t, types, EventMessage)
	assert.Contains(t, types, EventThinking)
	assert.Contains(t, types, EventView)
}

func TestSpeak(t *testing.T) {
	synth := &fakeSynth{}
	c := newRulesController(Options{Synthesizer: synth})

	_, err := c.Speak(context.Background())
	assert.ErrorIs(t, err, ErrNothingToSpeak)
	assert.Empty(t, synth.spoken)

	res := c.HandleTurn(context.Background(), "помощь")
	assert.True(t, c.State().Snapshot().IsSpeaking)

	audio, err := c.Speak(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
	assert.Equal(t, []string{res.Reply.Text}, synth.spoken)
	assert.False(t, c.State().Snapshot().IsSpeaking)

	_, err = c.Speak(context.Background())
	assert.ErrorIs(t, err, ErrNothingToSpeak)
	assert.Len(t, synth.spoken, 1)
}

func TestSpeak_FailureCanRetry(t *testing.T) {
	synth := &fakeSynth{err: errors.New("tts down")}
	c := newRulesController(Options{Synthesizer: synth})
	c.HandleTurn(context.Background(), "привет")

	_, err := c.Speak(context.Background())
	require.Error(t, err)
	assert.False(t, c.State().Snapshot().IsSpeaking)

	synth.err = nil
	_, err = c.Speak(context.Background())
	assert.NoError(t, err)
}

func TestNoSynthesizerNeverSpeaks(t *testing.T) {
	c := newRulesController(Options{})
	c.HandleTurn(context.Background(), "привет")
	assert.False(t, c.State().Snapshot().IsSpeaking)
	assert.False(t, c.SpeechAvailable())
}
