package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/angelo/ai/agents/events"
	"github.com/hrygo/angelo/ai/e2e/mocks"
	"github.com/hrygo/angelo/ai/metrics"
	"github.com/hrygo/angelo/ai/routing"
	"github.com/hrygo/angelo/store"
)

func newTestBridge(mock *mocks.MockLLM, maxIterations int) *Bridge {
	return NewBridge(mock, store.FixtureDirectory(), Config{
		Model:         "mock",
		Provider:      "mock",
		MaxIterations: maxIterations,
	}, metrics.NewPrometheusExporter(metrics.DefaultConfig()))
}

func TestResolveIntent(t *testing.T) {
	testCases := []struct {
		name     string
		tool     string
		args     string
		expected routing.Intent
	}{
		{"person by id", "show_person", `{"member_id":"m4"}`, routing.ShowPerson{MemberID: "m4"}},
		{"person by name", "show_person", `{"name":"бабушку"}`, routing.ShowPerson{MemberID: store.GrandmotherID}},
		{"name passed as id", "show_person", `{"member_id":"Ольгу Соколову"}`, routing.ShowPerson{MemberID: "m11"}},
		{"tree", "show_tree", `{}`, routing.ShowTree{}},
		{"navigate", "navigate_to", `{"page":"store"}`, routing.NavigateTo{Page: routing.PageStore}},
		{"malformed scroll args default down", "scroll", `{oops`, routing.Scroll{Direction: routing.DirectionDown}},
		{"theme", "toggle_theme", `{"theme":"dark"}`, routing.ToggleTheme{Theme: routing.ThemeDark}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mock := mocks.NewMockLLM().WithToolCall(tc.tool, tc.args)
			res, ok := newTestBridge(mock, 0).ResolveIntent(context.Background(), Request{Text: "x"})
			require.True(t, ok)
			assert.Equal(t, tc.expected, res.Intent)
			assert.Equal(t, 1, res.Iterations)
		})
	}
}

func TestResolveIntent_NoResult(t *testing.T) {
	testCases := []struct {
		name string
		mock *mocks.MockLLM
	}{
		{"transport error", mocks.NewMockLLM().WithError(errors.New("502 bad gateway"))},
		{"text only", mocks.NewMockLLM().WithAnswer("Не понимаю")},
		{"unknown tool", mocks.NewMockLLM().WithToolCall("launch_rockets", `{}`)},
		{"member outside directory", mocks.NewMockLLM().WithToolCall("show_person", `{"member_id":"m99"}`)},
		{"malformed navigate args", mocks.NewMockLLM().WithToolCall("navigate_to", `{"page":`)},
		{"lookup tool only", mocks.NewMockLLM().WithToolCall("get_family_members", `{}`)},
		{"empty script", mocks.NewMockLLM()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, ok := newTestBridge(tc.mock, 0).ResolveIntent(context.Background(), Request{Text: "x"})
			assert.False(t, ok)
			assert.Nil(t, res)
		})
	}
}

func TestResolveIntent_CancelledContext(t *testing.T) {
	mock := mocks.NewMockLLM().WithToolCall("show_tree", `{}`)
	bridge := NewBridge(mock, store.FixtureDirectory(), Config{RPS: 1, Burst: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := bridge.ResolveIntent(ctx, Request{Text: "дерево"})
	assert.False(t, ok)
	assert.Empty(t, mock.Calls())
}

func TestRunAgent(t *testing.T) {
	mock := mocks.NewMockLLM().
		WithToolCall("get_family_members", `{"generation":3}`).
		WithToolCall("show_person", `{"member_id":"m11"}`).
		WithAnswer("Вот Ольга Сергеевна.")

	var (
		mu   sync.Mutex
		seen []string
	)
	cb := func(eventType string, _ any) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, eventType)
		return nil
	}

	res, ok := newTestBridge(mock, 5).RunAgent(context.Background(), Request{Text: "покажи дочь Сергея", Callback: cb})
	require.True(t, ok)
	assert.Equal(t, routing.ShowPerson{MemberID: "m11"}, res.Intent)
	assert.Equal(t, "Вот Ольга Сергеевна.", res.Reply)
	assert.Equal(t, 3, res.Iterations)

	calls := mock.Calls()
	require.Len(t, calls, 3)
	second := calls[1]
	last := second[len(second)-1]
	assert.Equal(t, "user", last.Role)
	assert.True(t, strings.HasPrefix(last.Content, "[Result from get_family_members]: m11: Ольга Соколова"), last.Content)

	assert.Contains(t, seen, "tool_use")
	assert.Contains(t, seen, "tool_result")
	assert.Contains(t, seen, "answer")
}

func TestRunAgent_IterationCap(t *testing.T) {
	mock := mocks.NewMockLLM().
		WithToolCall("show_tree", `{}`).
		WithToolCall("scroll", `{"direction":"up"}`).
		WithToolCall("show_feed", `{}`)

	res, ok := newTestBridge(mock, 2).RunAgent(context.Background(), Request{Text: "x"})
	require.True(t, ok)
	assert.Equal(t, routing.Scroll{Direction: routing.DirectionUp}, res.Intent)
	assert.Empty(t, res.Reply)
	assert.Len(t, mock.Calls(), 2)
}

func TestRunAgent_ToolErrorIsFedBack(t *testing.T) {
	mock := mocks.NewMockLLM().
		WithToolCall("show_person", `{"member_id":"m99"}`).
		WithAnswer("Такого человека нет в семье.")

	res, ok := newTestBridge(mock, 3).RunAgent(context.Background(), Request{Text: "x"})
	require.True(t, ok)
	assert.Equal(t, routing.Unknown{}, res.Intent)
	assert.Equal(t, "Такого человека нет в семье.", res.Reply)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	feedback := calls[1][len(calls[1])-1].Content
	assert.True(t, strings.HasPrefix(feedback, "[Result from show_person]: Ошибка:"), feedback)
}

func TestRunAgent_NoResult(t *testing.T) {
	_, ok := newTestBridge(mocks.NewMockLLM().WithAnswer("  "), 3).RunAgent(context.Background(), Request{Text: "x"})
	assert.False(t, ok)

	_, ok = newTestBridge(mocks.NewMockLLM().WithError(errors.New("boom")), 3).RunAgent(context.Background(), Request{Text: "x"})
	assert.False(t, ok)
}

func TestSystemPrompt(t *testing.T) {
	bridge := newTestBridge(mocks.NewMockLLM(), 0)

	prompt := bridge.systemPrompt("m4", false)
	assert.Contains(t, prompt, "m1: Николай Соколов (Дед Коля)")
	assert.Contains(t, prompt, "Сейчас в разговоре: Елена Иванова (m4)")
	assert.NotContains(t, prompt, "[Result from")

	withAgent := bridge.systemPrompt("", true)
	assert.Contains(t, withAgent, "[Result from")
	assert.NotContains(t, withAgent, "Сейчас в разговоре")
}

func TestWrapSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		events.WrapSafe(nil)("thinking", nil)
		events.WrapSafe(func(string, any) error { return errors.New("x") })("thinking", nil)
	})
}
