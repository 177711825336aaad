package v1

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hrygo/angelo/ai"
	"github.com/hrygo/angelo/ai/conversation"
	"github.com/hrygo/angelo/ai/metrics"
	"github.com/hrygo/angelo/ai/routing"
	"github.com/hrygo/angelo/internal/profile"
	"github.com/hrygo/angelo/store"
	"github.com/hrygo/angelo/store/db/memory"
)

type testEnv struct {
	echo      *echo.Echo
	assistant *ai.Assistant
}

func newTestEnv(t *testing.T, prof *profile.Profile) *testEnv {
	t.Helper()
	if prof == nil {
		prof = &profile.Profile{Mode: "dev", LLMProvider: "openai"}
	}
	assistant, err := ai.NewAssistant(ai.NewConfigFromProfile(prof), store.FixtureDirectory(),
		metrics.NewPrometheusExporter(metrics.DefaultConfig()))
	require.NoError(t, err)
	t.Cleanup(assistant.Close)

	e := echo.New()
	NewAPIV1Service(prof, store.New(memory.NewDB(), prof), assistant).RegisterRoutes(e)
	return &testEnv{echo: e, assistant: assistant}
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (env *testEnv) createSession(t *testing.T) SessionResponse {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[SessionResponse](t, rec)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	session := env.createSession(t)
	require.NotEmpty(t, session.ID)
	require.Len(t, session.State.Messages, 1)
	assert.Equal(t, conversation.ViewEmpty, session.State.View.Type)
	assert.False(t, session.SpeechInput)

	rec := env.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/sessions/"+session.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
}

func TestCreateTurn(t *testing.T) {
	env := newTestEnv(t, nil)
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/turns", `{"text":"Покажи дерево"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var turn struct {
		Intent routing.WireIntent `json:"intent"`
		Source string             `json:"source"`
		View   struct {
			Type conversation.ViewType `json:"type"`
		} `json:"view"`
		ReplyHTML string `json:"reply_html"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	assert.Equal(t, routing.KindShowTree, turn.Intent.Type)
	assert.Equal(t, conversation.SourceRules, turn.Source)
	assert.Equal(t, conversation.ViewTree, turn.View.Type)
	assert.True(t, strings.HasPrefix(turn.ReplyHTML, "<p>"))

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/turns", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/missing/turns", `{"text":"привет"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectMember(t *testing.T) {
	env := newTestEnv(t, nil)
	session := env.createSession(t)
	path := "/api/v1/sessions/" + session.ID + "/select"

	rec := env.do(t, http.MethodPost, path, `{"member_id":"m11"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m11", decode[SessionResponse](t, rec).State.SelectedContext)

	rec = env.do(t, http.MethodPost, path, `{"member_id":"m99"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID, "")
	assert.Equal(t, "m11", decode[SessionResponse](t, rec).State.SelectedContext)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/turns", `{"text":"покажи его фото"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entity":"m11"`)
}

func TestSpeechDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/speech", "audio")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/speak", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSpeechEnabled(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/audio/transcriptions":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"text":"Расскажи про бабушку"}`)
		case "/v1/audio/speech":
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("mp3"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	env := newTestEnv(t, &profile.Profile{
		Mode:          "dev",
		LLMProvider:   "openai",
		SpeechEnabled: true,
		SpeechAPIKey:  "test-key",
		SpeechBaseURL: upstream.URL + "/v1",
	})
	session := env.createSession(t)
	assert.True(t, session.SpeechInput)
	assert.True(t, session.SpeechOutput)
	base := "/api/v1/sessions/" + session.ID

	rec := env.do(t, http.MethodPost, base+"/speak", "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "welcome message is not spoken")

	req := httptest.NewRequest(http.MethodPost, base+"/speech", strings.NewReader("OggS-fake"))
	req.Header.Set(echo.HeaderContentType, "audio/ogg")
	rec = httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[SpeechTurnResponse](t, rec)
	assert.Equal(t, "Расскажи про бабушку", res.Transcript)
	assert.Equal(t, routing.WireIntent{Type: routing.KindShowPerson, Entity: store.GrandmotherID}, res.Turn.Intent)

	rec = env.do(t, http.MethodPost, base+"/speak", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "mp3", rec.Body.String())

	rec = env.do(t, http.MethodPost, base+"/speak", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, base+"/speech", http.NoBody)
	rec = httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteText(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/route", `{"text":"расскажи подробнее","context":"m4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[RouteResponse](t, rec)
	assert.Equal(t, routing.WireIntent{Type: routing.KindShowPerson, Entity: "m4"}, res.Intent)
	assert.Equal(t, "context", res.Rule)

	rec = env.do(t, http.MethodPost, "/api/v1/route", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMembers(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/members", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[ListMembersResponse](t, rec).Members, 17)

	rec = env.do(t, http.MethodGet, "/api/v1/members/m1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Николай", decode[store.FamilyMember](t, rec).FirstName)

	rec = env.do(t, http.MethodGet, "/api/v1/members/m99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreferences(t *testing.T) {
	env := newTestEnv(t, nil)
	base := "/api/v1/preferences/client-1"

	rec := env.do(t, http.MethodGet, base+"/locale", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, base+"/locale", `{"value":"ru"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ru", decode[store.Preference](t, rec).Value)

	rec = env.do(t, http.MethodGet, base+"/locale", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, base+"/favourite_color", `{"value":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[ListPreferencesResponse](t, rec).Preferences, 1)

	rec = env.do(t, http.MethodDelete, base+"/locale", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, base, "")
	assert.Empty(t, decode[ListPreferencesResponse](t, rec).Preferences)
}

func TestStreamEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.echo)
	defer srv.Close()

	session := env.createSession(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + session.ID + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first conversation.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, conversation.EventSnapshot, first.Type)

	seen := map[conversation.EventType]bool{}
	env.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/turns", `{"text":"открой настройки"}`)
	for !seen[conversation.EventEffect] {
		var event conversation.Event
		require.NoError(t, conn.ReadJSON(&event))
		seen[event.Type] = true
	}
	assert.True(t, seen[conversation.EventMessage])

	rec := env.do(t, http.MethodGet, "/api/v1/sessions/missing/events", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamEvents_SessionDeletedEndsStream(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.echo)
	defer srv.Close()
	session := env.createSession(t)
	ignore := goleak.IgnoreCurrent()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + session.ID + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first conversation.Event
	require.NoError(t, conn.ReadJSON(&first))

	rec := env.do(t, http.MethodDelete, "/api/v1/sessions/"+session.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.NoError(t, conn.Close())

	goleak.VerifyNone(t, ignore)
}
