package v1

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/angelo/ai/conversation"
	"github.com/hrygo/angelo/ai/speech"
)

type SessionResponse struct {
	ID           string                `json:"id"`
	CreatedAt    time.Time             `json:"created_at"`
	SpeechInput  bool                  `json:"speech_input"`
	SpeechOutput bool                  `json:"speech_output"`
	State        conversation.Snapshot `json:"state"`
}

type TurnRequest struct {
	Text string `json:"text"`
}

type SelectRequest struct {
	MemberID string `json:"member_id"`
}

type SpeechTurnResponse struct {
	Transcript string                  `json:"transcript"`
	Turn       conversation.TurnResult `json:"turn"`
}

func (s *APIV1Service) sessionResponse(session *conversation.Session) SessionResponse {
	return SessionResponse{
		ID:           session.ID,
		CreatedAt:    session.CreatedAt,
		SpeechInput:  s.Assistant.Recognizer.Available(),
		SpeechOutput: session.Controller.SpeechAvailable(),
		State:        session.Controller.State().Snapshot(),
	}
}

func (s *APIV1Service) session(c echo.Context) (*conversation.Session, error) {
	return s.Assistant.Sessions.Get(c.Param("id"))
}

func (s *APIV1Service) CreateSession(c echo.Context) error {
	session := s.Assistant.Sessions.Create()
	return c.JSON(http.StatusCreated, s.sessionResponse(session))
}

func (s *APIV1Service) GetSession(c echo.Context) error {
	session, err := s.session(c)
	if err != nil {
		return errorFor(c, err)
	}
	return c.JSON(http.StatusOK, s.sessionResponse(session))
}

func (s *APIV1Service) DeleteSession(c echo.Context) error {
	if !s.Assistant.Sessions.Delete(c.Param("id")) {
		return errorFor(c, conversation.ErrSessionNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) CreateTurn(c echo.Context) error {
	session, err := s.session(c)
	if err != nil {
		return errorFor(c, err)
	}
	var req TurnRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return jsonError(c, http.StatusBadRequest, "text is required")
	}
	return c.JSON(http.StatusOK, session.Controller.HandleTurn(c.Request().Context(), text))
}

func (s *APIV1Service) SelectMember(c echo.Context) error {
	session, err := s.session(c)
	if err != nil {
		return errorFor(c, err)
	}
	var req SelectRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := session.Controller.State().SelectEntity(strings.TrimSpace(req.MemberID)); err != nil {
		return errorFor(c, err)
	}
	return c.JSON(http.StatusOK, s.sessionResponse(session))
}

// RecognizeSpeech takes the raw audio body, transcribes it and runs a turn.
func (s *APIV1Service) RecognizeSpeech(c echo.Context) error {
	session, err := s.session(c)
	if err != nil {
		return errorFor(c, err)
	}
	recognizer := s.Assistant.Recognizer
	if !recognizer.Available() {
		return errorFor(c, speech.ErrUnavailable)
	}

	audio, err := io.ReadAll(io.LimitReader(c.Request().Body, maxAudioBytes+1))
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "failed to read audio")
	}
	if len(audio) > maxAudioBytes {
		return jsonError(c, http.StatusRequestEntityTooLarge, "audio too large")
	}
	if len(audio) == 0 {
		return errorFor(c, speech.ErrEmptyInput)
	}

	ctx := c.Request().Context()
	transcript, err := recognizer.Recognize(ctx, session.ID, bytes.NewReader(audio), audioFilename(c))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			slog.Warn("speech: recognition failed", "session_id", session.ID, "error", err)
			status = http.StatusBadGateway
		}
		return jsonError(c, status, err.Error())
	}

	return c.JSON(http.StatusOK, SpeechTurnResponse{
		Transcript: transcript,
		Turn:       session.Controller.HandleTurn(ctx, transcript),
	})
}

// SpeakReply returns MP3 audio of the last unspoken AI reply.
func (s *APIV1Service) SpeakReply(c echo.Context) error {
	session, err := s.session(c)
	if err != nil {
		return errorFor(c, err)
	}
	if !session.Controller.SpeechAvailable() {
		return errorFor(c, speech.ErrUnavailable)
	}

	audio, err := session.Controller.Speak(c.Request().Context())
	switch {
	case errors.Is(err, conversation.ErrNothingToSpeak):
		return c.NoContent(http.StatusNoContent)
	case err != nil:
		slog.Warn("speech: synthesis failed", "session_id", session.ID, "error", err)
		return jsonError(c, http.StatusBadGateway, err.Error())
	}
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}

var audioExtensions = map[string]string{
	"audio/ogg":   "ogg",
	"audio/webm":  "webm",
	"audio/mpeg":  "mp3",
	"audio/mp4":   "m4a",
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
}

// audioFilename names the upload so the backend can tell the container format.
func audioFilename(c echo.Context) string {
	mediaType, _, err := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if err == nil {
		if ext, ok := audioExtensions[mediaType]; ok {
			return "speech." + ext
		}
	}
	return "speech.webm"
}
