package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/angelo/ai/conversation"
)

const (
	eventsWSWriteWait = 10 * time.Second
	eventsWSPongWait  = 60 * time.Second
	eventsWSPingEvery = (eventsWSPongWait * 9) / 10
)

var eventsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// StreamEvents pushes the session's controller events over a WebSocket.
// The stream ends when the client goes away or the session is dropped.
func (s *APIV1Service) StreamEvents(c echo.Context) error {
	session, err := s.session(c)
	if err != nil {
		return errorFor(c, err)
	}

	conn, err := eventsWSUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return nil
	}
	defer conn.Close()

	events, unsubscribe := session.Controller.Subscribe()
	defer unsubscribe()

	if err := conn.SetReadDeadline(time.Now().Add(eventsWSPongWait)); err != nil {
		return nil
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	})

	// The reader only drains control frames and notices the client leaving.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
		return nil
	}
	snapshot := conversation.Event{Type: conversation.EventSnapshot, Payload: session.Controller.State().Snapshot()}
	if err := conn.WriteJSON(snapshot); err != nil {
		return nil
	}

	ticker := time.NewTicker(eventsWSPingEvery)
	defer ticker.Stop()

	slog.Debug("events: stream opened", "session_id", session.ID)
	defer slog.Debug("events: stream closed", "session_id", session.ID)
	for {
		select {
		case <-readerDone:
			return nil
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(eventsWSWriteWait))
				return nil
			}
			if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
				return nil
			}
			if err := conn.WriteJSON(event); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
				return nil
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
