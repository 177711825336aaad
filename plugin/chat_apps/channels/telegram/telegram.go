// Package telegram serves the assistant over the Telegram Bot API with long polling.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/angelo/ai"
	"github.com/hrygo/angelo/ai/conversation"
	"github.com/hrygo/angelo/ai/speech"
	"github.com/hrygo/angelo/plugin/chat_apps"
	"github.com/hrygo/angelo/plugin/chat_apps/channels"
	"github.com/hrygo/angelo/store"
)

const (
	MaxAudioSizeMB = 20 // Telegram bots cannot download larger files
	pollTimeout    = 30 // seconds
	sessionPrefix  = "tg-"
)

const (
	replyVoiceUnavailable = "Голосовые сообщения пока недоступны. Напишите, пожалуйста, текстом."
	replyVoiceBusy        = "Я ещё слушаю предыдущее сообщение. Подождите немного."
	replyVoiceEmpty       = "Не удалось разобрать речь. Попробуйте ещё раз."
	replyUnsupported      = "Я понимаю текст и голосовые сообщения."
)

// TelegramConfig holds configuration for the Telegram channel.
type TelegramConfig struct {
	BotToken string
}

// botAPI is the subset of *tgbotapi.BotAPI the channel uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// TelegramChannel implements ChatChannel for Telegram Bot API.
// Each chat id maps to one assistant session.
type TelegramChannel struct {
	bot       botAPI
	assistant *ai.Assistant
	effects   conversation.EffectHandler
	client    *http.Client
}

// NewTelegramChannel creates a new Telegram channel.
func NewTelegramChannel(config *TelegramConfig, assistant *ai.Assistant) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	slog.Info("telegram: authorized", "username", bot.Self.UserName)
	return newChannel(bot, assistant), nil
}

func newChannel(bot botAPI, assistant *ai.Assistant) *TelegramChannel {
	return &TelegramChannel{
		bot:       bot,
		assistant: assistant,
		effects:   conversation.LogEffectHandler{Channel: string(chat_apps.PlatformTelegram)},
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DisableCompression: true,
			},
		},
	}
}

// Name returns the platform name.
func (t *TelegramChannel) Name() chat_apps.Platform {
	return chat_apps.PlatformTelegram
}

// Run long-polls for updates until ctx is done. Updates are handled in order.
func (t *TelegramChannel) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	slog.Info("telegram: polling for updates")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *TelegramChannel) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg, err := ParseUpdate(update)
	if err != nil {
		slog.Debug("telegram: skipping update", "update_id", update.UpdateID, "error", err)
		return
	}
	if err := t.HandleMessage(ctx, msg); err != nil {
		slog.Error("telegram: failed to handle message",
			"chat_id", msg.PlatformChatID,
			"type", msg.Type,
			"error", err,
		)
	}
}

// HandleMessage runs one incoming message as an assistant turn and sends the reply.
func (t *TelegramChannel) HandleMessage(ctx context.Context, msg *chat_apps.IncomingMessage) error {
	session := t.assistant.Sessions.Open(sessionPrefix + msg.PlatformChatID)
	controller := session.Controller

	var text string
	switch msg.Type {
	case chat_apps.MessageTypeText:
		switch msg.Command {
		case "start":
			controller.State().Reset()
			return t.sendText(ctx, msg.PlatformChatID, conversation.WelcomeText)
		case "help":
			text = "помощь"
		default:
			text = msg.Content
		}
	case chat_apps.MessageTypeAudio:
		transcript, reply := t.transcribe(ctx, msg)
		if reply != "" {
			return t.sendText(ctx, msg.PlatformChatID, reply)
		}
		text = transcript
	default:
		return t.sendText(ctx, msg.PlatformChatID, replyUnsupported)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	result := controller.HandleTurn(ctx, text)
	for _, effect := range result.Effects {
		if err := t.effects.Apply(ctx, effect); err != nil {
			slog.Warn("telegram: effect failed", "kind", effect.Kind, "error", err)
		}
	}

	reply := result.Reply.Text
	if _, shown := conversation.ViewFor(result.Intent.Type); shown {
		if summary := viewSummary(result.View); summary != "" {
			reply += "\n\n" + summary
		}
	}
	if err := t.sendText(ctx, msg.PlatformChatID, reply); err != nil {
		return err
	}

	if !controller.SpeechAvailable() {
		return nil
	}
	audio, err := controller.Speak(ctx)
	if err != nil {
		if !errors.Is(err, conversation.ErrNothingToSpeak) {
			slog.Warn("telegram: synthesis failed", "chat_id", msg.PlatformChatID, "error", err)
		}
		return nil
	}
	return t.SendMessage(ctx, &chat_apps.OutgoingMessage{
		PlatformChatID: msg.PlatformChatID,
		Type:           chat_apps.MessageTypeAudio,
		MediaData:      audio,
		FileName:       "angelo.mp3",
	})
}

// transcribe returns the recognized text, or a user-facing reply when it cannot.
func (t *TelegramChannel) transcribe(ctx context.Context, msg *chat_apps.IncomingMessage) (string, string) {
	recognizer := t.assistant.Recognizer
	if !recognizer.Available() {
		return "", replyVoiceUnavailable
	}
	data, _, err := t.DownloadMedia(ctx, msg.MediaID)
	if err != nil {
		slog.Warn("telegram: voice download failed", "chat_id", msg.PlatformChatID, "error", err)
		return "", replyVoiceEmpty
	}
	transcript, err := recognizer.Recognize(ctx, sessionPrefix+msg.PlatformChatID, bytes.NewReader(data), "voice.ogg")
	switch {
	case errors.Is(err, speech.ErrSessionActive):
		return "", replyVoiceBusy
	case err != nil:
		slog.Warn("telegram: recognition failed", "chat_id", msg.PlatformChatID, "error", err)
		return "", replyVoiceEmpty
	}
	return transcript, ""
}

// SendMessage sends a message to Telegram.
func (t *TelegramChannel) SendMessage(ctx context.Context, msg *chat_apps.OutgoingMessage) error {
	slog.Debug("telegram: sending message",
		"chat_id", msg.PlatformChatID,
		"type", msg.Type,
	)

	chatID, err := strconv.ParseInt(msg.PlatformChatID, 10, 64)
	if err != nil {
		slog.Error("telegram: invalid chat ID", "chat_id", msg.PlatformChatID, "error", err)
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	var chattable tgbotapi.Chattable
	switch msg.Type {
	case chat_apps.MessageTypeAudio:
		audio := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{
			Name:  msg.FileName,
			Bytes: msg.MediaData,
		})
		audio.Caption = msg.Content
		chattable = audio
	default:
		chattable = tgbotapi.NewMessage(chatID, msg.Content)
	}
	if _, err := t.bot.Send(chattable); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *TelegramChannel) sendText(ctx context.Context, chatID, text string) error {
	return t.SendMessage(ctx, &chat_apps.OutgoingMessage{
		PlatformChatID: chatID,
		Type:           chat_apps.MessageTypeText,
		Content:        text,
	})
}

// DownloadMedia downloads a file from Telegram.
func (t *TelegramChannel) DownloadMedia(ctx context.Context, fileID string) ([]byte, string, error) {
	fileURL, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		slog.Error("telegram: failed to get file info", "file_id", fileID, "error", err)
		return nil, "", &channels.ChannelError{Code: channels.ErrMediaDownloadFailed.Code, Message: channels.ErrMediaDownloadFailed.Message, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", &channels.ChannelError{Code: channels.ErrMediaDownloadFailed.Code, Message: channels.ErrMediaDownloadFailed.Message, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("telegram: non-200 status downloading file", "status", resp.StatusCode)
		return nil, "", fmt.Errorf("%w: status %d", channels.ErrMediaDownloadFailed, resp.StatusCode)
	}

	limit := int64(MaxAudioSizeMB) << 20
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", channels.ErrMediaTooLarge
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	slog.Debug("telegram: downloaded media", "file_id", fileID, "size", len(data), "mime_type", mimeType)
	return data, mimeType, nil
}

// ParseUpdate converts a Telegram update into an IncomingMessage.
// Updates without a message, chat or sender are rejected.
func ParseUpdate(update tgbotapi.Update) (*chat_apps.IncomingMessage, error) {
	message := update.Message
	if message == nil || message.Chat == nil || message.From == nil {
		return nil, channels.ErrInvalidPayload
	}

	msg := &chat_apps.IncomingMessage{
		Platform:       chat_apps.PlatformTelegram,
		PlatformUserID: strconv.FormatInt(message.From.ID, 10),
		PlatformChatID: strconv.FormatInt(message.Chat.ID, 10),
		Timestamp:      time.Unix(int64(message.Date), 0),
	}

	switch {
	case message.Voice != nil:
		msg.Type = chat_apps.MessageTypeAudio
		msg.MediaID = message.Voice.FileID
		msg.MimeType = message.Voice.MimeType
		msg.Content = message.Caption
	case message.Audio != nil:
		msg.Type = chat_apps.MessageTypeAudio
		msg.MediaID = message.Audio.FileID
		msg.MimeType = message.Audio.MimeType
		msg.Content = message.Caption
	case message.Text != "":
		msg.Type = chat_apps.MessageTypeText
		msg.Content = message.Text
		if message.IsCommand() {
			msg.Command = message.Command()
		}
	default:
		msg.Type = chat_apps.MessageTypeUnsupported
	}
	return msg, nil
}

var viewTitles = map[conversation.ViewType]string{
	conversation.ViewTree:    "семейное дерево",
	conversation.ViewFeed:    "лента",
	conversation.ViewGallery: "фотоальбом",
	conversation.ViewStory:   "новая история",
}

// viewSummary describes the displayed view in one line, since chats have no screen.
func viewSummary(view conversation.InterfaceView) string {
	if view.Type == conversation.ViewPerson {
		if m, ok := view.Payload.(*store.FamilyMember); ok && m != nil {
			return "Экран: карточка «" + m.FullName() + "»"
		}
		return ""
	}
	if title, ok := viewTitles[view.Type]; ok {
		return "Экран: " + title
	}
	return ""
}

// Close closes the Telegram channel.
func (t *TelegramChannel) Close() error {
	return nil
}

// Ensure TelegramChannel implements ChatChannel
var _ channels.ChatChannel = (*TelegramChannel)(nil)
