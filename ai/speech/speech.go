// Package speech wraps OpenAI-compatible transcription and text-to-speech endpoints.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/angelo/ai/metrics"
)

var (
	// ErrSessionActive is returned when a recognition session is already running.
	ErrSessionActive = errors.New("speech: recognition session already active")
	// ErrUnavailable is returned when no speech backend is configured.
	ErrUnavailable = errors.New("speech: backend not configured")
	// ErrEmptyInput is returned for empty audio or empty text.
	ErrEmptyInput = errors.New("speech: empty input")
)

// Language is the only recognition language.
const Language = "ru"

// Config configures both directions of speech I/O.
type Config struct {
	APIKey   string
	BaseURL  string
	STTModel string // default whisper-1
	TTSModel string // default tts-1
	Voice    string // default nova
	Speed    float64

	HTTPClient *http.Client
}

func newClient(cfg Config) *openai.Client {
	if cfg.APIKey == "" {
		return nil
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	} else {
		clientConfig.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return openai.NewClientWithConfig(clientConfig)
}

// Recognizer turns recorded audio into text. Each session holds at most one
// recognition at a time; sessions do not block each other.
type Recognizer struct {
	client  *openai.Client
	model   string
	metrics *metrics.PrometheusExporter

	mu     sync.Mutex
	active map[string]struct{}
}

// NewRecognizer creates a recognizer. Without an API key it is unavailable.
func NewRecognizer(cfg Config, exporter *metrics.PrometheusExporter) *Recognizer {
	model := cfg.STTModel
	if model == "" {
		model = openai.Whisper1
	}
	return &Recognizer{
		client:  newClient(cfg),
		model:   model,
		metrics: exporter,
		active:  make(map[string]struct{}),
	}
}

// Available reports whether recognition can be offered.
func (r *Recognizer) Available() bool {
	return r != nil && r.client != nil
}

// Active reports whether the session has a recognition running.
func (r *Recognizer) Active(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[sessionID]
	return ok
}

func (r *Recognizer) begin(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[sessionID]; ok {
		return false
	}
	r.active[sessionID] = struct{}{}
	return true
}

func (r *Recognizer) end(sessionID string) {
	r.mu.Lock()
	delete(r.active, sessionID)
	r.mu.Unlock()
}

// Recognize transcribes audio for one session. filename carries the container
// format (e.g. "voice.ogg"). A second call for the same session while one is
// running returns ErrSessionActive and does not disturb the first.
func (r *Recognizer) Recognize(ctx context.Context, sessionID string, audio io.Reader, filename string) (string, error) {
	if !r.Available() {
		return "", ErrUnavailable
	}
	if audio == nil {
		return "", ErrEmptyInput
	}
	if !r.begin(sessionID) {
		return "", ErrSessionActive
	}
	defer r.end(sessionID)

	if filename == "" {
		filename = "speech.webm"
	}
	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		FilePath: filename,
		Reader:   audio,
		Language: Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	r.metrics.RecordSpeech("stt", err == nil)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	slog.Debug("speech: recognized", "session_id", sessionID, "chars", len(text))
	if text == "" {
		return "", ErrEmptyInput
	}
	return text, nil
}

// Synthesizer speaks text aloud with a fixed voice and speed. It is safe to
// share; cancel-on-replace lives in the Speaker of each session.
type Synthesizer struct {
	client  *openai.Client
	model   string
	voice   string
	speed   float64
	metrics *metrics.PrometheusExporter
}

// NewSynthesizer creates a synthesizer. Without an API key it is unavailable.
func NewSynthesizer(cfg Config, exporter *metrics.PrometheusExporter) *Synthesizer {
	s := &Synthesizer{
		client:  newClient(cfg),
		model:   cfg.TTSModel,
		voice:   cfg.Voice,
		speed:   cfg.Speed,
		metrics: exporter,
	}
	if s.model == "" {
		s.model = string(openai.TTSModel1)
	}
	if s.voice == "" {
		s.voice = string(openai.VoiceNova)
	}
	if s.speed <= 0 {
		s.speed = 1.0
	}
	return s
}

// Available reports whether synthesis can be offered.
func (s *Synthesizer) Available() bool {
	return s != nil && s.client != nil
}

// Synthesize returns MP3 audio for text.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          s.speed,
	})
	if err != nil {
		s.metrics.RecordSpeech("tts", false)
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	s.metrics.RecordSpeech("tts", err == nil)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	return audio, nil
}

// NewSpeaker returns a speaker for one session.
func (s *Synthesizer) NewSpeaker() *Speaker {
	return &Speaker{synth: s}
}

// Speaker is the voice of one session. Starting a new utterance cancels the
// one in flight for the same speaker only.
type Speaker struct {
	synth *Synthesizer

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

// Available reports whether synthesis can be offered.
func (p *Speaker) Available() bool {
	return p != nil && p.synth.Available()
}

// Speak returns MP3 audio for text, replacing any utterance in flight.
func (p *Speaker) Speak(ctx context.Context, text string) ([]byte, error) {
	if !p.Available() {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.seq++
	seq := p.seq
	p.mu.Unlock()
	defer p.release(seq, cancel)

	return p.synth.Synthesize(ctx, text)
}

// Cancel aborts the utterance in flight, if any.
func (p *Speaker) Cancel() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Speaker) release(seq uint64, cancel context.CancelFunc) {
	cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	// A newer Speak may already own the slot.
	if p.seq == seq {
		p.cancel = nil
	}
}
