package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hrygo/angelo/ai/conversation"
	"github.com/hrygo/angelo/store"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		// Logs would tear the terminal UI; keep only errors.
		p.LogLevel = "error"
		setupLogger(p)

		directory, err := loadDirectory(p)
		if err != nil {
			return err
		}
		assistant, err := newAssistant(p, directory)
		if err != nil {
			return err
		}
		defer assistant.Close()

		effects := conversation.LogEffectHandler{Channel: "terminal"}
		model := newChatModel(cmd.Context(), assistant.NewController(effects))
		_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	},
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	aiStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// turnMsg carries a finished turn back into the update loop.
type turnMsg struct {
	result conversation.TurnResult
}

type chatModel struct {
	ctx        context.Context
	controller *conversation.Controller
	textinput  textinput.Model
	spinner    spinner.Model
	width      int
	isLoading  bool
	lastEffect string
}

func newChatModel(ctx context.Context, controller *conversation.Controller) chatModel {
	if ctx == nil {
		ctx = context.Background()
	}
	ti := textinput.New()
	ti.Placeholder = "Спросите про семью... (Enter отправить, Ctrl+C выход)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 1024
	ti.Width = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return chatModel{
		ctx:        ctx,
		controller: controller,
		textinput:  ti,
		spinner:    sp,
		width:      80,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.isLoading {
				return m, nil
			}
			text := strings.TrimSpace(m.textinput.Value())
			if text == "" {
				return m, nil
			}
			m.textinput.Reset()
			m.isLoading = true
			return m, tea.Batch(m.spinner.Tick, m.runTurn(text))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.textinput.Width = msg.Width - 4
		return m, nil

	case turnMsg:
		m.isLoading = false
		m.lastEffect = describeEffects(msg.result.Effects)
		return m, nil

	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textinput, cmd = m.textinput.Update(msg)
	return m, cmd
}

func (m chatModel) runTurn(text string) tea.Cmd {
	return func() tea.Msg {
		return turnMsg{result: m.controller.HandleTurn(m.ctx, text)}
	}
}

func (m chatModel) View() string {
	snapshot := m.controller.State().Snapshot()

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Angelo"))
	sb.WriteString("\n\n")

	messages := snapshot.Messages
	if len(messages) > 12 {
		messages = messages[len(messages)-12:]
	}
	for _, msg := range messages {
		if msg.Role == conversation.RoleUser {
			sb.WriteString(userStyle.Render("Вы: " + msg.Text))
		} else {
			sb.WriteString(aiStyle.Render("Анжело: " + msg.Text))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if m.isLoading || snapshot.IsThinking {
		sb.WriteString(m.spinner.View() + " думаю...\n\n")
	}

	sb.WriteString(panelStyle.Width(max(m.width-4, 20)).Render(renderView(snapshot)))
	sb.WriteString("\n")
	if m.lastEffect != "" {
		sb.WriteString(hintStyle.Render(m.lastEffect))
		sb.WriteString("\n")
	}
	sb.WriteString(m.textinput.View())
	return sb.String()
}

// renderView draws the current screen as text.
func renderView(snapshot conversation.Snapshot) string {
	view := snapshot.View
	switch view.Type {
	case conversation.ViewPerson:
		m, ok := view.Payload.(*store.FamilyMember)
		if !ok || m == nil {
			return "Карточка"
		}
		lines := []string{"Карточка: " + m.FullName()}
		if m.Nickname != "" {
			lines = append(lines, "В семье: «"+m.Nickname+"»")
		}
		if !m.BirthDate.IsZero() {
			lines = append(lines, fmt.Sprintf("Год рождения: %d", m.BirthDate.Year()))
		}
		if m.City != "" {
			lines = append(lines, "Город: "+m.City)
		}
		return strings.Join(lines, "\n")
	case conversation.ViewTree:
		return "Семейное дерево"
	case conversation.ViewFeed:
		return "Лента"
	case conversation.ViewGallery:
		return "Фотоальбом"
	case conversation.ViewStory:
		return "Новая история"
	default:
		return hintStyle.Render("Экран пуст")
	}
}

func describeEffects(effects []conversation.Effect) string {
	parts := make([]string, 0, len(effects))
	for _, e := range effects {
		switch e.Kind {
		case conversation.EffectNavigate:
			parts = append(parts, "→ "+e.Route)
		case conversation.EffectGoBack:
			parts = append(parts, "← назад")
		case conversation.EffectScroll:
			parts = append(parts, "↕ "+string(e.Direction))
		case conversation.EffectTheme:
			parts = append(parts, "◐ "+string(e.Theme))
		}
	}
	return strings.Join(parts, "  ")
}
