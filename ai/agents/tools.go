// Package agent bridges the assistant to a remote model through function calling.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/angelo/ai/core/llm"
	"github.com/hrygo/angelo/ai/routing"
	"github.com/hrygo/angelo/store"
)

// ToolResult is what a tool hands back to the loop.
// Intent is nil for lookup tools that do not drive the UI.
type ToolResult struct {
	Text   string
	Intent routing.Intent
}

// Tool is a single function exposed to the model.
type Tool struct {
	name        string
	description string
	params      *llm.JSONSchema
	execute     func(ctx context.Context, args map[string]any) (ToolResult, error)
}

// Name returns the tool name.
func (t *Tool) Name() string {
	return t.name
}

// Description returns the tool description.
func (t *Tool) Description() string {
	return t.description
}

// Descriptor returns the tool in the shape the LLM service expects.
func (t *Tool) Descriptor() llm.ToolDescriptor {
	return llm.ToolDescriptor{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.params.String(),
	}
}

// Run executes the tool. Malformed argument JSON is treated as no arguments.
func (t *Tool) Run(ctx context.Context, rawArgs string) (ToolResult, error) {
	return t.execute(ctx, parseArguments(rawArgs))
}

func parseArguments(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

func argString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%g", v)
	}
	return ""
}

// Toolset is the fixed tool manifest: one tool per intent plus a directory lookup.
type Toolset struct {
	tools  []*Tool
	byName map[string]*Tool
}

// Get returns the tool with the given name.
func (s *Toolset) Get(name string) (*Tool, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Tools returns the tools in manifest order.
func (s *Toolset) Tools() []*Tool {
	return s.tools
}

// Descriptors returns the manifest for the LLM request.
func (s *Toolset) Descriptors() []llm.ToolDescriptor {
	out := make([]llm.ToolDescriptor, len(s.tools))
	for i, t := range s.tools {
		out[i] = t.Descriptor()
	}
	return out
}

// fixedTool returns a parameterless tool that always yields intent.
func fixedTool(name, description, text string, intent routing.Intent) *Tool {
	return &Tool{
		name:        name,
		description: description,
		params:      llm.ObjectSchema(nil),
		execute: func(context.Context, map[string]any) (ToolResult, error) {
			return ToolResult{Text: text, Intent: intent}, nil
		},
	}
}

// NewToolset builds the manifest over the directory.
func NewToolset(directory *store.Directory, resolver *routing.PersonResolver) *Toolset {
	tools := []*Tool{
		fixedTool(string(routing.KindShowTree),
			"Показать семейное дерево. Используй, когда просят дерево, родословную или всю семью схемой.",
			"Открыто семейное дерево.", routing.ShowTree{}),
		showPersonTool(directory, resolver),
		fixedTool(string(routing.KindShowFeed),
			"Показать ленту семейных публикаций и новостей.",
			"Открыта лента публикаций.", routing.ShowFeed{}),
		searchMediaTool(),
		fixedTool(string(routing.KindCreatePublication),
			"Начать создание новой публикации или истории.",
			"Открыт редактор публикации.", routing.CreatePublication{}),
		navigateTool(),
		fixedTool(string(routing.KindGoBack),
			"Вернуться на предыдущий экран.",
			"Возврат на предыдущий экран.", routing.GoBack{}),
		scrollTool(),
		themeTool(),
		fixedTool(string(routing.KindGreeting),
			"Ответить на приветствие.",
			"Пользователь поздоровался.", routing.Greeting{}),
		fixedTool(string(routing.KindHelp),
			"Рассказать, что умеет ассистент.",
			"Показана справка.", routing.Help{}),
		familyMembersTool(directory),
	}

	s := &Toolset{tools: tools, byName: make(map[string]*Tool, len(tools))}
	for _, t := range tools {
		s.byName[t.name] = t
	}
	return s
}

func showPersonTool(directory *store.Directory, resolver *routing.PersonResolver) *Tool {
	return &Tool{
		name:        string(routing.KindShowPerson),
		description: "Открыть карточку члена семьи. Передай member_id из get_family_members или имя в name.",
		params: llm.ObjectSchema(map[string]*llm.JSONSchema{
			"member_id": llm.StringProperty("Идентификатор, например m4"),
			"name":      llm.StringProperty("Имя или как человека называют в семье, если id неизвестен"),
		}),
		execute: func(_ context.Context, args map[string]any) (ToolResult, error) {
			id := argString(args, "member_id")
			if !directory.HasMember(id) {
				query := argString(args, "name")
				if query == "" {
					query = id
				}
				resolved, ok := resolver.ResolvePersonQuery(query)
				if !ok {
					return ToolResult{}, fmt.Errorf("member %q not found", query)
				}
				id = resolved
			}
			m, _ := directory.GetMember(id)
			return ToolResult{
				Text:   fmt.Sprintf("Открыта карточка: %s (%s), %d г. р.", m.FullName(), m.ID, m.BirthDate.Year()),
				Intent: routing.ShowPerson{MemberID: m.ID},
			}, nil
		},
	}
}

func searchMediaTool() *Tool {
	return &Tool{
		name:        string(routing.KindSearchMedia),
		description: "Открыть семейную галерею фото и видео.",
		params: llm.ObjectSchema(map[string]*llm.JSONSchema{
			"query": llm.StringProperty("Что искать, необязательно"),
		}),
		execute: func(_ context.Context, args map[string]any) (ToolResult, error) {
			text := "Открыта галерея."
			if q := argString(args, "query"); q != "" {
				text = fmt.Sprintf("Открыта галерея, запрос: %s.", q)
			}
			return ToolResult{Text: text, Intent: routing.SearchMedia{}}, nil
		},
	}
}

func navigateTool() *Tool {
	pages := []string{
		string(routing.PageSettings), string(routing.PageStore), string(routing.PageProfile),
		string(routing.PageFamily), string(routing.PageFeed), string(routing.PageInvite),
		string(routing.PageVariants),
	}
	return &Tool{
		name:        string(routing.KindNavigateTo),
		description: "Перейти на страницу приложения.",
		params: llm.ObjectSchema(map[string]*llm.JSONSchema{
			"page": llm.StringProperty("Страница", pages...),
		}, "page"),
		execute: func(_ context.Context, args map[string]any) (ToolResult, error) {
			intent, err := routing.ParseIntent(routing.KindNavigateTo, argString(args, "page"))
			if err != nil {
				return ToolResult{}, err
			}
			return ToolResult{Text: "Переход на страницу " + intent.Entity() + ".", Intent: intent}, nil
		},
	}
}

func scrollTool() *Tool {
	return &Tool{
		name:        string(routing.KindScroll),
		description: "Прокрутить текущую страницу.",
		params: llm.ObjectSchema(map[string]*llm.JSONSchema{
			"direction": llm.StringProperty("Направление", string(routing.DirectionUp), string(routing.DirectionDown)),
		}),
		execute: func(_ context.Context, args map[string]any) (ToolResult, error) {
			intent, err := routing.ParseIntent(routing.KindScroll, argString(args, "direction"))
			if err != nil {
				return ToolResult{}, err
			}
			return ToolResult{Text: "Прокрутка: " + intent.Entity() + ".", Intent: intent}, nil
		},
	}
}

func themeTool() *Tool {
	return &Tool{
		name:        string(routing.KindToggleTheme),
		description: "Сменить тему оформления.",
		params: llm.ObjectSchema(map[string]*llm.JSONSchema{
			"theme": llm.StringProperty("Тема", string(routing.ThemeDark), string(routing.ThemeLight), string(routing.ThemeToggle)),
		}),
		execute: func(_ context.Context, args map[string]any) (ToolResult, error) {
			intent, err := routing.ParseIntent(routing.KindToggleTheme, argString(args, "theme"))
			if err != nil {
				return ToolResult{}, err
			}
			return ToolResult{Text: "Тема: " + intent.Entity() + ".", Intent: intent}, nil
		},
	}
}

func familyMembersTool(directory *store.Directory) *Tool {
	return &Tool{
		name:        "get_family_members",
		description: "Получить список членов семьи с идентификаторами. Ничего не меняет на экране.",
		params: llm.ObjectSchema(map[string]*llm.JSONSchema{
			"generation": {Type: "integer", Description: "Поколение, 1 - старшее. Необязательно"},
		}),
		execute: func(_ context.Context, args map[string]any) (ToolResult, error) {
			gen, _ := args["generation"].(float64)
			return ToolResult{Text: describeMembers(directory, int(gen))}, nil
		},
	}
}

// describeMembers renders one line per member, filtered to generation when non-zero.
func describeMembers(directory *store.Directory, generation int) string {
	var b strings.Builder
	directory.Each(func(m *store.FamilyMember) bool {
		if generation != 0 && m.Generation != generation {
			return true
		}
		fmt.Fprintf(&b, "%s: %s", m.ID, m.FullName())
		if m.Nickname != "" {
			fmt.Fprintf(&b, " (%s)", m.Nickname)
		}
		fmt.Fprintf(&b, ", поколение %d", m.Generation)
		if m.City != "" {
			fmt.Fprintf(&b, ", %s", m.City)
		}
		b.WriteByte('\n')
		return true
	})
	if b.Len() == 0 {
		return "Никого не найдено."
	}
	return strings.TrimRight(b.String(), "\n")
}
