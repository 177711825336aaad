package agent

import (
	"fmt"
	"strings"
)

const basePrompt = `Ты Анжело, голосовой помощник семейного альбома. Отвечай по-русски, коротко и тепло.
На каждую просьбу пользователя вызывай ровно один подходящий инструмент интерфейса.
Людей открывай только через show_person, указывая member_id из списка ниже.
Если просьба непонятна, не вызывай инструментов и ответь одной фразой.`

const agentPrompt = `Ты можешь вызывать инструменты несколько раз подряд. Результат каждого вызова придёт сообщением вида "[Result from имя]: ...".
Когда всё сделано, ответь пользователю одной-двумя фразами без вызова инструментов.`

// systemPrompt renders the fixed prompt plus the directory and the selected member.
func (b *Bridge) systemPrompt(selectedContext string, agentMode bool) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	if agentMode {
		sb.WriteString("\n\n")
		sb.WriteString(agentPrompt)
	}
	sb.WriteString("\n\nЧлены семьи:\n")
	sb.WriteString(describeMembers(b.directory, 0))
	if m, ok := b.directory.GetMember(selectedContext); ok {
		fmt.Fprintf(&sb, "\n\nСейчас в разговоре: %s (%s). Местоимения \"он\", \"она\", \"его\", \"её\" относятся к нему.", m.FullName(), m.ID)
	}
	return sb.String()
}
