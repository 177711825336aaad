package conversation

import (
	"fmt"
	"strings"

	"github.com/hrygo/angelo/ai/routing"
	"github.com/hrygo/angelo/store"
)

// WelcomeText opens every session. It is never spoken aloud.
const WelcomeText = "Здравствуйте! Я Анжело, хранитель вашего семейного альбома. " +
	"Спросите, например: «Покажи семейное дерево» или «Расскажи про бабушку»."

const (
	replyGreeting   = "Здравствуйте! Рад вас слышать. Чем могу помочь?"
	replyTree       = "Вот ваше семейное дерево. Выберите родственника, чтобы узнать о нём больше."
	replyFeed       = "Открываю ленту семейных событий."
	replyMedia      = "Вот фотографии и видео из семейного архива."
	replyCreate     = "Давайте сохраним новую историю. Расскажите, о чём она."
	replyHelp       = "Я умею показывать семейное дерево, рассказывать о родственниках, открывать ленту, фотографии и настройки. Попробуйте: «Кто такой дед Коля?»"
	replyBack       = "Возвращаюсь назад."
	replyScrollUp   = "Прокручиваю вверх."
	replyScrollDown = "Прокручиваю вниз."
	replyThemeDark  = "Включаю тёмную тему."
	replyThemeLight = "Включаю светлую тему."
	replyThemeFlip  = "Переключаю тему."
	replyUnknown    = "Простите, я не совсем понял. Скажите, например, «Покажи дерево» или «Расскажи про дедушку»."
)

var pageReplies = map[routing.Page]string{
	routing.PageSettings: "Открываю настройки.",
	routing.PageStore:    "Открываю магазин.",
	routing.PageProfile:  "Открываю ваш профиль.",
	routing.PageFamily:   "Открываю страницу семьи.",
	routing.PageFeed:     "Открываю ленту.",
	routing.PageInvite:   "Открываю приглашения. Позовите родных в альбом!",
	routing.PageVariants: "Показываю варианты оформления.",
}

// replyFor renders the fixed template of an intent.
func replyFor(intent routing.Intent, directory *store.Directory) string {
	switch i := intent.(type) {
	case routing.Greeting:
		return replyGreeting
	case routing.ShowTree:
		return replyTree
	case routing.ShowPerson:
		if m, ok := directory.GetMember(i.MemberID); ok {
			return describePerson(m)
		}
		return replyUnknown
	case routing.ShowFeed:
		return replyFeed
	case routing.SearchMedia:
		return replyMedia
	case routing.CreatePublication:
		return replyCreate
	case routing.Help:
		return replyHelp
	case routing.NavigateTo:
		if r, ok := pageReplies[i.Page]; ok {
			return r
		}
		return replyUnknown
	case routing.GoBack:
		return replyBack
	case routing.Scroll:
		if i.Direction == routing.DirectionUp {
			return replyScrollUp
		}
		return replyScrollDown
	case routing.ToggleTheme:
		switch i.Theme {
		case routing.ThemeDark:
			return replyThemeDark
		case routing.ThemeLight:
			return replyThemeLight
		}
		return replyThemeFlip
	}
	return replyUnknown
}

func describePerson(m *store.FamilyMember) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Это %s %s %s", m.FirstName, m.MiddleName, m.LastName)
	if m.Nickname != "" {
		fmt.Fprintf(&b, ", в семье «%s»", m.Nickname)
	}
	if !m.BirthDate.IsZero() {
		fmt.Fprintf(&b, ", %d года рождения", m.BirthDate.Year())
	}
	b.WriteString(".")
	if m.City != "" {
		fmt.Fprintf(&b, " Город: %s.", m.City)
	}
	if m.Bio != "" {
		b.WriteString(" ")
		b.WriteString(m.Bio)
	}
	return b.String()
}
