package routing

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/hrygo/angelo/store"
)

// Go's \b is ASCII-only, so every word boundary below is spelled (?:^|\s) / (?:\s|$).
// Patterns run on normalized text: lower case, ё folded to е, no punctuation.
var (
	contextRefRegex = regexp.MustCompile(
		`(?:^|\s)(?:про|о|об|обо)\s+(?:него|нее|ней|нем)(?:\s|$)` +
			`|(?:^|\s)(?:его|ее)\s+(?:фото|фотографи|снимк|истори|биографи|страниц|профил)` +
			`|(?:^|\s)(?:покажи|открой)\s+(?:его|ее)(?:\s|$)` +
			`|(?:^|\s)кто\s+(?:он|она)(?:\s|$)` +
			`|(?:^|\s)(?:расскажи|расскажите)\s+(?:еще|больше|подробнее)` +
			`|(?:^|\s)подробнее(?:\s|$)`)

	greetingRegex = regexp.MustCompile(
		`^(?:привет\S*|здравствуй\S*|приветствую|добрый\s+(?:день|вечер)|доброе\s+утро|доброй\s+ночи|хай|салют|hello|hi)(?:\s|$)`)

	treePhraseRegex = regexp.MustCompile(
		`(?:^|\s)(?:покажи|показать|открой|открыть|отобрази|хочу\s+(?:увидеть|посмотреть)|где|давай)\s+(?:\S+\s+)?(?:дерев|древ|родослов)` +
			`|^(?:наше\s+|мое\s+|семейное\s+|родовое\s+)?(?:дерево|древо)(?:\s|$)` +
			`|(?:семейное|родовое|генеалогическое)\s+(?:дерево|древо)` +
			`|родословн|генеалог`)

	treeWordRegex = regexp.MustCompile(`дерев|древ|родослов|генеалог`)

	personPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|\s)(?:расскажи|расскажите|поведай)(?:\s+(?:мне|нам))?(?:\s+(?:про|о|об|обо))?\s+(.+)$`),
		regexp.MustCompile(`(?:^|\s)кто\s+(?:такой|такая|такие|это)\s+(.+)$`),
		regexp.MustCompile(`(?:^|\s)что\s+(?:ты\s+)?(?:знаешь|известно)\s+(?:про|о|об|обо)\s+(.+)$`),
		regexp.MustCompile(`(?:^|\s)(?:покажи|показать|открой|открыть|найди|найти)(?:\s+(?:мне|нам))?\s+(.+)$`),
		regexp.MustCompile(`^(?:про|о|об|обо)\s+(.+)$`),
	}

	scrollUpRegex   = regexp.MustCompile(`вверх|наверх`)
	themeDarkRegex  = regexp.MustCompile(`темн|ночн`)
	themeLightRegex = regexp.MustCompile(`светл|дневн`)
)

// keywordRule is one entry of the ordered keyword table.
type keywordRule struct {
	name    string
	pattern *regexp.Regexp
	build   func(text string) Intent
}

func fixed(i Intent) func(string) Intent {
	return func(string) Intent { return i }
}

// keywordRules are checked in order; the first match wins.
var keywordRules = []keywordRule{
	{
		name:    "feed",
		pattern: regexp.MustCompile(`(?:^|\s)лент[аыуе]|новост|что\s+нового`),
		build:   fixed(ShowFeed{}),
	},
	{
		name:    "media",
		pattern: regexp.MustCompile(`фото|фотограф|снимк|галере|альбом|видео|картинк`),
		build:   fixed(SearchMedia{}),
	},
	{
		name: "create",
		pattern: regexp.MustCompile(
			`(?:создай|создать|сделай|напиши|написать|добавь|добавить|опубликуй|опубликовать)\s+(?:\S+\s+)?(?:публикац|пост|запис|истори)` +
				`|^(?:опубликуй|опубликовать)(?:\s|$)`),
		build: fixed(CreatePublication{}),
	},
	{
		name:    "help",
		pattern: regexp.MustCompile(`помощ|помоги|что\s+ты\s+умеешь|что\s+умеешь|какие\s+команды|(?:^|\s)команды|справк|^help$`),
		build:   fixed(Help{}),
	},
	{
		name: "variants",
		pattern: regexp.MustCompile(
			`(?:смени|сменить|переключи|переключить|поменяй|другой|другую|другие|покажи)\s+(?:\S+\s+)?(?:вариант|дизайн|интерфейс)`),
		build: fixed(NavigateTo{Page: PageVariants}),
	},
	{
		name:    "invite",
		pattern: regexp.MustCompile(`пригла[сш]|инвайт`),
		build:   fixed(NavigateTo{Page: PageInvite}),
	},
	{
		name:    "settings",
		pattern: regexp.MustCompile(`настройк`),
		build:   fixed(NavigateTo{Page: PageSettings}),
	},
	{
		name:    "store",
		pattern: regexp.MustCompile(`магазин|подписк|тариф|премиум`),
		build:   fixed(NavigateTo{Page: PageStore}),
	},
	{
		name:    "profile",
		pattern: regexp.MustCompile(`профил`),
		build:   fixed(NavigateTo{Page: PageProfile}),
	},
	{
		name:    "family",
		pattern: regexp.MustCompile(`(?:^|\s)семь[яюие](?:\s|$)|родственник|члены\s+семьи`),
		build:   fixed(NavigateTo{Page: PageFamily}),
	},
	{
		name:    "home",
		pattern: regexp.MustCompile(`главн|домой`),
		build:   fixed(NavigateTo{Page: PageFeed}),
	},
	{
		name:    "back",
		pattern: regexp.MustCompile(`назад|вернись|вернуться|обратно`),
		build:   fixed(GoBack{}),
	},
	{
		name:    "scroll",
		pattern: regexp.MustCompile(`прокрут|пролистай|листай|промотай|скролл|^(?:вверх|наверх|вниз)$`),
		build: func(text string) Intent {
			if scrollUpRegex.MatchString(text) {
				return Scroll{Direction: DirectionUp}
			}
			return Scroll{Direction: DirectionDown}
		},
	},
	{
		name:    "theme",
		pattern: regexp.MustCompile(`(?:^|\s)(?:тем[ауые]|режим|оформлени)`),
		build: func(text string) Intent {
			switch {
			case themeDarkRegex.MatchString(text):
				return ToggleTheme{Theme: ThemeDark}
			case themeLightRegex.MatchString(text):
				return ToggleTheme{Theme: ThemeLight}
			}
			return ToggleTheme{Theme: ThemeToggle}
		},
	},
}

// Router implements deterministic intent routing over the family directory.
// It holds no mutable state and is safe for concurrent use.
type Router struct {
	directory *store.Directory
	resolver  *PersonResolver
}

// NewRouter creates a router bound to the given directory.
func NewRouter(directory *store.Directory) *Router {
	return &Router{
		directory: directory,
		resolver:  NewPersonResolver(directory),
	}
}

// Resolver returns the person resolver the router delegates to.
func (r *Router) Resolver() *PersonResolver {
	return r.resolver
}

// RouteIntent maps an utterance to exactly one intent. selectedContext is the
// id of the member last referred to, or "" when none. It never fails; text
// that matches nothing yields Unknown.
func (r *Router) RouteIntent(text, selectedContext string) Intent {
	intent, rule := r.Match(text, selectedContext)
	slog.Debug("intent routed",
		slog.String("rule", rule),
		slog.String("intent", string(intent.Kind())),
		slog.String("entity", intent.Entity()),
	)
	return intent
}

// Match is RouteIntent plus the name of the rule that fired.
func (r *Router) Match(text, selectedContext string) (Intent, string) {
	input := normalize(text)
	if input == "" {
		return Unknown{}, "empty"
	}

	// 1. Pronoun reference to the selected member.
	if selectedContext != "" && r.directory.HasMember(selectedContext) && contextRefRegex.MatchString(input) {
		return ShowPerson{MemberID: selectedContext}, "context"
	}

	// 2. Greeting.
	if greetingRegex.MatchString(input) {
		return Greeting{}, "greeting"
	}

	// 3. Tree phrases, before any person lookup.
	if treePhraseRegex.MatchString(input) {
		return ShowTree{}, "tree"
	}

	// 4. "расскажи про X" / "кто такой X" / "покажи X".
	if query, ok := extractPersonQuery(input); ok {
		if treeWordRegex.MatchString(query) {
			return ShowTree{}, "tree_guard"
		}
		if id, found := r.resolver.ResolvePersonQuery(query); found {
			return ShowPerson{MemberID: id}, "person"
		}
	}

	// 5. Keyword table.
	for _, rule := range keywordRules {
		if rule.pattern.MatchString(input) {
			return rule.build(input), rule.name
		}
	}

	return Unknown{}, "unknown"
}

// extractPersonQuery returns the phrase after the first matching person pattern.
func extractPersonQuery(input string) (string, bool) {
	for _, p := range personPatterns {
		if m := p.FindStringSubmatch(input); m != nil {
			if q := strings.TrimSpace(m[1]); q != "" {
				return q, true
			}
		}
	}
	return "", false
}

// RouteIntent routes text against the built-in family directory.
func RouteIntent(text, selectedContext string) Intent {
	return defaultRouter.RouteIntent(text, selectedContext)
}

var defaultRouter = NewRouter(store.FixtureDirectory())
