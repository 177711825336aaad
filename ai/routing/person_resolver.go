package routing

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hrygo/angelo/store"
)

var (
	diminutiveSashaRegex = regexp.MustCompile(`(?:^|\s)саш[аеиуйя]?(?:\s|$)|(?:^|\s)сашеньк`)
	grandfatherRegex     = regexp.MustCompile(`дед|дедушк|дедул`)
	grandmotherRegex     = regexp.MustCompile(`бабушк|бабул|(?:^|\s)баб[ауые]?(?:\s|$)`)
)

// fillerWords are dropped from a person query before matching.
var fillerWords = map[string]struct{}{
	"пожалуйста": {}, "плиз": {}, "мне": {}, "нам": {},
	"про": {}, "о": {}, "об": {}, "обо": {},
	"наш": {}, "наша": {}, "нашего": {}, "нашу": {}, "нашей": {},
	"мой": {}, "моя": {}, "моего": {}, "мою": {}, "моей": {},
	"свою": {}, "своего": {},
	"фото": {}, "фотографии": {}, "фотку": {},
	"профиль": {}, "страницу": {}, "карточку": {}, "анкету": {},
	"информацию": {}, "подробно": {}, "побольше": {},
}

// kinshipWords lead a query as an honorific ("дядю Сашу") and are dropped
// while a name follows. The grandparent fallback still sees the raw query.
var kinshipWords = map[string]struct{}{
	"дядя": {}, "дядю": {}, "дяди": {}, "дяде": {},
	"тетя": {}, "тетю": {}, "тети": {}, "тете": {},
	"бабушка": {}, "бабушку": {}, "бабушки": {}, "бабушке": {},
	"дедушка": {}, "дедушку": {}, "дедушки": {}, "дедушке": {},
	"брат": {}, "брата": {}, "брату": {},
	"сестра": {}, "сестру": {}, "сестры": {}, "сестре": {},
	"внук": {}, "внука": {}, "внучка": {}, "внучку": {}, "внучки": {},
	"сын": {}, "сына": {}, "дочь": {}, "дочку": {},
	"мама": {}, "маму": {}, "папа": {}, "папу": {},
	"племянник": {}, "племянника": {}, "племянница": {}, "племянницу": {},
}

// PersonResolver maps a free-text query to a member id.
type PersonResolver struct {
	directory *store.Directory
}

// NewPersonResolver creates a resolver over the directory.
func NewPersonResolver(directory *store.Directory) *PersonResolver {
	return &PersonResolver{directory: directory}
}

// ResolvePersonQuery returns the id of the member the query names, or false.
// The result is deterministic for a given directory and query.
func (p *PersonResolver) ResolvePersonQuery(query string) (string, bool) {
	raw := normalize(query)
	words := queryWords(raw)
	if len(words) == 0 {
		return "", false
	}
	q := strings.Join(words, " ")

	if id, ok := p.matchNickname(q); ok {
		return id, true
	}
	if id, ok := p.matchFirstName(q, words); ok {
		return id, true
	}

	candidates := p.matchStem(words[0])
	switch len(candidates) {
	case 0:
		return p.matchFallback(raw)
	case 1:
		return candidates[0].ID, true
	}
	return disambiguate(candidates, words).ID, true
}

// queryWords strips fillers and leading kinship honorifics.
func queryWords(q string) []string {
	fields := strings.Fields(q)
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if _, filler := fillerWords[w]; !filler {
			words = append(words, w)
		}
	}
	for len(words) > 1 {
		if _, kin := kinshipWords[words[0]]; !kin {
			break
		}
		words = words[1:]
	}
	return words
}

func (p *PersonResolver) matchNickname(q string) (string, bool) {
	var id string
	p.directory.Each(func(m *store.FamilyMember) bool {
		nick := normalize(m.Nickname)
		if nick == "" {
			return true
		}
		if strings.Contains(q, nick) || (utf8.RuneCountInString(q) >= 3 && strings.Contains(nick, q)) {
			id = m.ID
			return false
		}
		return true
	})
	return id, id != ""
}

func (p *PersonResolver) matchFirstName(q string, words []string) (string, bool) {
	var hits []*store.FamilyMember
	p.directory.Each(func(m *store.FamilyMember) bool {
		name := normalize(m.FirstName)
		if name != "" && strings.Contains(q, name) {
			hits = append(hits, m)
		}
		return true
	})
	switch len(hits) {
	case 0:
		return "", false
	case 1:
		return hits[0].ID, true
	}
	return disambiguate(hits, words).ID, true
}

// firstNameStem is four runes for names longer than four, else three,
// so "Анна" and "Андрей" get distinct stems.
func firstNameStem(name string) string {
	if utf8.RuneCountInString(name) > 4 {
		return runePrefix(name, 4)
	}
	return runePrefix(name, 3)
}

func (p *PersonResolver) matchStem(word string) []*store.FamilyMember {
	var out []*store.FamilyMember
	p.directory.Each(func(m *store.FamilyMember) bool {
		stem := firstNameStem(normalize(m.FirstName))
		if stem == "" {
			return true
		}
		if strings.HasPrefix(word, stem) || strings.Contains(word, stem) ||
			(utf8.RuneCountInString(word) >= 3 && strings.HasPrefix(stem, word)) {
			out = append(out, m)
		}
		return true
	})
	return out
}

// disambiguate picks the candidate whose last-name stem matches the second
// query word, falling back to the first candidate in directory order.
func disambiguate(candidates []*store.FamilyMember, words []string) *store.FamilyMember {
	if len(words) < 2 {
		return candidates[0]
	}
	second := runePrefix(words[1], 5)
	for _, c := range candidates {
		stem := runePrefix(normalize(c.LastName), 5)
		if stem == "" {
			continue
		}
		if strings.HasPrefix(second, stem) || strings.HasPrefix(stem, second) {
			return c
		}
	}
	return candidates[0]
}

func (p *PersonResolver) matchFallback(raw string) (string, bool) {
	switch {
	case diminutiveSashaRegex.MatchString(raw):
		return p.findByFirstName("александр", 0)
	case grandfatherRegex.MatchString(raw):
		return p.findByFirstName("николай", 1)
	case grandmotherRegex.MatchString(raw):
		return p.findByFirstName("мария", 1)
	}
	return "", false
}

// findByFirstName returns the first member with the given normalized first
// name, restricted to generation when it is non-zero.
func (p *PersonResolver) findByFirstName(name string, generation int) (string, bool) {
	var id string
	p.directory.Each(func(m *store.FamilyMember) bool {
		if normalize(m.FirstName) == name && (generation == 0 || m.Generation == generation) {
			id = m.ID
			return false
		}
		return true
	})
	return id, id != ""
}

// ResolvePersonQuery resolves against the built-in family directory.
func ResolvePersonQuery(query string) (string, bool) {
	return defaultRouter.resolver.ResolvePersonQuery(query)
}
