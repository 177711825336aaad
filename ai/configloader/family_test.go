package configloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/angelo/store"
)

const sampleFamily = `
members:
  - id: p1
    first_name: Иван
    middle_name: Петрович
    last_name: Орлов
    nickname: Дед Ваня
    birth_date: 1950-05-01
    city: Казань
    generation: 1
    relations:
      - member_id: p2
        type: spouse
  - id: p2
    first_name: Анна
    last_name: Орлова
    active: false
    generation: 1
    relations:
      - member_id: p1
        type: spouse
`

func writeFile(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "family.yaml"), []byte(content), 0o600))
	return dir, "family.yaml"
}

func TestLoadFamily(t *testing.T) {
	dir, name := writeFile(t, sampleFamily)

	family, err := NewLoader(dir).LoadFamily(name)
	require.NoError(t, err)
	require.Equal(t, 2, family.Len())

	ivan, ok := family.GetMember("p1")
	require.True(t, ok)
	assert.Equal(t, "Иван Орлов", ivan.FullName())
	assert.Equal(t, "Дед Ваня", ivan.Nickname)
	assert.Equal(t, 1950, ivan.BirthDate.Year())
	assert.True(t, ivan.IsActive)
	assert.Equal(t, []store.Relation{{MemberID: "p2", Type: store.RelationSpouse}}, ivan.Relations)

	anna, ok := family.GetMember("p2")
	require.True(t, ok)
	assert.False(t, anna.IsActive)
}

func TestLoadFamily_AbsolutePath(t *testing.T) {
	dir, name := writeFile(t, sampleFamily)

	family, err := NewLoader("does-not-matter").LoadFamily(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, 2, family.Len())
}

func TestLoadFamily_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"empty", "members: []"},
		{"missing id", "members:\n  - first_name: Иван\n"},
		{"missing first name", "members:\n  - id: p1\n"},
		{"duplicate id", "members:\n  - id: p1\n    first_name: А\n  - id: p1\n    first_name: Б\n"},
		{"dangling relation", "members:\n  - id: p1\n    first_name: А\n    relations:\n      - member_id: p9\n        type: child\n"},
		{"not yaml", "members: [oops"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir, name := writeFile(t, tc.content)
			_, err := NewLoader(dir).LoadFamily(name)
			assert.Error(t, err)
		})
	}

	_, err := NewLoader(t.TempDir()).LoadFamily("missing.yaml")
	assert.Error(t, err)
}
