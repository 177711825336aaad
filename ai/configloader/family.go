package configloader

import (
	"errors"
	"fmt"
	"time"

	"github.com/hrygo/angelo/store"
)

// ErrEmptyFamily is returned when a family file lists no usable members.
var ErrEmptyFamily = errors.New("configloader: family file has no members")

type familyFile struct {
	Members []memberEntry `yaml:"members"`
}

type memberEntry struct {
	ID         string          `yaml:"id"`
	FirstName  string          `yaml:"first_name"`
	MiddleName string          `yaml:"middle_name"`
	LastName   string          `yaml:"last_name"`
	Nickname   string          `yaml:"nickname"`
	BirthDate  time.Time       `yaml:"birth_date"`
	City       string          `yaml:"city"`
	Bio        string          `yaml:"bio"`
	Active     *bool           `yaml:"active"`
	Generation int             `yaml:"generation"`
	Relations  []relationEntry `yaml:"relations"`
}

type relationEntry struct {
	MemberID string `yaml:"member_id"`
	Type     string `yaml:"type"`
}

// LoadFamily reads a family directory from YAML. Member order in the file is
// the directory order. Relations to ids missing from the file are rejected.
func (l *Loader) LoadFamily(path string) (*store.Directory, error) {
	var doc familyFile
	if err := l.Load(path, &doc); err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(doc.Members))
	for i, entry := range doc.Members {
		if entry.ID == "" {
			return nil, fmt.Errorf("member %d: id is required", i)
		}
		if entry.FirstName == "" {
			return nil, fmt.Errorf("member %s: first_name is required", entry.ID)
		}
		if _, dup := ids[entry.ID]; dup {
			return nil, fmt.Errorf("member %s: duplicate id", entry.ID)
		}
		ids[entry.ID] = struct{}{}
	}
	if len(ids) == 0 {
		return nil, ErrEmptyFamily
	}

	members := make([]*store.FamilyMember, 0, len(doc.Members))
	for _, entry := range doc.Members {
		m := &store.FamilyMember{
			ID:         entry.ID,
			FirstName:  entry.FirstName,
			MiddleName: entry.MiddleName,
			LastName:   entry.LastName,
			Nickname:   entry.Nickname,
			BirthDate:  entry.BirthDate,
			City:       entry.City,
			Bio:        entry.Bio,
			IsActive:   entry.Active == nil || *entry.Active,
			Generation: entry.Generation,
		}
		for _, r := range entry.Relations {
			if _, ok := ids[r.MemberID]; !ok {
				return nil, fmt.Errorf("member %s: relation to unknown member %s", entry.ID, r.MemberID)
			}
			m.Relations = append(m.Relations, store.Relation{MemberID: r.MemberID, Type: store.RelationType(r.Type)})
		}
		members = append(members, m)
	}
	return store.NewDirectory(members), nil
}
