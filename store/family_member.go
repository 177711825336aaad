package store

import (
	"slices"
	"sort"
	"time"
)

// RelationType is the kind of link between two family members.
type RelationType string

const (
	RelationParent      RelationType = "parent"
	RelationChild       RelationType = "child"
	RelationSpouse      RelationType = "spouse"
	RelationSibling     RelationType = "sibling"
	RelationGrandparent RelationType = "grandparent"
	RelationGrandchild  RelationType = "grandchild"
	RelationUncle       RelationType = "uncle"
	RelationAunt        RelationType = "aunt"
	RelationCousin      RelationType = "cousin"
	RelationOther       RelationType = "other"
)

// Relation points from one member to another.
type Relation struct {
	MemberID string       `json:"member_id"`
	Type     RelationType `json:"type"`
}

// FamilyMember is a static directory entry.
type FamilyMember struct {
	ID         string     `json:"id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	MiddleName string     `json:"middle_name"`
	Nickname   string     `json:"nickname,omitempty"`
	BirthDate  time.Time  `json:"birth_date"`
	City       string     `json:"city,omitempty"`
	Bio        string     `json:"bio"`
	IsActive   bool       `json:"is_active"`
	Generation int        `json:"generation"`
	Relations  []Relation `json:"relations"`
}

// FullName returns "First Last".
func (m *FamilyMember) FullName() string {
	return m.FirstName + " " + m.LastName
}

// clone returns a deep copy so callers never share the fixture's slices.
func (m *FamilyMember) clone() *FamilyMember {
	c := *m
	c.Relations = slices.Clone(m.Relations)
	return &c
}

// Directory is the immutable family member directory.
// It is safe for concurrent use because nothing mutates it after construction.
type Directory struct {
	members []*FamilyMember
	byID    map[string]*FamilyMember
}

// NewDirectory builds a directory from members, preserving their order.
// Members with duplicate ids keep the first occurrence.
func NewDirectory(members []*FamilyMember) *Directory {
	d := &Directory{
		members: make([]*FamilyMember, 0, len(members)),
		byID:    make(map[string]*FamilyMember, len(members)),
	}
	for _, m := range members {
		if m == nil || m.ID == "" {
			continue
		}
		if _, dup := d.byID[m.ID]; dup {
			continue
		}
		c := m.clone()
		d.members = append(d.members, c)
		d.byID[c.ID] = c
	}
	return d
}

// Len returns the number of members.
func (d *Directory) Len() int {
	return len(d.members)
}

// ListMembers returns copies of all members in directory order.
func (d *Directory) ListMembers() []*FamilyMember {
	out := make([]*FamilyMember, len(d.members))
	for i, m := range d.members {
		out[i] = m.clone()
	}
	return out
}

// GetMember returns a copy of the member with the given id.
func (d *Directory) GetMember(id string) (*FamilyMember, bool) {
	m, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return m.clone(), true
}

// HasMember reports whether id is present in the directory.
func (d *Directory) HasMember(id string) bool {
	_, ok := d.byID[id]
	return ok
}

// Each calls fn for every member in directory order until fn returns false.
// The member passed to fn must not be modified or retained.
func (d *Directory) Each(fn func(m *FamilyMember) bool) {
	for _, m := range d.members {
		if !fn(m) {
			return
		}
	}
}

// MembersByGeneration groups member copies by generation, eldest first.
func (d *Directory) MembersByGeneration() [][]*FamilyMember {
	groups := make(map[int][]*FamilyMember)
	for _, m := range d.members {
		groups[m.Generation] = append(groups[m.Generation], m.clone())
	}
	gens := make([]int, 0, len(groups))
	for g := range groups {
		gens = append(gens, g)
	}
	sort.Ints(gens)
	out := make([][]*FamilyMember, 0, len(gens))
	for _, g := range gens {
		out = append(out, groups[g])
	}
	return out
}
