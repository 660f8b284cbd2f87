package models

import "encoding/json"

// SelfID is the fixed identifier of the user's own node in every graph.
const SelfID = "me"

// PersonRole distinguishes the user's own node from everyone else.
type PersonRole string

const (
	RoleSelf   PersonRole = "self"
	RolePerson PersonRole = "person"
)

// parseRole maps stored role values, including the legacy "user", to a
// role. Values that are not roles (canvas node types) report false.
func parseRole(s string) (PersonRole, bool) {
	switch s {
	case string(RoleSelf), "user":
		return RoleSelf, true
	case string(RolePerson):
		return RolePerson, true
	}
	return "", false
}

// PersonField identifies one profile question for a person.
type PersonField string

const (
	FieldName         PersonField = "name"
	FieldRelationship PersonField = "relationship"
	FieldCareer       PersonField = "career"
	FieldFamilyOrigin PersonField = "family_origin"
	FieldHobbies      PersonField = "hobbies"
	FieldTherapyFocus PersonField = "therapy_focus"
)

// PersonFields lists the profile fields in display order.
var PersonFields = []PersonField{
	FieldName,
	FieldRelationship,
	FieldCareer,
	FieldFamilyOrigin,
	FieldHobbies,
	FieldTherapyFocus,
}

var personFieldLabels = map[PersonField]string{
	FieldName:         "Name",
	FieldRelationship: "Relationship Label (e.g. Mom, Boss)",
	FieldCareer:       "Career / Goals",
	FieldFamilyOrigin: "Family of Origin Notes",
	FieldHobbies:      "Hobbies / Interests",
	FieldTherapyFocus: "Therapy Focus / Current Issues",
}

// Label returns the human-readable question for the field.
func (f PersonField) Label() string {
	if l, ok := personFieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// Valid reports whether f is one of the known fields.
func (f PersonField) Valid() bool {
	_, ok := personFieldLabels[f]
	return ok
}

// PersonFieldByLabel resolves a display label back to its field.
func PersonFieldByLabel(label string) (PersonField, bool) {
	for f, l := range personFieldLabels {
		if l == label {
			return f, true
		}
	}
	return "", false
}

// Position is the canvas location of a node. It is carried through so that
// saving a graph does not reset the layout.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Person is a node of the relationship graph.
type Person struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Role     PersonRole             `json:"type"`
	Fields   map[PersonField]string `json:"fields,omitempty"`
	Position Position               `json:"position"`
}

// IsSelf reports whether p is the user's own node.
func (p *Person) IsSelf() bool {
	return p.Role == RoleSelf || p.ID == SelfID
}

// Field returns the answer for f, or "" when unanswered.
func (p *Person) Field(f PersonField) string {
	if p.Fields == nil {
		return ""
	}
	return p.Fields[f]
}

// SetField stores an answer; an empty value clears it.
func (p *Person) SetField(f PersonField, v string) {
	if v == "" {
		delete(p.Fields, f)
		return
	}
	if p.Fields == nil {
		p.Fields = make(map[PersonField]string)
	}
	p.Fields[f] = v
}

type personJSON struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Role     string                 `json:"type"`
	Fields   map[PersonField]string `json:"fields,omitempty"`
	Position Position               `json:"position"`
	// Shape written by earlier clients: label/type/responses nested in data.
	Data *struct {
		Label     string            `json:"label"`
		Role      string            `json:"type"`
		Responses map[string]string `json:"responses"`
	} `json:"data,omitempty"`
}

// UnmarshalJSON reads both the current shape and the older
// {id, data: {label, type, responses}} node shape keyed by display labels.
func (p *Person) UnmarshalJSON(b []byte) error {
	var raw personJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Person{
		ID:       raw.ID,
		Label:    raw.Label,
		Fields:   raw.Fields,
		Position: raw.Position,
	}
	if role, ok := parseRole(raw.Role); ok {
		p.Role = role
	}
	if raw.Data != nil {
		if p.Label == "" {
			p.Label = raw.Data.Label
		}
		if role, ok := parseRole(raw.Data.Role); ok {
			p.Role = role
		}
		for label, v := range raw.Data.Responses {
			if f, ok := PersonFieldByLabel(label); ok && v != "" {
				p.SetField(f, v)
			}
		}
	}
	if p.Role == "" {
		p.Role = RolePerson
	}
	if p.ID == SelfID {
		p.Role = RoleSelf
	}
	return nil
}
