package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonLegacyShape(t *testing.T) {
	raw := `[
		{"id":"me","type":"personNode","data":{"label":"Me","type":"user","responses":{"Name":"Sam","Career / Goals":"teach"}}},
		{"id":"p1","type":"personNode","data":{"label":"Mom","responses":{"Unknown Q":"x","Hobbies / Interests":"garden"}}}
	]`
	var people []Person
	require.NoError(t, json.Unmarshal([]byte(raw), &people))
	require.Len(t, people, 2)

	assert.Equal(t, RoleSelf, people[0].Role)
	assert.Equal(t, "Me", people[0].Label)
	assert.Equal(t, "teach", people[0].Field(FieldCareer))
	assert.Equal(t, "Sam", people[0].Field(FieldName))

	assert.Equal(t, RolePerson, people[1].Role)
	assert.Equal(t, map[PersonField]string{FieldHobbies: "garden"}, people[1].Fields)
}

func TestPersonFieldLabels(t *testing.T) {
	for _, f := range PersonFields {
		got, ok := PersonFieldByLabel(f.Label())
		require.True(t, ok, f)
		assert.Equal(t, f, got)
	}
	assert.False(t, PersonField("favorite_color").Valid())
}
