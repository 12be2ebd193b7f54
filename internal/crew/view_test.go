package crew

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleMembers() []Member {
	return []Member{
		{StudentID: "u1", DisplayName: "Kiss Anna", Username: "akiss", RoleID: "r1", RoleName: "Operatőr", ClassName: "11.F", StabName: "A stáb", Email: "anna@example.com"},
		{StudentID: "u2", DisplayName: "Nagy Béla", Username: "bnagy", RoleID: "r2", RoleName: "Riporter", ClassName: "10.F", StabName: "B stáb"},
		{StudentID: "u3", DisplayName: "Tóth Cili", Username: "ctoth", RoleID: "r1", RoleName: "Operatőr", ClassName: "N/A", StabName: "N/A"},
		{StudentID: "u4", DisplayName: "Szabó Dani", Username: "dszabo", RoleID: "r3", RoleName: "Vágó", ClassName: "9.F", StabName: "a stáb"},
	}
}

func TestProject_Counts(t *testing.T) {
	v := Project(sampleMembers(), Filter{})

	assert.Equal(t, 4, v.Total)
	assert.Len(t, v.Members, 4)
	assert.Equal(t, 3, v.UniqueRoles)
	// N/A 不计入；大小写不同视为不同 stab
	assert.Equal(t, 3, v.UniqueStabs)
	assert.Equal(t, []RoleCount{
		{RoleID: "r1", RoleName: "Operatőr", Count: 2},
		{RoleID: "r2", RoleName: "Riporter", Count: 1},
		{RoleID: "r3", RoleName: "Vágó", Count: 1},
	}, v.RoleCounts)
}

func TestProject_FilterKeepsFullCounts(t *testing.T) {
	v := Project(sampleMembers(), Filter{RoleID: "r1"})

	assert.Len(t, v.Members, 2)
	assert.Equal(t, 4, v.Total)
	assert.Equal(t, 3, v.UniqueRoles)
}

func TestFilter_Matches(t *testing.T) {
	m := sampleMembers()

	assert.True(t, Filter{Search: "ANNA"}.Matches(m[0]))
	assert.True(t, Filter{Search: "example.com"}.Matches(m[0]))
	assert.True(t, Filter{Search: "  riporter "}.Matches(m[1]))
	assert.False(t, Filter{Search: "riporter"}.Matches(m[0]))
	assert.True(t, Filter{Stab: "A STÁB"}.Matches(m[0]))
	assert.True(t, Filter{Stab: "a stáb"}.Matches(m[3]))
	assert.False(t, Filter{Stab: "B stáb", Search: "anna"}.Matches(m[0]))
}

func TestProject_Empty(t *testing.T) {
	v := Project(nil, Filter{Search: "x"})

	assert.Equal(t, 0, v.Total)
	assert.NotNil(t, v.Members)
	assert.NotNil(t, v.RoleCounts)
	assert.Equal(t, 0, v.UniqueStabs)
}

func TestProject_RecomputedAfterMutation(t *testing.T) {
	members := sampleMembers()
	before := Project(members, Filter{})

	members = members[:1]
	after := Project(members, Filter{})

	assert.Equal(t, 4, before.Total)
	assert.Equal(t, 1, after.Total)
	assert.Equal(t, 1, after.UniqueRoles)
}
