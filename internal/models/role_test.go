package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("worker")
	require.NoError(t, err)
	assert.Equal(t, RoleWorker, r)

	r, err = ParseRole("employer")
	require.NoError(t, err)
	assert.Equal(t, RoleEmployer, r)

	for _, bad := range []string{"", "Worker", "admin"} {
		_, err := ParseRole(bad)
		assert.ErrorIs(t, err, ErrInvalidRole, bad)
	}
}

func TestRoleValueRefusesUnknown(t *testing.T) {
	v, err := RoleEmployer.Value()
	require.NoError(t, err)
	assert.Equal(t, "employer", v)

	_, err = Role("boss").Value()
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRoleScan(t *testing.T) {
	var r Role
	require.NoError(t, r.Scan([]byte("worker")))
	assert.Equal(t, RoleWorker, r)

	assert.ErrorIs(t, r.Scan("owner"), ErrInvalidRole)
	assert.ErrorIs(t, r.Scan(nil), ErrInvalidRole)
	assert.ErrorIs(t, r.Scan(42), ErrInvalidRole)
	assert.Equal(t, RoleWorker, r, "failed scans leave the value alone")
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&Profile{Name: "Ada", Surname: "Lovelace"}).DisplayName("x"))
	assert.Equal(t, "Lovelace", (&Profile{Surname: "Lovelace"}).DisplayName("x"))
	assert.Equal(t, "x", (&Profile{}).DisplayName("x"))
}
