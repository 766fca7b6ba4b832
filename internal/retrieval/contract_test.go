package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ridgeway/memkeep/internal/types"
)

func TestValidateRequiresUser(t *testing.T) {
	_, err := Validate(Request{})
	require.Error(t, err)
}

func TestValidateDefaultsStateFilterToActive(t *testing.T) {
	v, err := Validate(Request{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, types.StateActive, v.StateFilter)
}

func TestValidateRejectsUnknownStateFilter(t *testing.T) {
	_, err := Validate(Request{UserID: "u1", StateFilter: types.State("bogus")})
	require.Error(t, err)
}

func TestValidateClampsLimitToHardCap(t *testing.T) {
	v, err := Validate(Request{UserID: "u1", Limit: 100})
	require.NoError(t, err)
	require.Equal(t, MaxLimit, v.Limit)
}

func TestValidateDefaultsLimitWhenUnset(t *testing.T) {
	v, err := Validate(Request{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, 5, v.Limit)
}

func TestValidateScopeWildcardAdmitsAnySubject(t *testing.T) {
	v, err := Validate(Request{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, []string{"*"}, v.Scope)
}

func TestValidateScopeNormalizesSubjects(t *testing.T) {
	v, err := Validate(Request{UserID: "u1", Scope: []string{"  work  "}})
	require.NoError(t, err)
	require.Equal(t, []string{"Work"}, v.Scope)
}
