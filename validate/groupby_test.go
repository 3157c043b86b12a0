package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

func TestGroupByForbidden(t *testing.T) {
	policy := shopPolicy(t)
	policy.Tables["users"].AllowGroupBy = false
	v := NewGroupByValidator(policy)

	err := v.Validate(parse(t, "SELECT name FROM users GROUP BY name"))
	require.Error(t, err)
	assert.True(t, violation.Is(err, violation.QueryComplexity))
	assert.Contains(t, err.Error(), "users")

	// No GROUP BY clause, no violation.
	assert.NoError(t, v.Validate(parse(t, "SELECT name FROM users")))

	// orders still allows grouping.
	assert.NoError(t, v.Validate(parse(t, "SELECT user_id FROM orders GROUP BY user_id")))
}

func TestAllowedGroupByColumns(t *testing.T) {
	policy := shopPolicy(t)
	policy.Tables["orders"].AllowedGroupByColumns = schema.NewStringSet("user_id")
	v := NewGroupByValidator(policy)

	assert.NoError(t, v.Validate(parse(t, "SELECT user_id FROM orders GROUP BY user_id")))

	err := v.Validate(parse(t, "SELECT amount FROM orders GROUP BY amount"))
	require.Error(t, err)
	assert.True(t, violation.Is(err, violation.QueryComplexity))
	assert.Contains(t, err.Error(), "amount")
}

func TestGroupByJoinedForbiddenTable(t *testing.T) {
	policy := shopPolicy(t)
	policy.Tables["users"].AllowGroupBy = false
	v := NewGroupByValidator(policy)

	// users is in scope of the grouped SELECT even though the grouped column
	// belongs to orders.
	err := v.Validate(parse(t,
		"SELECT o.user_id FROM users u JOIN orders o ON u.id = o.user_id GROUP BY o.user_id"))
	require.Error(t, err)
	assert.True(t, violation.Is(err, violation.QueryComplexity))
}
