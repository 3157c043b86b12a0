package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/violation"
)

func TestRequireWhereClause(t *testing.T) {
	policy := shopPolicy(t)
	policy.Tables["users"].RequireWhereClause = true
	v := NewWhereValidator(policy)

	err := v.Validate(parse(t, "SELECT id FROM users"))
	require.Error(t, err)
	assert.True(t, violation.Is(err, violation.QueryComplexity))
	assert.Contains(t, err.Error(), "WHERE")

	assert.NoError(t, v.Validate(parse(t, "SELECT id FROM users WHERE id = 5")))

	// orders does not require one.
	assert.NoError(t, v.Validate(parse(t, "SELECT id FROM orders")))
}

func TestRequireWhereAppliesPerSelect(t *testing.T) {
	policy := shopPolicy(t)
	policy.Tables["users"].RequireWhereClause = true
	v := NewWhereValidator(policy)

	// The inner SELECT touches users without a WHERE clause.
	err := v.Validate(parse(t,
		"SELECT id FROM orders WHERE user_id IN (SELECT id FROM users)"))
	require.Error(t, err)
	assert.True(t, violation.Is(err, violation.QueryComplexity))
}

func TestAllowedWhereColumns(t *testing.T) {
	policy := shopPolicy(t)
	policy.Tables["users"].AllowedWhereColumns = schema.NewStringSet("id")
	v := NewWhereValidator(policy)

	assert.NoError(t, v.Validate(parse(t, "SELECT id FROM users WHERE id = 5")))

	err := v.Validate(parse(t, "SELECT id FROM users WHERE name = 'joe'"))
	require.Error(t, err)
	assert.True(t, violation.Is(err, violation.QueryComplexity))
	assert.Contains(t, err.Error(), "name")

	// An empty allowed set means unrestricted; orders declares none.
	assert.NoError(t, v.Validate(parse(t, "SELECT id FROM orders WHERE amount > 10")))
}
