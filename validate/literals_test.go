package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketconnect/sqlwarden/violation"
)

func TestScreenLiteral(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"plain value", "joe", false},
		{"email value", "joe@example.com", false},
		{"spaces and punctuation", "O. Henry, 3rd floor", false},
		{"comment marker", "joe -- admin", true},
		{"embedded statement", "x'; drop table users", true},
		{"smuggled drop", "drop table users", true},
		{"smuggled union", "union select password", true},
		{"catalog probe", "information_schema.tables", true},
		{"classic tautology", "1' OR '1'='1", true},
		{"backslash escape", `joe\`, true},
		{"control character", "joe\x00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := screenLiteral(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, violation.Is(err, violation.SQLInjection))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLiteralValidatorChecksParsedValues(t *testing.T) {
	v := NewLiteralValidator()

	assert.NoError(t, v.Validate(parse(t,
		"SELECT id FROM users WHERE name = 'joe'")))

	err := v.Validate(parse(t,
		"SELECT id FROM users WHERE note = 'drop table users'"))
	require.Error(t, err)
	assert.True(t, violation.Is(err, violation.SQLInjection))

	// Numeric literals are not screened.
	assert.NoError(t, v.Validate(parse(t,
		"SELECT id FROM users WHERE id = 100")))
}
