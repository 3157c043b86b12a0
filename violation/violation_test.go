package violation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := ColumnAccessf("access denied to column '%s'", "email")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ColumnAccess, kind)
	assert.Equal(t, "access denied to column 'email'", err.Error())
}

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("validation failed: %w", Joinf("no join rule defined"))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, Join, kind)
	assert.True(t, Is(err, Join))
	assert.False(t, Is(err, TableAccess))
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("boom"))
	assert.False(t, ok)
	assert.False(t, Is(errors.New("boom"), SQLSyntax))
	assert.False(t, Is(nil, SQLSyntax))
}

func TestConstructorKinds(t *testing.T) {
	tests := []struct {
		err  *Error
		want Kind
	}{
		{Syntaxf("x"), SQLSyntax},
		{Injectionf("x"), SQLInjection},
		{TableAccessf("x"), TableAccess},
		{ColumnAccessf("x"), ColumnAccess},
		{Joinf("x"), Join},
		{Complexityf("x"), QueryComplexity},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Kind)
	}
}
