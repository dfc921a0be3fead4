package filter

import (
	"testing"

	"github.com/antonmedv/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversions(t *testing.T) {
	assert.Equal(t, int64(42), AsInt("42"))
	assert.Equal(t, int64(42), AsInt(42.0))
	assert.Equal(t, int64(0), AsInt("nope"))
	assert.Equal(t, 0.5, AsFloat("0.5"))
	assert.Equal(t, "7", AsString(7))
	assert.Equal(t, []string{"a", "b"}, AsStringSlice("a,b"))
	assert.Equal(t, []string{"a", "b"}, AsStringSlice([]interface{}{"a", "b"}))
}

func TestTargetFilter(t *testing.T) {
	source := User{Id: "u1", Name: "Alice", Metadata: map[string]interface{}{"role": "editor"}}
	target := User{Id: "u2", Name: "Bob", Metadata: map[string]interface{}{"level": "42"}}
	env := NewEnv(Room{Id: "d1", Participants: 2}, source, target, "annotation", 0)

	res, err := expr.Eval(`AsInt(Target.Metadata["level"])==42`, env)
	require.NoError(t, err)
	assert.Equal(t, true, res.(bool))

	res, err = expr.Eval(`Source.Metadata["role"]=="editor" && Type=="annotation"`, env)
	require.NoError(t, err)
	assert.Equal(t, true, res.(bool))

	res, err = expr.Eval(`Target.Id == Source.Id`, env)
	require.NoError(t, err)
	assert.Equal(t, false, res.(bool))
}

func TestProgramCache(t *testing.T) {
	cache, err := NewProgramCache(2)
	require.NoError(t, err)

	prog, err := cache.Get(`Target.Id == "u2"`)
	require.NoError(t, err)
	again, err := cache.Get(`Target.Id == "u2"`)
	require.NoError(t, err)
	assert.Same(t, prog, again)
	assert.Equal(t, 1, cache.Len())

	_, err = cache.Get(`Target.Id ==`)
	assert.Error(t, err)
	assert.Equal(t, 1, cache.Len())

	_, _ = cache.Get(`Type == "a"`)
	_, _ = cache.Get(`Type == "b"`)
	assert.Equal(t, 2, cache.Len())

	ok, err := Run(prog, NewEnv(Room{Id: "d1"}, User{Id: "u1"}, User{Id: "u2"}, "x", 0))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = Run(prog, NewEnv(Room{Id: "d1"}, User{Id: "u1"}, User{Id: "u3"}, "x", 0))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Run(nil, Env{})
	require.NoError(t, err)
	assert.True(t, ok)
}
