package model

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstance_RemovingLastValueRemovesKey(t *testing.T) {
	repo := NewRepository()
	class := repo.NewInstance("A", nil, nil)
	sub := repo.NewInstance("B", nil, nil)

	class.AddKeyValue(key("specializations"), sub)
	assert.True(t, class.IsValueDefined("specializations"))

	assert.True(t, class.RemoveValue("specializations", sub))
	assert.False(t, class.IsValueDefined("specializations"))
	assert.NotContains(t, class.Keys(), "specializations")

	assert.False(t, class.RemoveValue("specializations", sub), "second removal is a no-op")
}

func TestInstance_RemovePropertyMissingIsNoop(t *testing.T) {
	repo := NewRepository()
	inst := repo.NewInstance("A", nil, nil)

	inst.RemoveProperty("nothing")
	assert.Empty(t, inst.Keys())
}

func TestInstance_ValueToOne(t *testing.T) {
	repo := NewRepository()
	inst := repo.NewInstance("A", nil, nil)
	value := repo.NewString("hello")

	assert.Nil(t, inst.ValueToOne("name"))

	inst.SetKeyValues(key("name"), []CoreInstance{value})
	assert.Same(t, value, inst.ValueToOne("name"))

	inst.AddKeyValue(key("name"), repo.NewString("again"))
	assert.Panics(t, func() { inst.ValueToOne("name") })
}

func TestInstance_RealKey(t *testing.T) {
	repo := NewRepository()
	inst := repo.NewInstance("A", nil, nil)
	inst.AddKeyWithEmptyList(key("values"))

	assert.Equal(t, key("values"), inst.RealKey("values"))
	assert.Nil(t, inst.RealKey("other"))
}

func TestInstance_CompileStates(t *testing.T) {
	repo := NewRepository()
	inst := repo.NewInstance("A", nil, nil)

	inst.AddCompileState(Processed)
	inst.AddCompileState(Validated)
	assert.True(t, inst.HasCompileState(Processed|Validated))
	assert.Equal(t, "Processed|Validated", inst.CompileStates().String())

	inst.RemoveCompileState(Processed)
	assert.False(t, inst.HasCompileState(Processed))
	assert.True(t, inst.HasCompileState(Validated))
}

func TestSame_Primitives(t *testing.T) {
	repo := NewRepository()
	stringType := repo.NewInstance(TypeString, nil, nil)
	repo.AddTopLevel(stringType)

	a := repo.NewString("x")
	b := repo.NewString("x")
	c := repo.NewString("y")

	assert.True(t, Same(a, b))
	assert.False(t, Same(a, c))
	assert.Same(t, stringType, a.Classifier())
	assert.Equal(t, "x", a.Name())
}

func TestValuesByIndex_ReturnsAllMatches(t *testing.T) {
	repo := NewRepository()
	owner := repo.NewInstance("owner", nil, nil)
	first := repo.NewInstance("x", nil, nil)
	second := repo.NewInstance("y", nil, nil)
	third := repo.NewInstance("x", nil, nil)
	for _, v := range []CoreInstance{first, second, third} {
		owner.AddKeyValue(key("values"), v)
	}

	matches := ValuesByIndex(owner, "values", CoreInstance.Name, "x")
	require.Len(t, matches, 2)
	assert.Same(t, first, matches[0])
	assert.Same(t, third, matches[1])

	_, err := ValueByIDIndex(owner, "values", CoreInstance.Name, "x")
	assert.Error(t, err)

	got, err := ValueByIDIndex(owner, "values", CoreInstance.Name, "y")
	require.NoError(t, err)
	assert.Same(t, second, got)

	assert.Same(t, first, ValueByName(owner, "values", "x"))
}

func TestPrint(t *testing.T) {
	repo := NewRepository()
	class := repo.NewInstance("Class", nil, nil)
	inst := repo.NewInstance("A", class, nil)
	inst.AddKeyValue(key("self"), inst)
	inst.AddKeyValue(key("name"), repo.NewString("A"))

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, inst, 3))
	out := buf.String()
	assert.Contains(t, out, "A instance Class")
	assert.Contains(t, out, "self(Property):")
	assert.Contains(t, out, "name(Property):")
}

func TestSourceInformation_Subsumes(t *testing.T) {
	outer := NewSourceInformation("a.hcl", 1, 1, 10, 1)
	inner := NewSourceInformation("a.hcl", 2, 3, 4, 5)
	other := NewSourceInformation("b.hcl", 2, 3, 4, 5)

	assert.True(t, outer.Subsumes(inner))
	assert.True(t, outer.Subsumes(outer))
	assert.False(t, inner.Subsumes(outer))
	assert.False(t, outer.Subsumes(other))
	assert.Equal(t, "resource:a.hcl line:2 column:3", inner.String())
}
