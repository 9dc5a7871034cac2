package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombinationKeyOrderIndependent(t *testing.T) {
	a := CombinationKey([]string{"m1", "m2", "m3"})
	b := CombinationKey([]string{"m3", "m1", "m2"})
	assert.Equal(t, a, b)
}

func TestCombinationKeyDistinguishesSets(t *testing.T) {
	a := CombinationKey([]string{"m1", "m2"})
	b := CombinationKey([]string{"m1", "m3"})
	assert.NotEqual(t, a, b)

	// La concatenación no debe ser ambigua: {"ab"} ≠ {"a", "b"}.
	assert.NotEqual(t, CombinationKey([]string{"ab"}), CombinationKey([]string{"a", "b"}))
}

func TestCombinationKeyDoesNotMutateInput(t *testing.T) {
	ids := []string{"z", "a", "m"}
	CombinationKey(ids)
	assert.Equal(t, []string{"z", "a", "m"}, ids)
}
