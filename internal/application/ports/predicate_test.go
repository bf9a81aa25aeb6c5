package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	spec := Fold([]Predicate{
		OrderDesc(FieldUpdatedAt),
		Limit(9),
		CursorAfter("p9"),
		Equal(FieldCreator, "u1"),
		Search(FieldCaption, "cat"),
		Limit(10),
	})

	assert.Equal(t, FieldUpdatedAt, spec.OrderDesc)
	assert.Equal(t, 10, spec.Limit)
	assert.Equal(t, "p9", spec.CursorAfter)
	assert.Equal(t, map[string]string{FieldCreator: "u1"}, spec.Equal)
	assert.Equal(t, map[string]string{FieldCaption: "cat"}, spec.Search)
}

func TestPredicateString(t *testing.T) {
	assert.Equal(t, "orderDesc($createdAt)", OrderDesc(FieldCreatedAt).String())
	assert.Equal(t, "limit(20)", Limit(20).String())
	assert.Equal(t, "cursorAfter(p1)", CursorAfter("p1").String())
	assert.Equal(t, `equal(accountId, "a1")`, Equal(FieldAccountID, "a1").String())
}
