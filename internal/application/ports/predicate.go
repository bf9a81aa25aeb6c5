package ports

import (
	"fmt"
)

// PredicateOp names a list query predicate.
type PredicateOp string

const (
	OpOrderDesc   PredicateOp = "orderDesc"
	OpLimit       PredicateOp = "limit"
	OpCursorAfter PredicateOp = "cursorAfter"
	OpEqual       PredicateOp = "equal"
	OpSearch      PredicateOp = "search"
)

// Field names understood by every backend implementation.
const (
	FieldCreatedAt = "$createdAt"
	FieldUpdatedAt = "$updatedAt"
	FieldCaption   = "caption"
	FieldCreator   = "creator"
	FieldAccountID = "accountId"
	// FieldLikes is an array field; Equal on it means membership.
	FieldLikes = "likes"
)

// Predicate is one list constraint. Only the fields relevant to Op are set.
type Predicate struct {
	Op    PredicateOp
	Field string
	Value string
	N     int
}

func OrderDesc(field string) Predicate {
	return Predicate{Op: OpOrderDesc, Field: field}
}

func Limit(n int) Predicate {
	return Predicate{Op: OpLimit, N: n}
}

// CursorAfter continues a listing after the document with the given id.
func CursorAfter(id string) Predicate {
	return Predicate{Op: OpCursorAfter, Value: id}
}

func Equal(field, value string) Predicate {
	return Predicate{Op: OpEqual, Field: field, Value: value}
}

// Search is a full text match of term against field.
func Search(field, term string) Predicate {
	return Predicate{Op: OpSearch, Field: field, Value: term}
}

func (p Predicate) String() string {
	switch p.Op {
	case OpOrderDesc:
		return fmt.Sprintf("orderDesc(%s)", p.Field)
	case OpLimit:
		return fmt.Sprintf("limit(%d)", p.N)
	case OpCursorAfter:
		return fmt.Sprintf("cursorAfter(%s)", p.Value)
	default:
		return fmt.Sprintf("%s(%s, %q)", p.Op, p.Field, p.Value)
	}
}

// QuerySpec is the folded form of a predicate list, convenient for adapters.
type QuerySpec struct {
	OrderDesc   string
	Limit       int
	CursorAfter string
	Equal       map[string]string
	Search      map[string]string
}

// Fold collapses preds into a QuerySpec. Later predicates of the same op win.
func Fold(preds []Predicate) QuerySpec {
	spec := QuerySpec{
		Equal:  map[string]string{},
		Search: map[string]string{},
	}
	for _, p := range preds {
		switch p.Op {
		case OpOrderDesc:
			spec.OrderDesc = p.Field
		case OpLimit:
			spec.Limit = p.N
		case OpCursorAfter:
			spec.CursorAfter = p.Value
		case OpEqual:
			spec.Equal[p.Field] = p.Value
		case OpSearch:
			spec.Search[p.Field] = p.Value
		}
	}
	return spec
}
