package supabase

import (
	"context"
	"fmt"
	"sort"

	"github.com/supabase-community/postgrest-go"

	"snapgram-sync/internal/application/ports"
	apperrors "snapgram-sync/pkg/errors"
)

// columns maps port field names to table columns.
var columns = map[string]string{
	ports.FieldCreatedAt: "created_at",
	ports.FieldUpdatedAt: "updated_at",
	ports.FieldCaption:   "caption",
	ports.FieldCreator:   "creator",
	ports.FieldAccountID: "account_id",
	ports.FieldLikes:     "likes",
}

// arrayColumns hold sets; Equal on them means membership.
var arrayColumns = map[string]bool{"likes": true}

// DefaultListLimit applies when a listing carries no limit predicate.
const DefaultListLimit = 25

func column(field string) (string, error) {
	col, ok := columns[field]
	if !ok {
		return "", apperrors.NewInvalidArgument(fmt.Sprintf("unknown field %q", field))
	}
	return col, nil
}

// listQuery is a translated predicate list.
type listQuery struct {
	orderColumn string
	limit       int
	cursorAfter string
	filters     []filter
}

type filter struct {
	column   string
	operator string
	value    string
}

// translate turns predicates into PostgREST filters. Filters are sorted so
// the resulting request is stable.
func translate(preds []ports.Predicate) (listQuery, error) {
	spec := ports.Fold(preds)
	q := listQuery{limit: spec.Limit, cursorAfter: spec.CursorAfter, orderColumn: "created_at"}
	if q.limit <= 0 {
		q.limit = DefaultListLimit
	}
	if spec.OrderDesc != "" {
		col, err := column(spec.OrderDesc)
		if err != nil {
			return q, err
		}
		q.orderColumn = col
	}
	for field, value := range spec.Equal {
		col, err := column(field)
		if err != nil {
			return q, err
		}
		if arrayColumns[col] {
			q.filters = append(q.filters, filter{column: col, operator: "cs", value: "{" + value + "}"})
		} else {
			q.filters = append(q.filters, filter{column: col, operator: "eq", value: value})
		}
	}
	for field, term := range spec.Search {
		col, err := column(field)
		if err != nil {
			return q, err
		}
		q.filters = append(q.filters, filter{column: col, operator: "ilike", value: "*" + term + "*"})
	}
	sort.Slice(q.filters, func(i, j int) bool { return q.filters[i].column < q.filters[j].column })
	return q, nil
}

// apply adds filters, order and limit to a select. Rows sharing an order
// value are ordered by id so the cursor bound below is total.
func (q listQuery) apply(b *postgrest.FilterBuilder) *postgrest.FilterBuilder {
	for _, f := range q.filters {
		b = b.Filter(f.column, f.operator, f.value)
	}
	desc := &postgrest.OrderOpts{Ascending: false}
	return b.Order(q.orderColumn, desc).Order("id", desc).Limit(q.limit, "")
}

// afterCursor selects the rows strictly after the cursor row in
// (orderColumn desc, id desc) order.
func afterCursor(orderColumn, bound, cursorID string) string {
	return fmt.Sprintf(`%[1]s.lt."%[2]s",and(%[1]s.eq."%[2]s",id.lt."%[3]s")`, orderColumn, bound, cursorID)
}

// list runs a translated listing against table into out. A cursor is resolved
// to the order column value of the cursor row, then applied together with an
// id tiebreak.
func (c *Client) list(ctx context.Context, table string, preds []ports.Predicate, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q, err := translate(preds)
	if err != nil {
		return err
	}

	sel := c.from(table).Select("*", "", false)
	if q.cursorAfter != "" {
		bound, err := c.cursorValue(table, q.orderColumn, q.cursorAfter)
		if err != nil {
			return err
		}
		sel = sel.Or(afterCursor(q.orderColumn, bound, q.cursorAfter), "")
	}
	if _, err := q.apply(sel).ExecuteTo(out); err != nil {
		return classify("list "+table, err)
	}
	return nil
}

func (c *Client) cursorValue(table, orderColumn, id string) (string, error) {
	var rows []map[string]interface{}
	_, err := c.from(table).Select(orderColumn, "", false).Eq("id", id).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return "", classify("resolve cursor", err)
	}
	if len(rows) == 0 {
		return "", apperrors.NewInvalidArgument(fmt.Sprintf("cursor %s is not part of this listing", id))
	}
	v, ok := rows[0][orderColumn].(string)
	if !ok {
		return "", apperrors.NewInvalidArgument(fmt.Sprintf("cursor %s has no %s", id, orderColumn))
	}
	return v, nil
}
