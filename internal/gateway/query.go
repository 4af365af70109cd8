package gateway

import (
	"fmt"
	"net/url"
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Filter is a single column predicate.
type Filter struct {
	Column string
	Op     string
	Value  string
}

// Eq matches rows whose column equals value.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: "eq", Value: fmt.Sprintf("%v", value)}
}

// IsNull matches rows whose column is null.
func IsNull(column string) Filter {
	return Filter{Column: column, Op: "is", Value: "null"}
}

func (f Filter) encode() string {
	return url.QueryEscape(f.Column) + "=" + f.Op + "." + url.QueryEscape(f.Value)
}

// Order is a sort clause.
type Order struct {
	Column    string
	Direction Direction
}

// Query describes a row fetch. The zero value selects every column of every
// row in backend order.
type Query struct {
	Columns string
	Filters []Filter
	Orders  []Order
}

// Select returns a query for the given column list.
func Select(columns string) Query {
	return Query{Columns: columns}
}

// Where returns a copy of q with the filters appended.
func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), filters...)
	return q
}

// OrderBy returns a copy of q with a sort clause appended.
func (q Query) OrderBy(column string, dir Direction) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Column: column, Direction: dir})
	return q
}

// encode renders the query string for a rows request.
func (q Query) encode() string {
	params := make([]string, 0, len(q.Filters)+2)

	columns := q.Columns
	if columns == "" {
		columns = "*"
	}
	params = append(params, "select="+url.QueryEscape(columns))

	for _, f := range q.Filters {
		params = append(params, f.encode())
	}

	if len(q.Orders) > 0 {
		orders := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := o.Direction
			if dir == "" {
				dir = Ascending
			}
			orders[i] = o.Column + "." + string(dir)
		}
		params = append(params, "order="+strings.Join(orders, ","))
	}

	return strings.Join(params, "&")
}

func encodeFilters(filters []Filter) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.encode()
	}
	return strings.Join(parts, "&")
}
