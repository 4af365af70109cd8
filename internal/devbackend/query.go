package devbackend

import (
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// apiError is the error body of the rows endpoints.
type apiError struct {
	status  int
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details"`
	Hint    *string `json:"hint"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.status, e.Code, e.Message)
}

func newAPIError(status int, code, message string) *apiError {
	return &apiError{status: status, Code: code, Message: message}
}

func (e *apiError) withDetails(details string) *apiError {
	e.Details = &details
	return e
}

func unknownColumn(table, col string) *apiError {
	return newAPIError(http.StatusBadRequest, "42703", fmt.Sprintf("column %s.%s does not exist", table, col))
}

type embedSelection struct {
	name    string
	rel     embed
	columns []string
}

type selection struct {
	columns []string
	embeds  []embedSelection
}

// parseSelect parses a select list such as "*,profiles(username,profile_image)".
func parseSelect(t *tableDef, raw string) (selection, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "*"
	}
	var sel selection
	seen := make(map[string]bool)
	for _, item := range splitTopLevel(raw) {
		item = strings.TrimSpace(item)
		if open := strings.IndexByte(item, '('); open >= 0 {
			if !strings.HasSuffix(item, ")") {
				return selection{}, newAPIError(http.StatusBadRequest, "PGRST100", fmt.Sprintf("failed to parse select parameter (%s)", raw))
			}
			name := item[:open]
			rel, ok := t.embeds[name]
			if !ok {
				return selection{}, newAPIError(http.StatusBadRequest, "PGRST200",
					fmt.Sprintf("Could not find a relationship between '%s' and '%s' in the schema cache", t.name, name))
			}
			target := tables[rel.table]
			inner, err := parseSelect(target, item[open+1:len(item)-1])
			if err != nil {
				return selection{}, err
			}
			sel.embeds = append(sel.embeds, embedSelection{name: name, rel: rel, columns: inner.columns})
			continue
		}
		if item == "*" {
			for _, name := range t.columnNames() {
				if !seen[name] {
					seen[name] = true
					sel.columns = append(sel.columns, name)
				}
			}
			continue
		}
		if _, ok := t.column(item); !ok {
			return selection{}, unknownColumn(t.name, item)
		}
		if !seen[item] {
			seen[item] = true
			sel.columns = append(sel.columns, item)
		}
	}
	return sel, nil
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

type filter struct {
	column string
	op     string
	values []string
}

// reservedParams are query parameters that are not column filters.
var reservedParams = map[string]bool{
	"select": true, "order": true, "limit": true, "offset": true,
	"apikey": true, "columns": true, "on_conflict": true,
}

// parseFilters reads column=op.value pairs.
func parseFilters(t *tableDef, params map[string]string) ([]filter, error) {
	var filters []filter
	for key, raw := range params {
		if reservedParams[key] {
			continue
		}
		if _, ok := t.column(key); !ok {
			return nil, unknownColumn(t.name, key)
		}
		op, value, ok := strings.Cut(raw, ".")
		if !ok {
			return nil, newAPIError(http.StatusBadRequest, "PGRST100", fmt.Sprintf("failed to parse filter (%s)", raw))
		}
		switch op {
		case "eq", "neq":
			filters = append(filters, filter{column: key, op: op, values: []string{value}})
		case "is":
			if value != "null" {
				return nil, newAPIError(http.StatusBadRequest, "PGRST100", fmt.Sprintf("failed to parse filter (%s)", raw))
			}
			filters = append(filters, filter{column: key, op: op})
		case "in":
			list := strings.TrimSuffix(strings.TrimPrefix(value, "("), ")")
			filters = append(filters, filter{column: key, op: op, values: strings.Split(list, ",")})
		default:
			return nil, newAPIError(http.StatusBadRequest, "PGRST100", fmt.Sprintf("unsupported operator %q", op))
		}
	}
	return filters, nil
}

func applyFilters(db *gorm.DB, filters []filter) *gorm.DB {
	for _, f := range filters {
		col := clause.Column{Name: f.column}
		switch f.op {
		case "eq":
			db = db.Where(clause.Eq{Column: col, Value: f.values[0]})
		case "neq":
			db = db.Where(clause.Neq{Column: col, Value: f.values[0]})
		case "is":
			db = db.Where(clause.Eq{Column: col, Value: nil})
		case "in":
			values := make([]interface{}, len(f.values))
			for i, v := range f.values {
				values[i] = v
			}
			db = db.Where(clause.IN{Column: col, Values: values})
		}
	}
	return db
}

// parseOrder reads "col.desc,other.asc".
func parseOrder(t *tableDef, raw string) ([]clause.OrderByColumn, error) {
	if raw == "" {
		return nil, nil
	}
	var orders []clause.OrderByColumn
	for _, term := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(term), ".")
		if _, ok := t.column(parts[0]); !ok {
			return nil, unknownColumn(t.name, parts[0])
		}
		order := clause.OrderByColumn{Column: clause.Column{Name: parts[0]}}
		for _, modifier := range parts[1:] {
			switch modifier {
			case "asc":
			case "desc":
				order.Desc = true
			case "nullsfirst", "nullslast":
			default:
				return nil, newAPIError(http.StatusBadRequest, "PGRST100", fmt.Sprintf("failed to parse order (%s)", raw))
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// preferences is the parsed Prefer header.
type preferences struct {
	representation bool
	countExact     bool
}

func parsePrefer(header string) preferences {
	var p preferences
	for _, token := range strings.Split(header, ",") {
		switch strings.TrimSpace(token) {
		case "return=representation":
			p.representation = true
		case "count=exact":
			p.countExact = true
		}
	}
	return p
}

// contentRange renders the Content-Range header for n returned rows out of
// total.
func contentRange(n int, total int64) string {
	if n == 0 {
		return fmt.Sprintf("*/%d", total)
	}
	return fmt.Sprintf("0-%d/%d", n-1, total)
}
