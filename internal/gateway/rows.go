package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"mvp/internal/models"
)

// Rows is the raw body of a list fetch.
type Rows []byte

// DecodeRows decodes a list body. An empty body or an empty array yields an
// empty slice.
func DecodeRows[T any](rows Rows, resource string) ([]T, error) {
	trimmed := bytes.TrimSpace(rows)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	out := []T{}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, models.NewDecodeError(resource, err)
	}
	return out, nil
}

// DecodeRow decodes a single-row body.
func DecodeRow[T any](row []byte, resource string) (T, error) {
	var out T
	if len(bytes.TrimSpace(row)) == 0 {
		return out, models.NewEmptyResponseError(resource)
	}
	if err := json.Unmarshal(row, &out); err != nil {
		return out, models.NewDecodeError(resource, err)
	}
	return out, nil
}

// RepresentationKind tells whether a return representation was a list or a
// single object.
type RepresentationKind int

const (
	Many RepresentationKind = iota
	One
)

func (k RepresentationKind) String() string {
	if k == One {
		return "one"
	}
	return "many"
}

// Representation is the echoed row set of an insert. The backend may answer
// with an array or with a bare object; both are valid.
type Representation struct {
	Kind  RepresentationKind
	Items []json.RawMessage
}

// ParseRepresentation classifies body by its JSON shape. An empty body is an
// empty-response error, anything that is neither array nor object a decode
// error.
func ParseRepresentation(body []byte, resource string) (Representation, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Representation{}, models.NewEmptyResponseError(resource)
	}
	if !gjson.ValidBytes(trimmed) {
		return Representation{}, models.NewDecodeError(resource, fmt.Errorf("invalid JSON"))
	}

	parsed := gjson.ParseBytes(trimmed)
	switch {
	case parsed.IsArray():
		rep := Representation{Kind: Many}
		parsed.ForEach(func(_, value gjson.Result) bool {
			rep.Items = append(rep.Items, json.RawMessage(value.Raw))
			return true
		})
		return rep, nil
	case parsed.IsObject():
		return Representation{Kind: One, Items: []json.RawMessage{json.RawMessage(parsed.Raw)}}, nil
	default:
		return Representation{}, models.NewDecodeError(resource, fmt.Errorf("unexpected %s in representation", parsed.Type))
	}
}

// DecodeFirst decodes the first echoed row. A representation without rows is
// an empty-response error.
func DecodeFirst[T any](rep Representation, resource string) (T, error) {
	var out T
	if len(rep.Items) == 0 {
		return out, models.NewEmptyResponseError(resource)
	}
	if err := json.Unmarshal(rep.Items[0], &out); err != nil {
		return out, models.NewDecodeError(resource, err)
	}
	return out, nil
}

// Select fetches zero or more rows of table.
func (c *Client) Select(ctx context.Context, table string, q Query) (Rows, error) {
	resp, err := c.do(ctx, "select", table, http.MethodGet, c.tableURL(table, q.encode()), nil, nil)
	if err != nil {
		return nil, err
	}
	return Rows(resp.body), nil
}

// SelectSingle fetches exactly one row. Zero matches are reported as a
// not-found application error.
func (c *Client) SelectSingle(ctx context.Context, table string, q Query) ([]byte, error) {
	headers := map[string]string{"Accept": "application/vnd.pgrst.object+json"}
	resp, err := c.do(ctx, "select_single", table, http.MethodGet, c.tableURL(table, q.encode()), nil, headers)
	if err != nil {
		if IsNoRows(err) {
			return nil, &models.AppError{Code: models.CodeNotFound, Message: table + " row not found", Err: err}
		}
		return nil, err
	}
	return resp.body, nil
}

// Insert stores one record and returns the backend's representation of it.
func (c *Client) Insert(ctx context.Context, table string, record interface{}) (Representation, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return Representation{}, fmt.Errorf("marshal %s record: %w", table, err)
	}
	headers := map[string]string{"Prefer": "return=representation"}
	resp, err := c.do(ctx, "insert", table, http.MethodPost, c.tableURL(table, ""), body, headers)
	if err != nil {
		return Representation{}, err
	}
	return ParseRepresentation(resp.body, table)
}

// Update patches the rows matching every filter.
func (c *Client) Update(ctx context.Context, table string, record interface{}, match ...Filter) error {
	if len(match) == 0 {
		return fmt.Errorf("update %s: refusing to update without a filter", table)
	}
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", table, err)
	}
	headers := map[string]string{"Prefer": "return=minimal"}
	_, err = c.do(ctx, "update", table, http.MethodPatch, c.tableURL(table, encodeFilters(match)), body, headers)
	return err
}

// Count returns the exact number of rows matching the filters without
// fetching row bodies.
func (c *Client) Count(ctx context.Context, table string, filters ...Filter) (int64, error) {
	q := Select("id").Where(filters...)
	headers := map[string]string{"Prefer": "count=exact"}
	resp, err := c.do(ctx, "count", table, http.MethodHead, c.tableURL(table, q.encode()), nil, headers)
	if err != nil {
		return 0, err
	}
	return parseContentRange(resp.header.Get("Content-Range"))
}

func (c *Client) tableURL(table, query string) string {
	u := c.restURL + "/" + url.PathEscape(table)
	if query != "" {
		u += "?" + query
	}
	return u
}

// parseContentRange extracts the total from "0-24/3573" or "*/0".
func parseContentRange(header string) (int64, error) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return 0, fmt.Errorf("missing count in content-range %q", header)
	}
	total := header[idx+1:]
	if total == "*" {
		return 0, fmt.Errorf("backend did not report an exact count")
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count in content-range %q: %w", header, err)
	}
	return n, nil
}
