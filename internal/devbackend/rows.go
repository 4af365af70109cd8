package devbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mvp/internal/database"
	"mvp/internal/observability"
)

const (
	objectMediaType = "application/vnd.pgrst.object+json"
	headerPrefer    = "Prefer"
)

type row = map[string]interface{}

func lookupTable(name string) (*tableDef, error) {
	t, ok := tables[name]
	if !ok {
		return nil, newAPIError(http.StatusNotFound, "42P01", fmt.Sprintf("relation \"public.%s\" does not exist", name))
	}
	return t, nil
}

// SelectRows handles GET and HEAD /rest/v1/:table.
func (s *Server) SelectRows(c *fiber.Ctx) error {
	t, err := lookupTable(c.Params("table"))
	if err != nil {
		return err
	}
	sel, err := parseSelect(t, c.Query("select"))
	if err != nil {
		return err
	}
	filters, err := parseFilters(t, c.Queries())
	if err != nil {
		return err
	}
	orders, err := parseOrder(t, c.Query("order"))
	if err != nil {
		return err
	}
	prefer := parsePrefer(c.Get(headerPrefer))
	ctx := c.UserContext()

	var total int64
	if prefer.countExact {
		err := s.observe(ctx, "count", t, map[string]interface{}{"filters": len(filters)}, func(db *gorm.DB) error {
			return applyFilters(db.Table(t.name), filters).Count(&total).Error
		})
		if err != nil {
			return dbError(err)
		}
	}

	if c.Method() == fiber.MethodHead {
		if prefer.countExact {
			c.Set(fiber.HeaderContentRange, contentRange(int(total), total))
		}
		c.Status(fiber.StatusOK)
		return nil
	}

	rows, err := s.fetch(ctx, t, filters, orders)
	if err != nil {
		return err
	}
	out, err := s.render(ctx, t, sel, rows)
	if err != nil {
		return err
	}
	if prefer.countExact {
		c.Set(fiber.HeaderContentRange, contentRange(len(out), total))
	}
	return respondRows(c, out)
}

// InsertRow handles POST /rest/v1/:table with an object or an array of
// objects.
func (s *Server) InsertRow(c *fiber.Ctx) error {
	t, err := writableTable(c.Params("table"))
	if err != nil {
		return err
	}
	sel, err := parseSelect(t, c.Query("select"))
	if err != nil {
		return err
	}
	records, err := decodeRecords(c.Body())
	if err != nil {
		return err
	}

	prepared := make([]row, len(records))
	ids := make([]interface{}, len(records))
	for i, record := range records {
		values, err := s.prepareRecord(t, record, true)
		if err != nil {
			return err
		}
		prepared[i] = values
		ids[i] = values["id"]
	}

	ctx := c.UserContext()
	err = s.observe(ctx, "insert", t, map[string]interface{}{"rows": len(prepared)}, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			for _, values := range prepared {
				if err := tx.Table(t.name).Create(values).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return dbError(err)
	}

	c.Status(fiber.StatusCreated)
	if !parsePrefer(c.Get(headerPrefer)).representation {
		return nil
	}

	rows, err := s.fetch(ctx, t, []filter{{column: "id", op: "in", values: stringValues(ids)}}, nil)
	if err != nil {
		return err
	}
	rows = orderByIDs(rows, ids)
	out, err := s.render(ctx, t, sel, rows)
	if err != nil {
		return err
	}
	return respondRows(c, out)
}

// UpdateRows handles PATCH /rest/v1/:table. At least one filter is required.
func (s *Server) UpdateRows(c *fiber.Ctx) error {
	t, err := writableTable(c.Params("table"))
	if err != nil {
		return err
	}
	filters, err := parseFilters(t, c.Queries())
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		return newAPIError(http.StatusBadRequest, "21000", "UPDATE requires a WHERE clause")
	}
	records, err := decodeRecords(c.Body())
	if err != nil {
		return err
	}
	if len(records) != 1 {
		return newAPIError(http.StatusBadRequest, "PGRST102", "PATCH expects a single object")
	}
	values, err := s.prepareRecord(t, records[0], false)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	if len(values) > 0 {
		err = s.observe(ctx, "update", t, map[string]interface{}{"filters": len(filters)}, func(db *gorm.DB) error {
			return applyFilters(db.Table(t.name), filters).Updates(values).Error
		})
		if err != nil {
			return dbError(err)
		}
	}

	if !parsePrefer(c.Get(headerPrefer)).representation {
		return c.SendStatus(fiber.StatusNoContent)
	}
	sel, err := parseSelect(t, c.Query("select"))
	if err != nil {
		return err
	}
	rows, err := s.fetch(ctx, t, filters, nil)
	if err != nil {
		return err
	}
	out, err := s.render(ctx, t, sel, rows)
	if err != nil {
		return err
	}
	return respondRows(c, out)
}

func writableTable(name string) (*tableDef, error) {
	t, err := lookupTable(name)
	if err != nil {
		return nil, err
	}
	if t.readOnly {
		return nil, newAPIError(http.StatusMethodNotAllowed, "42809", fmt.Sprintf("cannot change view \"%s\"", name))
	}
	return t, nil
}

// prepareRecord validates record against the table and converts its values.
// Inserts get a generated id and creation time when absent.
func (s *Server) prepareRecord(t *tableDef, record row, insert bool) (row, error) {
	values := make(row, len(record)+2)
	for key, raw := range record {
		col, ok := t.column(key)
		if !ok {
			return nil, newAPIError(http.StatusBadRequest, "PGRST204",
				fmt.Sprintf("Could not find the '%s' column of '%s' in the schema cache", key, t.name))
		}
		v, err := toStored(col, raw)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "22P02", err.Error())
		}
		values[key] = v
	}
	if !insert {
		return values, nil
	}

	if idCol, _ := t.column("id"); !idCol.required && isEmpty(values["id"]) {
		values["id"] = uuid.NewString()
	}
	if t.createdAt != "" && isEmpty(values[t.createdAt]) {
		values[t.createdAt] = database.FormatTime(s.now())
	}
	for _, col := range t.columns {
		if col.required && isEmpty(values[col.name]) {
			return nil, newAPIError(http.StatusBadRequest, "23502",
				fmt.Sprintf("null value in column \"%s\" of relation \"%s\" violates not-null constraint", col.name, t.name))
		}
	}
	return values, nil
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func decodeRecords(body []byte) ([]row, error) {
	invalid := newAPIError(http.StatusBadRequest, "PGRST102", "Empty or invalid json")
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, invalid
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, invalid.withDetails(err.Error())
	}

	switch v := payload.(type) {
	case map[string]interface{}:
		return []row{v}, nil
	case []interface{}:
		records := make([]row, 0, len(v))
		for _, item := range v {
			record, ok := item.(map[string]interface{})
			if !ok {
				return nil, invalid
			}
			records = append(records, record)
		}
		if len(records) == 0 {
			return nil, invalid
		}
		return records, nil
	default:
		return nil, invalid
	}
}

func (s *Server) fetch(ctx context.Context, t *tableDef, filters []filter, orders []clause.OrderByColumn) ([]row, error) {
	rows := []row{}
	err := s.observe(ctx, "select", t, map[string]interface{}{"filters": len(filters)}, func(db *gorm.DB) error {
		db = applyFilters(db.Table(t.name), filters)
		for _, o := range orders {
			db = db.Order(o)
		}
		return db.Find(&rows).Error
	})
	if err != nil {
		return nil, dbError(err)
	}
	return rows, nil
}

// observe runs one table operation inside a span, with query metrics and a
// debug record per operation. Constraint violations are left to the caller.
func (s *Server) observe(ctx context.Context, op string, t *tableDef, fields map[string]interface{}, fn func(*gorm.DB) error) error {
	ctx, span := observability.TraceRepositoryMethod(ctx, op, t.name, s.db.Dialector.Name())
	defer span.End()
	repo := observability.NewRepoLogger(t.name)

	done := observability.TrackQuery(op, t.name)
	err := fn(s.db.WithContext(ctx))
	done()
	if err != nil {
		span.RecordError(err)
		if !errors.Is(err, gorm.ErrDuplicatedKey) && !errors.Is(err, gorm.ErrForeignKeyViolated) {
			repo.LogError(ctx, err, op)
		}
		return err
	}

	switch op {
	case "insert":
		repo.LogCreate(ctx, fields)
	case "update":
		repo.LogUpdate(ctx, fields)
	default:
		repo.LogRead(ctx, fields)
	}
	return nil
}

// render projects rows to the selected columns and resolves embeds.
func (s *Server) render(ctx context.Context, t *tableDef, sel selection, rows []row) ([]row, error) {
	out := make([]row, len(rows))
	for i, r := range rows {
		out[i] = project(t, sel.columns, r)
	}
	for _, e := range sel.embeds {
		if err := s.attach(ctx, e, rows, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func project(t *tableDef, columns []string, r row) row {
	m := make(row, len(columns))
	for _, name := range columns {
		col, _ := t.column(name)
		m[name] = fromStored(col, r[name])
	}
	return m
}

// attach loads the related rows of e in one query and stores them under
// e.name, or null when the relation has no match.
func (s *Server) attach(ctx context.Context, e embedSelection, rows, out []row) error {
	target := tables[e.rel.table]

	var keys []string
	seen := make(map[string]bool)
	for _, r := range rows {
		if key := stringValue(r[e.rel.localKey]); key != "" && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	related := make(map[string]row, len(keys))
	if len(keys) > 0 {
		found, err := s.fetch(ctx, target, []filter{{column: "id", op: "in", values: keys}}, nil)
		if err != nil {
			return err
		}
		for _, r := range found {
			related[stringValue(r["id"])] = r
		}
	}

	for i, r := range rows {
		if match, ok := related[stringValue(r[e.rel.localKey])]; ok {
			out[i][e.name] = project(target, e.columns, match)
		} else {
			out[i][e.name] = nil
		}
	}
	return nil
}

func respondRows(c *fiber.Ctx, out []row) error {
	if strings.Contains(c.Get(fiber.HeaderAccept), objectMediaType) {
		if len(out) != 1 {
			return newAPIError(http.StatusNotAcceptable, "PGRST116", "JSON object requested, multiple (or no) rows returned").
				withDetails(fmt.Sprintf("The result contains %d rows", len(out)))
		}
		return c.JSON(out[0])
	}
	return c.JSON(out)
}

func dbError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return newAPIError(http.StatusConflict, "23505", "duplicate key value violates unique constraint")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return newAPIError(http.StatusConflict, "23503", "insert or update violates foreign key constraint")
	default:
		return fmt.Errorf("database: %w", err)
	}
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func stringValues(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = stringValue(v)
	}
	return out
}

func orderByIDs(rows []row, ids []interface{}) []row {
	byID := make(map[string]row, len(rows))
	for _, r := range rows {
		byID[stringValue(r["id"])] = r
	}
	ordered := make([]row, 0, len(rows))
	for _, id := range ids {
		if r, ok := byID[stringValue(id)]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered
}
