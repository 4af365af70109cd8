package devbackend

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"mvp/internal/database"
	"mvp/internal/models"
)

type columnKind int

const (
	textColumn columnKind = iota
	timeColumn
	jsonColumn
	numberColumn
)

type column struct {
	name     string
	kind     columnKind
	required bool
}

// embed describes a to-one relation that can be requested in select, e.g.
// posts?select=*,profiles(username).
type embed struct {
	table    string
	localKey string
}

type tableDef struct {
	name      string
	columns   []column
	readOnly  bool
	createdAt string
	embeds    map[string]embed
}

func (t *tableDef) column(name string) (column, bool) {
	for _, c := range t.columns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

func (t *tableDef) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

var authorEmbed = map[string]embed{"profiles": {table: "profiles", localKey: "user_id"}}

var tables = map[string]*tableDef{
	"profiles": {
		name: "profiles",
		columns: []column{
			{name: "id", required: true},
			{name: "email"},
			{name: "username", required: true},
			{name: "name"},
			{name: "profile_image"},
			{name: "interests", kind: jsonColumn},
			{name: "role"},
			{name: "created_at", kind: timeColumn},
		},
		createdAt: "created_at",
	},
	"posts": {
		name: "posts",
		columns: []column{
			{name: "id"},
			{name: "user_id", required: true},
			{name: "media_url"},
			{name: "message"},
			{name: "created_at", kind: timeColumn},
		},
		createdAt: "created_at",
		embeds:    authorEmbed,
	},
	"events": {
		name: "events",
		columns: []column{
			{name: "id"},
			{name: "creator_id"},
			{name: "title", required: true},
			{name: "description"},
			{name: "location"},
			{name: "event_date", kind: timeColumn},
			{name: "price", kind: numberColumn},
			{name: "ticket_info"},
			{name: "event_image"},
			{name: "created_at", kind: timeColumn},
		},
		createdAt: "created_at",
	},
	"comments": {
		name: "comments",
		columns: []column{
			{name: "id"},
			{name: "post_id", required: true},
			{name: "user_id", required: true},
			{name: "comment", required: true},
			{name: "created_at", kind: timeColumn},
			{name: "parent_comment_id"},
		},
		createdAt: "created_at",
		embeds:    authorEmbed,
	},
	"likes": {
		name: "likes",
		columns: []column{
			{name: "id"},
			{name: "post_id", required: true},
			{name: "user_id", required: true},
			{name: "created_at", kind: timeColumn},
		},
		createdAt: "created_at",
	},
	"comment_likes": {
		name: "comment_likes",
		columns: []column{
			{name: "id"},
			{name: "comment_id", required: true},
			{name: "user_id", required: true},
			{name: "created_at", kind: timeColumn},
		},
		createdAt: "created_at",
	},
	database.SocialPostsView: {
		name: database.SocialPostsView,
		columns: []column{
			{name: "id"},
			{name: "userId"},
			{name: "mediaUrl"},
			{name: "message"},
			{name: "createdAt", kind: timeColumn},
			{name: "username"},
			{name: "profileImage"},
		},
		readOnly: true,
	},
}

// toStored converts a decoded JSON value into the value written to col.
func toStored(col column, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch col.kind {
	case timeColumn:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("column %s expects a timestamp string", col.name)
		}
		t, err := models.ParseTimestamp(s)
		if err != nil {
			return nil, err
		}
		return database.FormatTime(t), nil
	case jsonColumn:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.name, err)
		}
		return string(raw), nil
	case numberColumn:
		switch n := v.(type) {
		case json.Number:
			return n.Float64()
		case float64:
			return n, nil
		default:
			return nil, fmt.Errorf("column %s expects a number", col.name)
		}
	default:
		switch s := v.(type) {
		case string:
			return s, nil
		case json.Number:
			return s.String(), nil
		case bool:
			return strconv.FormatBool(s), nil
		default:
			return nil, fmt.Errorf("column %s expects a string", col.name)
		}
	}
}

// fromStored converts a scanned database value into its JSON form.
func fromStored(col column, v interface{}) interface{} {
	switch b := v.(type) {
	case nil:
		return nil
	case []byte:
		v = string(b)
	case sql.RawBytes:
		v = string(b)
	case time.Time:
		v = database.FormatTime(b)
	}

	switch col.kind {
	case jsonColumn:
		s, ok := v.(string)
		if !ok {
			return v
		}
		var out interface{}
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil
		}
		return out
	case numberColumn:
		switch n := v.(type) {
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
		case int64:
			return float64(n)
		}
		return v
	default:
		return v
	}
}
