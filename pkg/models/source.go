package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownTitle is shown for sources whose page had no usable title.
const UnknownTitle = "Unknown"

// Source is a cited web page. Slice order is citation order.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewSource builds a Source, defaulting an empty title to UnknownTitle.
func NewSource(title, url string) Source {
	title = strings.TrimSpace(title)
	if title == "" {
		title = UnknownTitle
	}
	return Source{Title: title, URL: strings.TrimSpace(url)}
}

// Sources is stored as a JSON array in SQL backends.
type Sources []Source

func (s Sources) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Source(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Sources) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = Sources{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Sources", src)
	}
	if len(raw) == 0 {
		*s = Sources{}
		return nil
	}
	var out []Source
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode sources: %w", err)
	}
	if out == nil {
		out = []Source{}
	}
	*s = out
	return nil
}
