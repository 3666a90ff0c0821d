package newsapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NewsImage is one entry of an item's image gallery.
type NewsImage struct {
	Path string `json:"path"`
}

// NewsItem is a news article as served by the backend.
type NewsItem struct {
	ID          ItemID      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Content     string      `json:"content"`
	Date        string      `json:"date"`
	Author      string      `json:"author"`
	Image       string      `json:"image,omitempty"`
	NewsImages  []NewsImage `json:"news_images,omitempty"`
}

// FirstImage returns the path of the first gallery image, if any.
func (n *NewsItem) FirstImage() (string, bool) {
	if n == nil || len(n.NewsImages) == 0 {
		return "", false
	}
	return n.NewsImages[0].Path, true
}

// ItemID is a news id as the backend encodes it: normally a JSON number,
// sometimes a string. Comparison against URL path segments is loose, the
// way a browser compares a string with a number.
type ItemID struct {
	raw     string
	numeric bool
}

// NumericID returns the ItemID for a numeric backend id.
func NumericID(n int64) ItemID {
	return ItemID{raw: strconv.FormatInt(n, 10), numeric: true}
}

// StringID returns the ItemID for a string backend id.
func StringID(s string) ItemID {
	return ItemID{raw: s}
}

func (id ItemID) String() string {
	return id.raw
}

func (id *ItemID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("news id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("news id: %w", err)
	}
	*id = ItemID{raw: n.String(), numeric: true}
	return nil
}

func (id ItemID) MarshalJSON() ([]byte, error) {
	if !id.numeric {
		return json.Marshal(id.raw)
	}
	if id.raw == "" {
		return []byte("null"), nil
	}
	return []byte(id.raw), nil
}

// Matches reports whether segment loosely equals the id. String ids must
// match exactly; numeric ids match any segment that coerces to the same
// number ("5", " 5", "05", "5.0", "0x5").
func (id ItemID) Matches(segment string) bool {
	if !id.numeric {
		return id.raw == segment
	}
	want, err := strconv.ParseFloat(id.raw, 64)
	if err != nil {
		return false
	}
	got, ok := coerceNumber(segment)
	return ok && got == want
}

func coerceNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			n, err := strconv.ParseUint(s, 0, 64)
			return float64(n), err == nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FindByID returns the first item whose id loosely equals id, or nil.
func FindByID(items []NewsItem, id string) *NewsItem {
	for i := range items {
		if items[i].ID.Matches(id) {
			return &items[i]
		}
	}
	return nil
}

// ImageURL qualifies a stored image path against base. At most one leading
// slash is removed from path.
func ImageURL(base, path string) string {
	return base + strings.TrimPrefix(path, "/")
}
