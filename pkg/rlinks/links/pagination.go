package links

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mikepea/rlinks/pkg/rlinks/models"
)

// Mode selects the column a listing is ordered by, always descending.
type Mode string

const (
	ModeRecency Mode = "id"
	ModeCount   Mode = "count"
	ModeVisits  Mode = "visits"
)

var errBadPagination = errors.New("invalid pagination parameters")

// ParseMode accepts the wire values and their by-* aliases. Empty means recency.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "id", "recency", "by-recency":
		return ModeRecency, nil
	case "count", "by-count":
		return ModeCount, nil
	case "visits", "by-visits":
		return ModeVisits, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", errBadPagination, s)
	}
}

// Column is the ordering column for m.
func (m Mode) Column() string {
	return string(m)
}

// Query is an ordered, offset-limited listing.
type Query struct {
	Mode   Mode
	Offset int
	Limit  int
	// OwnerID restricts the listing to one owner when non-zero.
	OwnerID uint
}

// Order is one ordering term.
type Order struct {
	Column string
	Desc   bool
}

// Orders is the ordering for q. Ties on count or visits are broken by id
// ascending so page boundaries do not move between identical requests.
func (q Query) Orders() []Order {
	if q.Mode == ModeRecency {
		return []Order{{Column: "id", Desc: true}}
	}
	return []Order{
		{Column: q.Mode.Column(), Desc: true},
		{Column: "id", Desc: false},
	}
}

// BuildQuery maps a mode and a 0-based page cursor to a query.
func BuildQuery(mode Mode, cursor, pageSize int) (Query, error) {
	if cursor < 0 {
		return Query{}, fmt.Errorf("%w: negative cursor %d", errBadPagination, cursor)
	}
	if pageSize <= 0 {
		return Query{}, fmt.Errorf("%w: page size %d", errBadPagination, pageSize)
	}
	if cursor > math.MaxInt32/pageSize {
		return Query{}, fmt.Errorf("%w: cursor %d out of range", errBadPagination, cursor)
	}
	switch mode {
	case ModeRecency, ModeCount, ModeVisits:
	default:
		return Query{}, fmt.Errorf("%w: unknown mode %q", errBadPagination, mode)
	}
	return Query{
		Mode:   mode,
		Offset: cursor * pageSize,
		Limit:  pageSize,
	}, nil
}

// Page is one listing response. HasNext is true whenever the page is full,
// so the last page may be followed by an empty one.
type Page struct {
	Links   []models.Link
	HasNext bool
	Cursor  int
}

// NewPage builds the page for results fetched with cursor.
func NewPage(links []models.Link, cursor, pageSize int) Page {
	if links == nil {
		links = []models.Link{}
	}
	return Page{
		Links:   links,
		HasNext: len(links) == pageSize,
		Cursor:  cursor + 1,
	}
}

// Cursor accepts a JSON number or a numeric string. Absent or null is 0.
type Cursor int

func (c *Cursor) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*c = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			*c = 0
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%w: cursor %s", errBadPagination, s)
	}
	*c = Cursor(n)
	return nil
}
