package links

import (
	"context"
	"errors"

	"github.com/mikepea/rlinks/pkg/rlinks/auth"
	"github.com/mikepea/rlinks/pkg/rlinks/models"
	"github.com/mikepea/rlinks/pkg/rlinks/preview"
)

var (
	// ErrNotFound is returned when no link matches.
	ErrNotFound = errors.New("link not found")
	// ErrConflict is returned by Create when the url or short key is taken.
	ErrConflict = errors.New("link already exists")
	// ErrOwnerNotFound is returned by Create when a registered owner has no user row.
	ErrOwnerNotFound = errors.New("owner not found")
)

// NewLink is everything needed to insert a link row.
type NewLink struct {
	URL      string
	ShortKey string
	Owner    auth.Owner
	Preview  preview.Metadata
}

// Store is the persistence the link service needs. Increments are atomic at
// the store; nothing reads a counter and writes it back.
type Store interface {
	FindByURL(ctx context.Context, url string) (models.Link, error)
	// FindByID loads the link with its owner.
	FindByID(ctx context.Context, id uint) (models.Link, error)
	Create(ctx context.Context, link NewLink) (models.Link, error)
	// IncrementCount adds one to count and returns the updated row.
	IncrementCount(ctx context.Context, id uint) (models.Link, error)
	// Visit adds one to visits for shortKey and returns the updated row.
	Visit(ctx context.Context, shortKey string) (models.Link, error)
	// DeleteOwned removes link id if userID owns it; otherwise ErrNotFound.
	DeleteOwned(ctx context.Context, id, userID uint) error
	List(ctx context.Context, q Query) ([]models.Link, error)
}
