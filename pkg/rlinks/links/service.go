package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mikepea/rlinks/pkg/rlinks/auth"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
	"github.com/mikepea/rlinks/pkg/rlinks/keygen"
	"github.com/mikepea/rlinks/pkg/rlinks/models"
	"github.com/mikepea/rlinks/pkg/rlinks/preview"
	"github.com/mikepea/rlinks/pkg/rlinks/urlcheck"
)

const (
	DefaultKeyLength   = 7
	DefaultKeyAttempts = 5
	DefaultPageSize    = 10

	MessageInvalidURL        = "Invalid URL!"
	MessageInvalidPagination = "Invalid pagination parameters."
)

var ErrInvalidURL = errors.New("invalid url")

// ReservedKeys are the fixed top-level route segments of the server. A short
// key equal to one of them would be shadowed by that route, so Transform
// never hands one out.
var ReservedKeys = []string{
	"assets", "favicon.ico", "health", "links", "live", "login",
	"metrics", "readyz", "shorten", "swagger", "users",
}

// Observer is told about link lifecycle events; the metrics package
// implements it.
type Observer interface {
	LinkCreated()
	LinkReused()
	LinkVisited()
}

type nopObserver struct{}

func (nopObserver) LinkCreated() {}
func (nopObserver) LinkReused()  {}
func (nopObserver) LinkVisited() {}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	KeyGenerator keygen.Generator
	Preview      preview.Fetcher
	Observer     Observer
	Logger       *slog.Logger
	KeyLength    int
	PageSize     int

	// KeyAttempts bounds the store round trips of one Transform call.
	KeyAttempts int

	// ReservedKeys defaults to the package ReservedKeys.
	ReservedKeys []string
}

// Service implements shortening, listing, deleting and visiting links.
type Service struct {
	store       Store
	keys        keygen.Generator
	previews    preview.Fetcher
	observer    Observer
	logger      *slog.Logger
	keyLength   int
	keyAttempts int
	pageSize    int
	reserved    map[string]bool
}

// NewService creates a new service instance.
func NewService(store Store, cfg ServiceConfig) *Service {
	s := &Service{
		store:       store,
		keys:        cfg.KeyGenerator,
		previews:    cfg.Preview,
		observer:    cfg.Observer,
		logger:      cfg.Logger,
		keyLength:   cfg.KeyLength,
		keyAttempts: cfg.KeyAttempts,
		pageSize:    cfg.PageSize,
	}
	if s.keys == nil {
		s.keys = keygen.NewRandom()
	}
	if s.previews == nil {
		s.previews = preview.Noop{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.keyLength <= 0 {
		s.keyLength = DefaultKeyLength
	}
	if s.keyAttempts <= 0 {
		s.keyAttempts = DefaultKeyAttempts
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	reserved := cfg.ReservedKeys
	if reserved == nil {
		reserved = ReservedKeys
	}
	s.reserved = make(map[string]bool, len(reserved))
	for _, k := range reserved {
		s.reserved[k] = true
	}
	return s
}

// KeyLength is the length of generated short keys.
func (s *Service) KeyLength() int { return s.keyLength }

// PageSize is the number of links per listing page.
func (s *Service) PageSize() int { return s.pageSize }

// Transform returns the link for rawURL, creating it on first sight and
// otherwise adding one to its count. Each call creates exactly one row or
// increments exactly one count.
//
// An insert that loses to a concurrent insert of the same url is retried as
// an increment. An insert that collides on short key, or a key equal to a
// reserved route, is retried with a new key. All share the KeyAttempts bound.
func (s *Service) Transform(ctx context.Context, rawURL string, owner auth.Owner) (models.Link, error) {
	const op = "links.Service.Transform"

	if !urlcheck.IsValid(rawURL) {
		return models.Link{}, errx.Msg(op, errx.Invalid, ErrInvalidURL, MessageInvalidURL)
	}

	var md *preview.Metadata
	for attempt := 1; attempt <= s.keyAttempts; attempt++ {
		existing, err := s.store.FindByURL(ctx, rawURL)
		if err == nil {
			link, err := s.store.IncrementCount(ctx, existing.ID)
			if err == nil {
				s.observer.LinkReused()
				return link, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return models.Link{}, errx.E(op, errx.Internal, err)
			}
			// deleted between lookup and increment
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return models.Link{}, errx.E(op, errx.Internal, err)
		}

		if md == nil {
			fetched := s.fetchPreview(ctx, rawURL)
			md = &fetched
		}

		key := s.keys.Generate(s.keyLength)
		if s.reserved[key] {
			s.logger.DebugContext(ctx, "generated key is a reserved route, retrying",
				"attempt", attempt, "key", key)
			continue
		}

		link, err := s.store.Create(ctx, NewLink{
			URL:      rawURL,
			ShortKey: key,
			Owner:    owner,
			Preview:  *md,
		})
		if err == nil {
			s.observer.LinkCreated()
			return link, nil
		}
		if !errors.Is(err, ErrConflict) {
			return models.Link{}, errx.E(op, errx.KindOf(err), err)
		}
		s.logger.DebugContext(ctx, "link insert conflicted, retrying",
			"attempt", attempt, "url", rawURL)
	}

	return models.Link{}, errx.E(op, errx.Internal,
		fmt.Errorf("could not store link after %d attempts", s.keyAttempts))
}

func (s *Service) fetchPreview(ctx context.Context, rawURL string) preview.Metadata {
	md, err := s.previews.Fetch(ctx, rawURL)
	if err != nil {
		s.logger.DebugContext(ctx, "preview fetch failed", "url", rawURL, "error", err)
		return preview.Metadata{}
	}
	return md
}

// ListRequest is one page request.
type ListRequest struct {
	Mode   string
	Cursor int
	// Mine restricts the page to the caller's links; it is ignored for
	// anonymous callers.
	Mine bool
}

// List returns one page of links.
func (s *Service) List(ctx context.Context, req ListRequest, owner auth.Owner) (Page, error) {
	const op = "links.Service.List"

	mode, err := ParseMode(req.Mode)
	if err != nil {
		return Page{}, errx.Msg(op, errx.Invalid, err, MessageInvalidPagination)
	}
	q, err := BuildQuery(mode, req.Cursor, s.pageSize)
	if err != nil {
		return Page{}, errx.Msg(op, errx.Invalid, err, MessageInvalidPagination)
	}
	if req.Mine {
		if id, ok := owner.UserID(); ok {
			q.OwnerID = id
		}
	}

	links, err := s.store.List(ctx, q)
	if err != nil {
		return Page{}, errx.E(op, errx.Internal, err)
	}
	return NewPage(links, req.Cursor, s.pageSize), nil
}

// Delete removes a link owned by requester. Every refusal, including an
// unknown id, is the same Unauthorized error.
func (s *Service) Delete(ctx context.Context, linkID uint, requester auth.Owner) error {
	const op = "links.Service.Delete"

	userID, ok := requester.UserID()
	if !ok {
		return errx.E(op, errx.Unauthorized, errors.New("anonymous delete"))
	}

	link, err := s.store.FindByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errx.E(op, errx.Unauthorized, err)
		}
		return errx.E(op, errx.Internal, err)
	}
	if link.User.IsPublic() {
		return errx.E(op, errx.Unauthorized, errors.New("link owned by the public user"))
	}
	if link.UserID != userID {
		return errx.E(op, errx.Unauthorized, errors.New("link owned by another user"))
	}

	if err := s.store.DeleteOwned(ctx, linkID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errx.E(op, errx.Unauthorized, err)
		}
		return errx.E(op, errx.Internal, err)
	}
	return nil
}

// Visit records one redirect through shortKey and returns the link.
func (s *Service) Visit(ctx context.Context, shortKey string) (models.Link, error) {
	const op = "links.Service.Visit"

	if shortKey == "" {
		return models.Link{}, errx.E(op, errx.NotFound, ErrNotFound)
	}
	link, err := s.store.Visit(ctx, shortKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Link{}, errx.E(op, errx.NotFound, err)
		}
		return models.Link{}, errx.E(op, errx.Internal, err)
	}
	s.observer.LinkVisited()
	return link, nil
}
