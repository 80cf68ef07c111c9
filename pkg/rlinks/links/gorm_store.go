package links

import (
	"context"
	"errors"
	"strings"

	"github.com/mikepea/rlinks/pkg/rlinks/auth"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
	"github.com/mikepea/rlinks/pkg/rlinks/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on gorm. The anonymous owner becomes the public
// user row here and nowhere else.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new gorm-backed link store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) FindByURL(ctx context.Context, url string) (models.Link, error) {
	const op = "links.GormStore.FindByURL"
	var link models.Link
	if err := s.db.WithContext(ctx).Where("url = ?", url).First(&link).Error; err != nil {
		return models.Link{}, notFoundOr(op, err)
	}
	return link, nil
}

func (s *GormStore) FindByID(ctx context.Context, id uint) (models.Link, error) {
	const op = "links.GormStore.FindByID"
	var link models.Link
	if err := s.db.WithContext(ctx).Preload("User").First(&link, id).Error; err != nil {
		return models.Link{}, notFoundOr(op, err)
	}
	return link, nil
}

func (s *GormStore) Create(ctx context.Context, nl NewLink) (models.Link, error) {
	const op = "links.GormStore.Create"
	db := s.db.WithContext(ctx)

	ownerID, err := s.ownerID(db, nl.Owner)
	if err != nil {
		return models.Link{}, err
	}

	link := models.Link{
		URL:         nl.URL,
		ShortKey:    nl.ShortKey,
		Title:       nl.Preview.Title,
		Description: nl.Preview.Description,
		Image:       nl.Preview.Image,
		Count:       1,
		Visits:      0,
		UserID:      ownerID,
	}
	if err := db.Create(&link).Error; err != nil {
		if isUniqueViolation(err) {
			return models.Link{}, errx.E(op, errx.Internal, errors.Join(ErrConflict, err))
		}
		return models.Link{}, errx.E(op, errx.Internal, err)
	}
	return link, nil
}

func (s *GormStore) IncrementCount(ctx context.Context, id uint) (models.Link, error) {
	const op = "links.GormStore.IncrementCount"
	db := s.db.WithContext(ctx)

	res := db.Model(&models.Link{}).Where("id = ?", id).
		UpdateColumn("count", gorm.Expr("? + 1", clause.Column{Name: "count"}))
	if res.Error != nil {
		return models.Link{}, errx.E(op, errx.Internal, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Link{}, errx.E(op, errx.NotFound, ErrNotFound)
	}

	var link models.Link
	if err := db.First(&link, id).Error; err != nil {
		return models.Link{}, notFoundOr(op, err)
	}
	return link, nil
}

func (s *GormStore) Visit(ctx context.Context, shortKey string) (models.Link, error) {
	const op = "links.GormStore.Visit"
	db := s.db.WithContext(ctx)

	res := db.Model(&models.Link{}).Where("short_key = ?", shortKey).
		UpdateColumn("visits", gorm.Expr("? + 1", clause.Column{Name: "visits"}))
	if res.Error != nil {
		return models.Link{}, errx.E(op, errx.Internal, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Link{}, errx.E(op, errx.NotFound, ErrNotFound)
	}

	var link models.Link
	if err := db.Where("short_key = ?", shortKey).First(&link).Error; err != nil {
		return models.Link{}, notFoundOr(op, err)
	}
	return link, nil
}

func (s *GormStore) DeleteOwned(ctx context.Context, id, userID uint) error {
	const op = "links.GormStore.DeleteOwned"
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Link{})
	if res.Error != nil {
		return errx.E(op, errx.Internal, res.Error)
	}
	if res.RowsAffected == 0 {
		return errx.E(op, errx.NotFound, ErrNotFound)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, q Query) ([]models.Link, error) {
	const op = "links.GormStore.List"

	query := s.db.WithContext(ctx).Model(&models.Link{})
	if q.OwnerID != 0 {
		query = query.Where("user_id = ?", q.OwnerID)
	}
	orders := q.Orders()
	columns := make([]clause.OrderByColumn, len(orders))
	for i, o := range orders {
		columns[i] = clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc}
	}
	query = query.Order(clause.OrderBy{Columns: columns}).Offset(q.Offset).Limit(q.Limit)

	var links []models.Link
	if err := query.Find(&links).Error; err != nil {
		return nil, errx.E(op, errx.Internal, err)
	}
	return links, nil
}

// ownerID resolves the user row a new link belongs to.
func (s *GormStore) ownerID(db *gorm.DB, owner auth.Owner) (uint, error) {
	const op = "links.GormStore.ownerID"

	userID, registered := owner.UserID()
	if !registered {
		public, err := models.EnsurePublicUser(db)
		if err != nil {
			return 0, errx.E(op, errx.Internal, err)
		}
		return public.ID, nil
	}

	var user models.User
	if err := db.Select("id", "username").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errx.E(op, errx.Unauthorized, ErrOwnerNotFound)
		}
		return 0, errx.E(op, errx.Internal, err)
	}
	// a token naming the public row is not a registered owner
	if user.IsPublic() {
		return 0, errx.E(op, errx.Unauthorized, ErrOwnerNotFound)
	}
	return user.ID, nil
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errx.E(op, errx.NotFound, ErrNotFound)
	}
	return errx.E(op, errx.Internal, err)
}

// isUniqueViolation matches the translated gorm error, and the raw driver
// messages for connections opened without TranslateError.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
