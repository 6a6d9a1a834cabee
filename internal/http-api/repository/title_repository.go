package repository

import (
	"context"
	"fmt"

	"yamdb/internal/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TitleFilter narrows a title listing. Zero values disable a filter.
type TitleFilter struct {
	Name     string
	Year     *int
	Genre    string
	Category string
}

type TitleRepository interface {
	// List returns titles with their aggregated rating.
	List(ctx context.Context, filter TitleFilter, page Pagination) ([]models.Title, int64, error)
	// FindByID returns one title with its aggregated rating.
	FindByID(ctx context.Context, id int64) (*models.Title, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, title *models.Title) error
	// Update writes fields and, when genres is non-nil, replaces the genre set.
	Update(ctx context.Context, id int64, fields map[string]any, genres []models.Genre) error
	Delete(ctx context.Context, id int64) error
}

type titleRepository struct {
	db *gorm.DB
}

func NewTitleRepository(db *gorm.DB) TitleRepository {
	return &titleRepository{db: db}
}

// withRating projects the mean review score onto each title. Titles without
// reviews get a NULL rating.
func withRating(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Title{}).
		Select("titles.*, AVG(reviews.score)::float8 AS rating").
		Joins("LEFT JOIN reviews ON reviews.title_id = titles.id").
		Group("titles.id")
}

func (r *titleRepository) applyFilter(ctx context.Context, q *gorm.DB, f TitleFilter) *gorm.DB {
	if f.Name != "" {
		q = q.Where("titles.name ILIKE ?", "%"+escapeLike(f.Name)+"%")
	}
	if f.Year != nil {
		q = q.Where("titles.year = ?", *f.Year)
	}
	if f.Category != "" {
		q = q.Where("titles.category_id IN (?)",
			r.db.WithContext(ctx).Model(&models.Category{}).Select("id").Where("slug = ?", f.Category))
	}
	if f.Genre != "" {
		q = q.Where(`EXISTS (
			SELECT 1 FROM title_genres tg
			JOIN genres g ON g.id = tg.genre_id
			WHERE tg.title_id = titles.id AND g.slug = ?)`, f.Genre)
	}
	return q
}

func (r *titleRepository) List(ctx context.Context, filter TitleFilter, page Pagination) ([]models.Title, int64, error) {
	var (
		titles []models.Title
		total  int64
	)

	count := r.applyFilter(ctx, r.db.WithContext(ctx).Model(&models.Title{}), filter)
	if err := count.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	q := r.applyFilter(ctx, withRating(r.db.WithContext(ctx)), filter)
	if err := q.Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name ASC") }).
		Order("titles.name ASC, titles.id ASC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&titles).Error; err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}

	return titles, total, nil
}

func (r *titleRepository) FindByID(ctx context.Context, id int64) (*models.Title, error) {
	var title models.Title
	if err := withRating(r.db.WithContext(ctx)).
		Where("titles.id = ?", id).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name ASC") }).
		Take(&title).Error; err != nil {
		return nil, err
	}
	return &title, nil
}

func (r *titleRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Title{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check title: %w", err)
	}
	return n > 0, nil
}

func (r *titleRepository) Create(ctx context.Context, title *models.Title) error {
	// link existing genres without upserting them
	if err := r.db.WithContext(ctx).Omit("Category", "Genres.*").Create(title).Error; err != nil {
		return fmt.Errorf("create title: %w", translate(err))
	}
	return nil
}

func (r *titleRepository) Update(ctx context.Context, id int64, fields map[string]any, genres []models.Genre) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var title models.Title
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&title, "id = ?", id).Error; err != nil {
			return err
		}

		if len(fields) > 0 {
			if err := tx.Model(&title).Omit(clause.Associations).Updates(fields).Error; err != nil {
				return fmt.Errorf("update title: %w", translate(err))
			}
		}

		if genres != nil {
			if err := tx.Model(&title).Association("Genres").Replace(genres); err != nil {
				return fmt.Errorf("replace title genres: %w", err)
			}
		}
		return nil
	})
}

func (r *titleRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Title{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete title: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
