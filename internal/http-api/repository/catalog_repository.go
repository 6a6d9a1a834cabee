package repository

import (
	"context"
	"fmt"

	"yamdb/internal/http-api/models"

	"gorm.io/gorm"
)

type CategoryRepository interface {
	List(ctx context.Context, search string, page Pagination) ([]models.Category, int64, error)
	Create(ctx context.Context, c *models.Category) error
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

type GenreRepository interface {
	List(ctx context.Context, search string, page Pagination) ([]models.Genre, int64, error)
	Create(ctx context.Context, g *models.Genre) error
	FindBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

type CategoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) List(ctx context.Context, search string, page Pagination) ([]models.Category, int64, error) {
	var list []models.Category
	total, err := listBySearch(r.db.WithContext(ctx).Model(&models.Category{}), search, page, &list)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	return list, total, nil
}

func (r *CategoryRepo) Create(ctx context.Context, c *models.Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create category: %w", translate(err))
	}
	return nil
}

func (r *CategoryRepo) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteBySlug removes the category; titles keep existing with no category.
func (r *CategoryRepo) DeleteBySlug(ctx context.Context, slug string) error {
	return deleteBySlug(r.db.WithContext(ctx), slug, &models.Category{})
}

type GenreRepo struct {
	db *gorm.DB
}

func NewGenreRepo(db *gorm.DB) *GenreRepo {
	return &GenreRepo{db: db}
}

func (r *GenreRepo) List(ctx context.Context, search string, page Pagination) ([]models.Genre, int64, error) {
	var list []models.Genre
	total, err := listBySearch(r.db.WithContext(ctx).Model(&models.Genre{}), search, page, &list)
	if err != nil {
		return nil, 0, fmt.Errorf("get genres: %w", err)
	}
	return list, total, nil
}

func (r *GenreRepo) Create(ctx context.Context, g *models.Genre) error {
	if err := r.db.WithContext(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create genre: %w", translate(err))
	}
	return nil
}

// FindBySlugs returns the genres matching slugs. Unknown slugs are skipped,
// callers compare lengths to detect them.
func (r *GenreRepo) FindBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error) {
	var list []models.Genre
	if len(slugs) == 0 {
		return list, nil
	}
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Order("name asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("get genres by slug: %w", err)
	}
	return list, nil
}

func (r *GenreRepo) DeleteBySlug(ctx context.Context, slug string) error {
	return deleteBySlug(r.db.WithContext(ctx), slug, &models.Genre{})
}

func listBySearch(q *gorm.DB, search string, page Pagination, dest any) (int64, error) {
	if search != "" {
		q = q.Where("name ILIKE ?", "%"+escapeLike(search)+"%")
	}
	// new session so Count and Find each start from the filtered statement
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, err
	}

	if err := q.Order("name asc").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func deleteBySlug(db *gorm.DB, slug string, model any) error {
	result := db.Where("slug = ?", slug).Delete(model)
	if result.Error != nil {
		return fmt.Errorf("delete by slug: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
