package service

import (
	"context"
	"errors"
	"fmt"

	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/http-api/validation"
)

type CategoryService interface {
	List(ctx context.Context, search string, page repository.Pagination) ([]models.Category, int64, error)
	Create(ctx context.Context, name, slug string) (*models.Category, error)
	Delete(ctx context.Context, slug string) error
}

type GenreService interface {
	List(ctx context.Context, search string, page repository.Pagination) ([]models.Genre, int64, error)
	Create(ctx context.Context, name, slug string) (*models.Genre, error)
	Delete(ctx context.Context, slug string) error
}

func validateNameSlug(name, slug string) error {
	fields := fieldErrors{}
	switch {
	case name == "":
		fields.add("name", errRequired)
	case len([]rune(name)) > validation.NameMaxLength:
		fields.add("name", fmt.Errorf("Ensure this field has no more than %d characters.", validation.NameMaxLength))
	}
	if slug == "" {
		fields.add("slug", errRequired)
	} else {
		fields.add("slug", validation.ValidateSlug(slug))
	}
	return fields.err()
}

func slugTaken(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return &ValidationError{Fields: map[string][]string{"slug": {"This slug is already in use."}}}
	}
	return err
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) List(ctx context.Context, search string, page repository.Pagination) ([]models.Category, int64, error) {
	return s.repo.List(ctx, search, page)
}

func (s *categoryService) Create(ctx context.Context, name, slug string) (*models.Category, error) {
	if err := validateNameSlug(name, slug); err != nil {
		return nil, err
	}
	c := &models.Category{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, slugTaken(err)
	}
	return c, nil
}

func (s *categoryService) Delete(ctx context.Context, slug string) error {
	return notFound(s.repo.DeleteBySlug(ctx, slug), "category")
}

type genreService struct {
	repo repository.GenreRepository
}

func NewGenreService(repo repository.GenreRepository) GenreService {
	return &genreService{repo: repo}
}

func (s *genreService) List(ctx context.Context, search string, page repository.Pagination) ([]models.Genre, int64, error) {
	return s.repo.List(ctx, search, page)
}

func (s *genreService) Create(ctx context.Context, name, slug string) (*models.Genre, error) {
	if err := validateNameSlug(name, slug); err != nil {
		return nil, err
	}
	g := &models.Genre{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, slugTaken(err)
	}
	return g, nil
}

func (s *genreService) Delete(ctx context.Context, slug string) error {
	return notFound(s.repo.DeleteBySlug(ctx, slug), "genre")
}
