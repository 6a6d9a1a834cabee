package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/http-api/validation"

	"gorm.io/gorm"
)

// TitleInput creates a title. Genre and Category are slugs.
type TitleInput struct {
	Name        string
	Year        int
	Description string
	Genre       []string
	Category    string
}

// TitlePatch holds the fields to change; nil means unchanged. An empty
// Category clears it.
type TitlePatch struct {
	Name        *string
	Year        *int
	Description *string
	Genre       *[]string
	Category    *string
}

type TitleService interface {
	List(ctx context.Context, filter repository.TitleFilter, page repository.Pagination) ([]models.Title, int64, error)
	Get(ctx context.Context, id int64) (*models.Title, error)
	Create(ctx context.Context, in TitleInput) (*models.Title, error)
	Update(ctx context.Context, id int64, patch TitlePatch) (*models.Title, error)
	Delete(ctx context.Context, id int64) error
}

type titleService struct {
	titles     repository.TitleRepository
	genres     repository.GenreRepository
	categories repository.CategoryRepository
	now        func() time.Time
}

func NewTitleService(
	titles repository.TitleRepository,
	genres repository.GenreRepository,
	categories repository.CategoryRepository,
) TitleService {
	return &titleService{
		titles:     titles,
		genres:     genres,
		categories: categories,
		now:        time.Now,
	}
}

func (s *titleService) List(ctx context.Context, filter repository.TitleFilter, page repository.Pagination) ([]models.Title, int64, error) {
	return s.titles.List(ctx, filter, page)
}

func (s *titleService) Get(ctx context.Context, id int64) (*models.Title, error) {
	title, err := s.titles.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "title")
	}
	return title, nil
}

func (s *titleService) validateName(name string, fields fieldErrors) {
	switch {
	case name == "":
		fields.add("name", errRequired)
	case len([]rune(name)) > validation.NameMaxLength:
		fields.add("name", fmt.Errorf("Ensure this field has no more than %d characters.", validation.NameMaxLength))
	}
}

// resolveGenres loads every slug or records the unknown ones.
func (s *titleService) resolveGenres(ctx context.Context, slugs []string, fields fieldErrors) ([]models.Genre, error) {
	unique := make([]string, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		if !seen[slug] {
			seen[slug] = true
			unique = append(unique, slug)
		}
	}

	genres, err := s.genres.FindBySlugs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(genres) == len(unique) {
		return genres, nil
	}

	found := make(map[string]bool, len(genres))
	for _, g := range genres {
		found[g.Slug] = true
	}
	var missing []string
	for _, slug := range unique {
		if !found[slug] {
			missing = append(missing, slug)
		}
	}
	sort.Strings(missing)
	for _, slug := range missing {
		fields.add("genre", fmt.Errorf("Unknown genre slug %q.", slug))
	}
	return genres, nil
}

// resolveCategory returns nil for an empty slug.
func (s *titleService) resolveCategory(ctx context.Context, slug string, fields fieldErrors) (*models.Category, error) {
	if slug == "" {
		return nil, nil
	}
	c, err := s.categories.FindBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fields.add("category", fmt.Errorf("Unknown category slug %q.", slug))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *titleService) Create(ctx context.Context, in TitleInput) (*models.Title, error) {
	fields := fieldErrors{}
	s.validateName(in.Name, fields)
	fields.add("year", validation.ValidateYear(in.Year, s.now()))

	genres, err := s.resolveGenres(ctx, in.Genre, fields)
	if err != nil {
		return nil, err
	}
	category, err := s.resolveCategory(ctx, in.Category, fields)
	if err != nil {
		return nil, err
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	title := &models.Title{
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
		Genres:      genres,
	}
	if category != nil {
		title.CategoryID = &category.ID
	}

	if err := s.titles.Create(ctx, title); err != nil {
		return nil, err
	}
	return s.Get(ctx, title.ID)
}

func (s *titleService) Update(ctx context.Context, id int64, patch TitlePatch) (*models.Title, error) {
	exists, err := s.titles.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, newError(ErrNotFound, "title not found")
	}

	fields := fieldErrors{}
	updates := map[string]any{}

	if patch.Name != nil {
		s.validateName(*patch.Name, fields)
		updates["name"] = *patch.Name
	}
	if patch.Year != nil {
		fields.add("year", validation.ValidateYear(*patch.Year, s.now()))
		updates["year"] = *patch.Year
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Category != nil {
		category, err := s.resolveCategory(ctx, *patch.Category, fields)
		if err != nil {
			return nil, err
		}
		if category != nil {
			updates["category_id"] = category.ID
		} else {
			updates["category_id"] = nil
		}
	}

	var genres []models.Genre
	if patch.Genre != nil {
		genres, err = s.resolveGenres(ctx, *patch.Genre, fields)
		if err != nil {
			return nil, err
		}
		if genres == nil {
			// non-nil tells the repository to replace with an empty set
			genres = []models.Genre{}
		}
	}

	if err := fields.err(); err != nil {
		return nil, err
	}

	if err := s.titles.Update(ctx, id, updates, genres); err != nil {
		return nil, notFound(err, "title")
	}
	return s.Get(ctx, id)
}

func (s *titleService) Delete(ctx context.Context, id int64) error {
	return notFound(s.titles.Delete(ctx, id), "title")
}
