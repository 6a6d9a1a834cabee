package dto

import (
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/service"
)

// CreateTitleRequest references genres and category by slug
type CreateTitleRequest struct {
	Name        string   `json:"name" binding:"required,max=256"`
	Year        int      `json:"year" binding:"required,notfutureyear"`
	Description string   `json:"description"`
	Genre       []string `json:"genre"`
	Category    string   `json:"category"`
}

func (r CreateTitleRequest) ToInput() service.TitleInput {
	return service.TitleInput{
		Name:        r.Name,
		Year:        r.Year,
		Description: r.Description,
		Genre:       r.Genre,
		Category:    r.Category,
	}
}

// UpdateTitleRequest is a partial update. An empty category clears it.
type UpdateTitleRequest struct {
	Name        *string   `json:"name" binding:"omitempty,max=256"`
	Year        *int      `json:"year" binding:"omitempty,notfutureyear"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre"`
	Category    *string   `json:"category"`
}

func (r UpdateTitleRequest) ToPatch() service.TitlePatch {
	return service.TitlePatch{
		Name:        r.Name,
		Year:        r.Year,
		Description: r.Description,
		Genre:       r.Genre,
		Category:    r.Category,
	}
}

// TitleResponse carries the aggregated rating; null when nobody reviewed it
type TitleResponse struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Year        int            `json:"year"`
	Rating      *float64       `json:"rating"`
	Description string         `json:"description"`
	Genre       []SlugResponse `json:"genre"`
	Category    *SlugResponse  `json:"category"`
}

func FromModelToTitleResponse(t *models.Title) TitleResponse {
	resp := TitleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      t.Rating,
		Description: t.Description,
		Genre:       make([]SlugResponse, 0, len(t.Genres)),
	}
	for i := range t.Genres {
		resp.Genre = append(resp.Genre, FromGenre(&t.Genres[i]))
	}
	if t.Category != nil {
		c := FromCategory(t.Category)
		resp.Category = &c
	}
	return resp
}
