package handler

import (
	"net/http"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/middleware"
	"yamdb/internal/http-api/policy"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	categoryService service.CategoryService
}

func NewCategoryHandler(categoryService service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (h *CategoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	categories := router.Group("/categories", middleware.Authorize(policy.PublicReadAdminWrite{}))
	{
		categories.GET("", h.List)
		categories.POST("", h.Create)
		categories.DELETE("/:slug", h.Delete)
	}
}

// GET /api/v1/categories/?search=
func (h *CategoryHandler) List(c *gin.Context) {
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	page := pagination(c)
	items, total, err := h.categoryService.List(ctx, c.Query("search"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(items, total, page, dto.FromCategory))
}

// POST /api/v1/categories/
func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CreateSlugRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	category, err := h.categoryService.Create(ctx, req.Name, req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromCategory(category))
}

// DELETE /api/v1/categories/:slug/
func (h *CategoryHandler) Delete(c *gin.Context) {
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	if err := h.categoryService.Delete(ctx, c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type GenreHandler struct {
	genreService service.GenreService
}

func NewGenreHandler(genreService service.GenreService) *GenreHandler {
	return &GenreHandler{genreService: genreService}
}

func (h *GenreHandler) RegisterRoutes(router *gin.RouterGroup) {
	genres := router.Group("/genres", middleware.Authorize(policy.PublicReadAdminWrite{}))
	{
		genres.GET("", h.List)
		genres.POST("", h.Create)
		genres.DELETE("/:slug", h.Delete)
	}
}

// GET /api/v1/genres/?search=
func (h *GenreHandler) List(c *gin.Context) {
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	page := pagination(c)
	items, total, err := h.genreService.List(ctx, c.Query("search"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(items, total, page, dto.FromGenre))
}

// POST /api/v1/genres/
func (h *GenreHandler) Create(c *gin.Context) {
	var req dto.CreateSlugRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	genre, err := h.genreService.Create(ctx, req.Name, req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromGenre(genre))
}

// DELETE /api/v1/genres/:slug/
func (h *GenreHandler) Delete(c *gin.Context) {
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	if err := h.genreService.Delete(ctx, c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
