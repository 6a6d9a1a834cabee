package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"yamdb/internal/http-api/repository"
	"yamdb/internal/http-api/service"
	"yamdb/internal/http-api/validation"

	"github.com/gin-gonic/gin"
)

const (
	requestTimeout = 5 * time.Second
	// signup waits for the SMTP exchange
	signupTimeout = 15 * time.Second
)

func withTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}

// respondError renders err by its service kind. Unclassified errors are
// attached to the context for the request logger and hidden from the client.
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": ve.Fields})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrTooManyRequests):
		status = http.StatusTooManyRequests
	case errors.Is(err, service.ErrEmailDelivery):
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not send the confirmation email, try again later"})
		return
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": service.MessageOf(err)})
}

// bindJSON decodes the body into req and reports binding failures per field.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	if fields := validation.FieldErrors(err); fields != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
	}
	return false
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

// pagination reads ?page=&page_size=; bad values fall back to defaults.
func pagination(c *gin.Context) repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(repository.DefaultPageSize)))
	return repository.Pagination{Page: page, PageSize: pageSize}.Normalize()
}
