package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/policy"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/http-api/validation"
	"yamdb/internal/observability/metrics"
)

var errReviewExists = newError(ErrConflict, "you have already reviewed this title")

// ReviewPatch holds the fields to change; nil means unchanged.
type ReviewPatch struct {
	Text  *string
	Score *int
}

type ReviewService interface {
	List(ctx context.Context, titleID int64, page repository.Pagination) ([]models.Review, int64, error)
	Get(ctx context.Context, titleID, reviewID int64) (*models.Review, error)
	// Create adds actor's review of the title. Each author reviews a title once.
	Create(ctx context.Context, actor policy.Actor, titleID int64, text string, score int) (*models.Review, error)
	Update(ctx context.Context, actor policy.Actor, titleID, reviewID int64, patch ReviewPatch) (*models.Review, error)
	Delete(ctx context.Context, actor policy.Actor, titleID, reviewID int64) error
}

type reviewService struct {
	reviews repository.ReviewRepository
	titles  repository.TitleRepository
	policy  policy.Policy
	logger  *slog.Logger
}

func NewReviewService(
	reviews repository.ReviewRepository,
	titles repository.TitleRepository,
	p policy.Policy,
	logger *slog.Logger,
) ReviewService {
	return &reviewService{reviews: reviews, titles: titles, policy: p, logger: logger}
}

func (s *reviewService) requireTitle(ctx context.Context, titleID int64) error {
	exists, err := s.titles.Exists(ctx, titleID)
	if err != nil {
		return err
	}
	if !exists {
		return newError(ErrNotFound, "title not found")
	}
	return nil
}

func (s *reviewService) List(ctx context.Context, titleID int64, page repository.Pagination) ([]models.Review, int64, error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, 0, err
	}
	return s.reviews.ListByTitle(ctx, titleID, page)
}

func (s *reviewService) Get(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	review, err := s.reviews.FindByID(ctx, titleID, reviewID)
	if err != nil {
		return nil, notFound(err, "review")
	}
	return review, nil
}

func validateReview(text *string, score *int) error {
	fields := fieldErrors{}
	if text != nil && strings.TrimSpace(*text) == "" {
		fields.add("text", errRequired)
	}
	if score != nil {
		fields.add("score", validation.ValidateScore(*score))
	}
	return fields.err()
}

func (s *reviewService) Create(ctx context.Context, actor policy.Actor, titleID int64, text string, score int) (*models.Review, error) {
	result := metrics.ResultSuccess
	defer func() {
		metrics.ReviewsCreatedTotal.WithLabelValues(result).Inc()
	}()

	if err := fromPolicy(s.policy.AllowObject(actor, policy.ActionCreate, "")); err != nil {
		result = metrics.ResultRejected
		return nil, err
	}
	if err := validateReview(&text, &score); err != nil {
		result = metrics.ResultRejected
		return nil, err
	}
	if err := s.requireTitle(ctx, titleID); err != nil {
		result = metrics.ResultRejected
		return nil, err
	}

	exists, err := s.reviews.ExistsByAuthor(ctx, titleID, actor.UserID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if exists {
		result = metrics.ResultConflict
		return nil, errReviewExists
	}

	review := &models.Review{
		TitleID:  titleID,
		AuthorID: actor.UserID,
		Text:     text,
		Score:    score,
	}
	// the unique index decides races the pre-check cannot see
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			result = metrics.ResultConflict
			return nil, errReviewExists
		}
		result = metrics.ResultError
		return nil, err
	}
	review.Author = &models.User{ID: actor.UserID, Username: actor.Username}

	s.logger.InfoContext(ctx, "review created", "review_id", review.ID, "title_id", titleID, "author_id", actor.UserID)
	return review, nil
}

func (s *reviewService) Update(ctx context.Context, actor policy.Actor, titleID, reviewID int64, patch ReviewPatch) (*models.Review, error) {
	review, err := s.Get(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := fromPolicy(s.policy.AllowObject(actor, policy.ActionUpdate, review.AuthorID)); err != nil {
		return nil, err
	}
	if err := validateReview(patch.Text, patch.Score); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.Text != nil {
		updates["text"] = *patch.Text
	}
	if patch.Score != nil {
		updates["score"] = *patch.Score
	}
	if err := s.reviews.Update(ctx, review.ID, updates); err != nil {
		return nil, notFound(err, "review")
	}
	return s.Get(ctx, titleID, reviewID)
}

func (s *reviewService) Delete(ctx context.Context, actor policy.Actor, titleID, reviewID int64) error {
	review, err := s.Get(ctx, titleID, reviewID)
	if err != nil {
		return err
	}
	if err := fromPolicy(s.policy.AllowObject(actor, policy.ActionDelete, review.AuthorID)); err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		return notFound(err, "review")
	}
	s.logger.InfoContext(ctx, "review deleted", "review_id", review.ID, "by", actor.UserID)
	return nil
}
