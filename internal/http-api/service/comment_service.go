package service

import (
	"context"
	"strings"

	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/policy"
	"yamdb/internal/http-api/repository"
)

type CommentService interface {
	List(ctx context.Context, titleID, reviewID int64, page repository.Pagination) ([]models.Comment, int64, error)
	Get(ctx context.Context, titleID, reviewID, commentID int64) (*models.Comment, error)
	Create(ctx context.Context, actor policy.Actor, titleID, reviewID int64, text string) (*models.Comment, error)
	Update(ctx context.Context, actor policy.Actor, titleID, reviewID, commentID int64, text *string) (*models.Comment, error)
	Delete(ctx context.Context, actor policy.Actor, titleID, reviewID, commentID int64) error
}

type commentService struct {
	comments repository.CommentRepository
	reviews  repository.ReviewRepository
	policy   policy.Policy
}

func NewCommentService(comments repository.CommentRepository, reviews repository.ReviewRepository, p policy.Policy) CommentService {
	return &commentService{comments: comments, reviews: reviews, policy: p}
}

// requireReview checks that the review exists under the title.
func (s *commentService) requireReview(ctx context.Context, titleID, reviewID int64) error {
	if _, err := s.reviews.FindByID(ctx, titleID, reviewID); err != nil {
		return notFound(err, "review")
	}
	return nil
}

func (s *commentService) List(ctx context.Context, titleID, reviewID int64, page repository.Pagination) ([]models.Comment, int64, error) {
	if err := s.requireReview(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	return s.comments.ListByReview(ctx, reviewID, page)
}

func (s *commentService) Get(ctx context.Context, titleID, reviewID, commentID int64) (*models.Comment, error) {
	if err := s.requireReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.comments.FindByID(ctx, reviewID, commentID)
	if err != nil {
		return nil, notFound(err, "comment")
	}
	return comment, nil
}

func validateCommentText(text string) error {
	fields := fieldErrors{}
	if strings.TrimSpace(text) == "" {
		fields.add("text", errRequired)
	}
	return fields.err()
}

func (s *commentService) Create(ctx context.Context, actor policy.Actor, titleID, reviewID int64, text string) (*models.Comment, error) {
	if err := fromPolicy(s.policy.AllowObject(actor, policy.ActionCreate, "")); err != nil {
		return nil, err
	}
	if err := validateCommentText(text); err != nil {
		return nil, err
	}
	if err := s.requireReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comment := &models.Comment{ReviewID: reviewID, AuthorID: actor.UserID, Text: text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = &models.User{ID: actor.UserID, Username: actor.Username}
	return comment, nil
}

func (s *commentService) Update(ctx context.Context, actor policy.Actor, titleID, reviewID, commentID int64, text *string) (*models.Comment, error) {
	comment, err := s.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := fromPolicy(s.policy.AllowObject(actor, policy.ActionUpdate, comment.AuthorID)); err != nil {
		return nil, err
	}
	if text == nil {
		return comment, nil
	}
	if err := validateCommentText(*text); err != nil {
		return nil, err
	}
	if err := s.comments.Update(ctx, comment.ID, map[string]any{"text": *text}); err != nil {
		return nil, notFound(err, "comment")
	}
	return s.Get(ctx, titleID, reviewID, commentID)
}

func (s *commentService) Delete(ctx context.Context, actor policy.Actor, titleID, reviewID, commentID int64) error {
	comment, err := s.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := fromPolicy(s.policy.AllowObject(actor, policy.ActionDelete, comment.AuthorID)); err != nil {
		return err
	}
	return notFound(s.comments.Delete(ctx, comment.ID), "comment")
}
