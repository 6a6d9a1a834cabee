package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/policy"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/observability/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeReviewRepo enforces the (author, title) unique index in memory.
type fakeReviewRepo struct {
	mu      sync.Mutex
	nextID  int64
	reviews map[int64]models.Review
	// skipPrecheck makes ExistsByAuthor always miss, as when two inserts race.
	skipPrecheck bool
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: map[int64]models.Review{}}
}

func (r *fakeReviewRepo) Create(_ context.Context, review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.TitleID == review.TitleID && existing.AuthorID == review.AuthorID {
			return errors.Join(errors.New("create review"), repository.ErrDuplicate)
		}
	}
	r.nextID++
	review.ID = r.nextID
	review.PubDate = time.Now()
	r.reviews[review.ID] = *review
	return nil
}

func (r *fakeReviewRepo) FindByID(_ context.Context, titleID, reviewID int64) (*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[reviewID]
	if !ok || review.TitleID != titleID {
		return nil, gorm.ErrRecordNotFound
	}
	review.Author = &models.User{ID: review.AuthorID}
	return &review, nil
}

func (r *fakeReviewRepo) ListByTitle(_ context.Context, titleID int64, _ repository.Pagination) ([]models.Review, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Review
	for _, review := range r.reviews {
		if review.TitleID == titleID {
			out = append(out, review)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeReviewRepo) ExistsByAuthor(_ context.Context, titleID int64, authorID string) (bool, error) {
	if r.skipPrecheck {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, review := range r.reviews {
		if review.TitleID == titleID && review.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeReviewRepo) Update(_ context.Context, id int64, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields["text"]; ok {
		review.Text = v.(string)
	}
	if v, ok := fields["score"]; ok {
		review.Score = v.(int)
	}
	r.reviews[id] = review
	return nil
}

func (r *fakeReviewRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.reviews, id)
	return nil
}

// stubTitles knows a fixed set of title ids.
type stubTitles struct {
	repository.TitleRepository
	ids map[int64]bool
}

func (s stubTitles) Exists(_ context.Context, id int64) (bool, error) {
	return s.ids[id], nil
}

var (
	alice     = policy.Actor{UserID: "alice-id", Username: "alice", Level: policy.LevelUser}
	bob       = policy.Actor{UserID: "bob-id", Username: "bob", Level: policy.LevelUser}
	moderator = policy.Actor{UserID: "mod-id", Username: "mod", Level: policy.LevelModerator}
	admin     = policy.Actor{UserID: "admin-id", Username: "admin", Level: policy.LevelAdmin}
)

func newTestReviewService() (*reviewService, *fakeReviewRepo) {
	repo := newFakeReviewRepo()
	svc := NewReviewService(repo, stubTitles{ids: map[int64]bool{1: true, 2: true}}, policy.AuthorModerationWrite{}, logging.Discard())
	return svc.(*reviewService), repo
}

func TestReviewCreate_Success(t *testing.T) {
	svc, _ := newTestReviewService()

	review, err := svc.Create(context.Background(), alice, 1, "great", 9)

	require.NoError(t, err)
	assert.NotZero(t, review.ID)
	assert.Equal(t, "alice", review.Author.Username)
	assert.Equal(t, 9, review.Score)
}

func TestReviewCreate_SecondReviewConflicts(t *testing.T) {
	svc, repo := newTestReviewService()

	_, err := svc.Create(context.Background(), alice, 1, "great", 9)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), alice, 1, "changed my mind", 3)
	assert.ErrorIs(t, err, ErrConflict)

	// other titles and other authors are unaffected
	_, err = svc.Create(context.Background(), alice, 2, "fine", 6)
	assert.NoError(t, err)
	_, err = svc.Create(context.Background(), bob, 1, "meh", 5)
	assert.NoError(t, err)

	reviews, _, _ := repo.ListByTitle(context.Background(), 1, repository.Pagination{})
	assert.Len(t, reviews, 2)
}

func TestReviewCreate_UniqueIndexCatchesRace(t *testing.T) {
	svc, repo := newTestReviewService()
	repo.skipPrecheck = true

	const writers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), alice, 1, "racing", 7)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, conflicts)
}

func TestReviewCreate_Validation(t *testing.T) {
	svc, _ := newTestReviewService()

	for _, score := range []int{0, 11, -1} {
		_, err := svc.Create(context.Background(), alice, 1, "text", score)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "score %d", score)
		assert.Contains(t, ve.Fields, "score")
	}

	_, err := svc.Create(context.Background(), alice, 1, "  ", 5)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "text")
}

func TestReviewCreate_Anonymous(t *testing.T) {
	svc, _ := newTestReviewService()

	_, err := svc.Create(context.Background(), policy.Anonymous(), 1, "text", 5)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestReviewCreate_UnknownTitle(t *testing.T) {
	svc, _ := newTestReviewService()

	_, err := svc.Create(context.Background(), alice, 99, "text", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewUpdate_Permissions(t *testing.T) {
	tests := []struct {
		name  string
		actor policy.Actor
		want  error
	}{
		{"author", alice, nil},
		{"other user", bob, ErrForbidden},
		{"moderator", moderator, nil},
		{"admin", admin, nil},
		{"anonymous", policy.Anonymous(), ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestReviewService()
			review, err := svc.Create(context.Background(), alice, 1, "great", 9)
			require.NoError(t, err)

			score := 4
			updated, err := svc.Update(context.Background(), tt.actor, 1, review.ID, ReviewPatch{Score: &score})
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 4, updated.Score)
			assert.Equal(t, "great", updated.Text)
		})
	}
}

func TestReviewUpdate_DoesNotTripUniqueness(t *testing.T) {
	svc, _ := newTestReviewService()
	review, err := svc.Create(context.Background(), alice, 1, "great", 9)
	require.NoError(t, err)

	text := "still great"
	_, err = svc.Update(context.Background(), alice, 1, review.ID, ReviewPatch{Text: &text})
	assert.NoError(t, err)
}

func TestReviewUpdate_InvalidScore(t *testing.T) {
	svc, _ := newTestReviewService()
	review, err := svc.Create(context.Background(), alice, 1, "great", 9)
	require.NoError(t, err)

	score := 42
	_, err = svc.Update(context.Background(), alice, 1, review.ID, ReviewPatch{Score: &score})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReviewGet_WrongTitle(t *testing.T) {
	svc, _ := newTestReviewService()
	review, err := svc.Create(context.Background(), alice, 1, "great", 9)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, review.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewDelete(t *testing.T) {
	svc, repo := newTestReviewService()
	review, err := svc.Create(context.Background(), alice, 1, "great", 9)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(context.Background(), bob, 1, review.ID), ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), moderator, 1, review.ID))
	assert.Empty(t, repo.reviews)

	assert.ErrorIs(t, svc.Delete(context.Background(), moderator, 1, review.ID), ErrNotFound)
}

func TestReviewList_UnknownTitle(t *testing.T) {
	svc, _ := newTestReviewService()

	_, _, err := svc.List(context.Background(), 404, repository.Pagination{})
	assert.ErrorIs(t, err, ErrNotFound)
}
