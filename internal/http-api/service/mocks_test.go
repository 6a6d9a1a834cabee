package service

import (
	"context"
	"sync"
	"time"

	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/mailer"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, search string, page repository.Pagination) ([]models.User, int64, error) {
	args := m.Called(ctx, search, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// fakeCodeRepo keeps codes in memory. The mutex stands in for the row lock.
type fakeCodeRepo struct {
	mu        sync.Mutex
	codes     map[string]models.ConfirmationCode
	issueErr  error
	redeemErr error
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{codes: map[string]models.ConfirmationCode{}}
}

func (r *fakeCodeRepo) Issue(_ context.Context, userID, hash string, issuedAt time.Time) error {
	if r.issueErr != nil {
		return r.issueErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[userID] = models.ConfirmationCode{
		UserID:   userID,
		CodeHash: hash,
		State:    models.CodeStateIssued,
		IssuedAt: issuedAt,
	}
	return nil
}

func (r *fakeCodeRepo) Redeem(_ context.Context, userID string, now time.Time, fn repository.RedeemFunc) error {
	if r.redeemErr != nil {
		return r.redeemErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	code, found := r.codes[userID]
	if !found {
		code = models.ConfirmationCode{UserID: userID}
	}
	next, err := fn(&code)
	if err != nil || !found {
		return err
	}
	code.State = next
	code.ConsumedAt = &now
	r.codes[userID] = code
	return nil
}

func (r *fakeCodeRepo) get(userID string) (models.ConfirmationCode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[userID]
	return c, ok
}

// MockMailer mocks mailer.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// captureMailer records every message it is asked to send.
type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last() mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// MockThrottle mocks SignupThrottle
type MockThrottle struct {
	mock.Mock
}

func (m *MockThrottle) Allow(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockThrottle) Release(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// allowAll never throttles.
type allowAll struct{}

func (allowAll) Allow(context.Context, string) (bool, error) { return true, nil }
func (allowAll) Release(context.Context, string) error       { return nil }

var errNotFound = gorm.ErrRecordNotFound
