// Package user owns registration and profile reads.
package user

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crestbank/corebank/internal/auth"
	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/events"
	"github.com/crestbank/corebank/internal/storage"
	"github.com/crestbank/corebank/pkg/logger"
)

type Service struct {
	users     storage.UserStore
	publisher events.Publisher
}

func NewService(users storage.UserStore, publisher events.Publisher) *Service {
	return &Service{users: users, publisher: publisher}
}

// RegisterRequest carries the already-validated registration fields. The PIN
// arrives in plaintext and leaves this function only as a bcrypt hash.
type RegisterRequest struct {
	Username    string
	FullName    string
	Email       string
	PhoneNumber string
	PIN         string
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	hash, err := auth.HashSecret(req.PIN)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:          "usr-" + uuid.NewString(),
		Username:    req.Username,
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		SecretHash:  hash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.publish(events.UserEventsStream, events.UserRegistered, events.UserRegisteredEvent{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetUser(ctx, id)
}

func (s *Service) publish(stream, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, stream, eventType, data); err != nil {
		logger.Log.Warn("failed to publish user event", logger.Error(err))
	}
}
