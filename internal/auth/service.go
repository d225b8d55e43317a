package auth

import (
	"context"
	"time"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/internal/events"
	"github.com/crestbank/corebank/internal/storage"
	"github.com/crestbank/corebank/pkg/logger"
)

// Service is the composed auth surface the HTTP handlers talk to: credential
// verification plus token issuance, logout and the reset flow.
type Service struct {
	verifier  *Verifier
	issuer    *Issuer
	resets    *ResetManager
	cards     storage.CardStore
	ledger    storage.LedgerStore
	publisher events.Publisher
}

func NewService(verifier *Verifier, issuer *Issuer, resets *ResetManager, cards storage.CardStore, ledger storage.LedgerStore, publisher events.Publisher) *Service {
	return &Service{
		verifier:  verifier,
		issuer:    issuer,
		resets:    resets,
		cards:     cards,
		ledger:    ledger,
		publisher: publisher,
	}
}

// Login verifies credentials and issues a session.
func (s *Service) Login(ctx context.Context, username, secret string) (*Session, error) {
	user, err := s.verifier.Verify(ctx, username, secret)
	if err != nil {
		return nil, err
	}
	return s.issuer.Issue(ctx, user.ID)
}

// Logout revokes every session for the subject.
func (s *Service) Logout(ctx context.Context, subject string) error {
	if err := s.issuer.Revoke(ctx, subject); err != nil {
		return err
	}
	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := s.publisher.Publish(pubCtx, events.UserEventsStream, events.SessionRevoked,
			events.SessionRevokedEvent{UserID: subject})
		if err != nil {
			logger.Log.Warn("failed to publish session event", logger.Error(err))
		}
	}
	return nil
}

func (s *Service) RequestReset(ctx context.Context, email string) (string, error) {
	return s.resets.Request(ctx, email)
}

func (s *Service) ConfirmReset(ctx context.Context, token, newSecret string) error {
	return s.resets.Confirm(ctx, token, newSecret)
}

// CardValidation is the result of a successful card + PIN check.
type CardValidation struct {
	CardID        string `json:"cardId"`
	AccountID     string `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
}

// ValidateCard checks the card number checksum, the PIN against the stored
// hash and that both card and linked account are usable.
func (s *Service) ValidateCard(ctx context.Context, number, pin string) (*CardValidation, error) {
	if !domain.ValidCardNumber(number) {
		return nil, domain.ErrInvalidCard
	}
	card, err := s.cards.GetCardByNumber(ctx, number)
	if err != nil {
		return nil, domain.ErrInvalidCard
	}
	if card.Status != domain.CardStatusActive {
		return nil, domain.ErrInvalidCard
	}
	if !CheckSecret(pin, card.PINHash) {
		return nil, domain.ErrUnauthorized
	}
	account, err := s.ledger.GetAccount(ctx, card.AccountID)
	if err != nil {
		return nil, err
	}
	return &CardValidation{
		CardID:        card.ID,
		AccountID:     account.ID,
		AccountNumber: account.Number,
	}, nil
}
