package borrower

import (
	"context"
	"credit-ledger/internal/event"
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Service interface {
	Register(ctx context.Context, p RegisterParams) (*Borrower, error)
	GetBorrower(ctx context.Context, borrowerID uuid.UUID) (*Borrower, error)
	Score(ctx context.Context, borrowerID uuid.UUID) (*Borrower, error)
}

var _ Service = (*borrowerService)(nil)

type borrowerService struct {
	repo          Repository
	history       HistorySource
	lookupTimeout time.Duration
	pub           event.EventPublisher
	logger        *slog.Logger
}

func NewBorrowerService(repo Repository, history HistorySource, lookupTimeout time.Duration, pub event.EventPublisher, logger *slog.Logger) Service {
	if repo == nil || history == nil || pub == nil {
		panic("borrower service dependencies cannot be nil")
	}
	return &borrowerService{
		repo:          repo,
		history:       history,
		lookupTimeout: lookupTimeout,
		pub:           pub,
		logger:        logger.With(slog.String("component", "borrowerService")),
	}
}

func (s *borrowerService) Register(ctx context.Context, p RegisterParams) (*Borrower, error) {
	s.logger.InfoContext(ctx, "Attempting to register borrower")

	b, err := NewBorrower(p)
	if err != nil {
		s.logger.WarnContext(ctx, "Borrower registration failed validation", slog.Any("error", err))
		return nil, err
	}

	aadharTaken, emailTaken, err := s.repo.ExistsByAadharOrEmail(ctx, b.AadharID, b.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error checking borrower identity", slog.Any("error", err))
		return nil, fmt.Errorf("failed to check borrower identity: %w", err)
	}
	if aadharTaken {
		return nil, fmt.Errorf("%w: borrower with this aadhar id already exists", apperrors.ErrAlreadyExists)
	}
	if emailTaken {
		return nil, fmt.Errorf("%w: borrower with this email already exists", apperrors.ErrAlreadyExists)
	}

	if err := s.repo.Create(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save borrower", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save borrower: %w", err)
	}
	logCtx := s.logger.With(slog.String("borrowerID", b.ID.String()))
	logCtx.InfoContext(ctx, "Borrower saved, scoring synchronously")

	scored, err := s.Score(ctx, b.ID)
	if err != nil {
		// The borrower stays registered unscored and can be re-scored later.
		logCtx.ErrorContext(ctx, "Borrower registered but scoring failed", slog.Any("error", err))
	} else {
		b = scored
	}

	registered := event.BorrowerRegisteredEvent{
		BorrowerID:  b.ID,
		CreditScore: b.CreditScore,
		Timestamp:   time.Now(),
	}
	if pubErr := s.pub.PublishBorrowerRegistered(ctx, registered); pubErr != nil {
		logCtx.ErrorContext(ctx, "Borrower registered, but FAILED to publish registration event", slog.Any("error", pubErr))
	}

	logCtx.InfoContext(ctx, "Successfully registered borrower")
	return b, nil
}

func (s *borrowerService) GetBorrower(ctx context.Context, borrowerID uuid.UUID) (*Borrower, error) {
	b, err := s.repo.GetByID(ctx, borrowerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Borrower not found", slog.String("borrowerID", borrowerID.String()))
			return nil, fmt.Errorf("%w: borrower %s not found", apperrors.ErrNotFound, borrowerID)
		}
		s.logger.ErrorContext(ctx, "Repository error finding borrower", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get borrower %s: %w", borrowerID, err)
	}
	return b, nil
}

// Score recomputes and stores the borrower's credit score from the history source.
// Lookup failures are treated as "no history" and yield the minimum score.
func (s *borrowerService) Score(ctx context.Context, borrowerID uuid.UUID) (*Borrower, error) {
	b, err := s.GetBorrower(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	logCtx := s.logger.With(slog.String("borrowerID", borrowerID.String()))

	lookupCtx := ctx
	if s.lookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
	}

	balance, found, err := s.history.NetBalance(lookupCtx, b.AadharID)
	if err != nil {
		logCtx.WarnContext(ctx, "Credit history lookup failed, using default score", slog.Any("error", err))
		found = false
	}

	var score int
	if found {
		score = ScoreFromBalance(&balance)
	} else {
		score = ScoreFromBalance(nil)
	}

	if err := s.repo.UpdateCreditScore(ctx, b.ID, score); err != nil {
		logCtx.ErrorContext(ctx, "Repository failed to store credit score", slog.Any("error", err))
		return nil, fmt.Errorf("failed to store credit score: %w", err)
	}
	b.CreditScore = &score

	logCtx.InfoContext(ctx, "Borrower scored", slog.Int("creditScore", score), slog.Bool("historyFound", found))
	return b, nil
}
