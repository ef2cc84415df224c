package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mishannn/tinkoff"
	"github.com/mishannn/tinkoff/core"
	"github.com/mishannn/tinkoff/ports"
)

// DefaultConfirmationTTL is how long a resume token is accepted
const DefaultConfirmationTTL = 5 * time.Minute

// LoginService drives the bank login, including the SMS confirmation step
// that may happen in a later request or process.
type LoginService struct {
	tokenizer  ports.Tokenizer
	store      ports.Store
	eventPub   ports.EventPublisher
	log        *zap.Logger
	clientOpts []tinkoff.Option

	confirmationTTL time.Duration
	now             func() time.Time
}

// LoginResult is either an elevated session or a token to resume the login
// once the SMS code is known.
type LoginResult struct {
	Session *core.Session

	ConfirmationToken string
	ExpiresAt         time.Time
}

// NeedsConfirmation reports whether the login waits for an SMS code
func (r *LoginResult) NeedsConfirmation() bool {
	return r.ConfirmationToken != ""
}

// NewLoginService creates a new login service. clientOpts are applied to
// every bank client the service creates.
func NewLoginService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	eventPub ports.EventPublisher,
	log *zap.Logger,
	clientOpts ...tinkoff.Option,
) *LoginService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginService{
		tokenizer:       tokenizer,
		store:           store,
		eventPub:        eventPub,
		log:             log,
		clientOpts:      clientOpts,
		confirmationTTL: DefaultConfirmationTTL,
		now:             time.Now,
	}
}

// WithConfirmationTTL changes how long resume tokens are accepted
func (s *LoginService) WithConfirmationTTL(ttl time.Duration) *LoginService {
	s.confirmationTTL = ttl
	return s
}

// Login signs up with a fresh identity. When the bank asks for an SMS code
// the result carries a resume token for Confirm instead of a session.
func (s *LoginService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	client, err := s.newClient(ctx, tinkoff.Identity{})
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	_, err = client.SignUp(ctx, username, password)
	if challenge, ok := tinkoff.AsChallenge(err); ok {
		return s.requestConfirmation(ctx, challenge)
	}
	if err != nil {
		return nil, fmt.Errorf("sign up failed: %w", err)
	}

	session, err := s.elevate(ctx, client)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Session: session}, nil
}

// Confirm resumes a login with the SMS code. A token can be redeemed once and
// by one caller at a time; a rejected code leaves it valid for another attempt.
func (s *LoginService) Confirm(ctx context.Context, token, code string) (*core.Session, error) {
	pending, err := s.tokenizer.TokenToConfirmation(token)
	if err != nil {
		return nil, fmt.Errorf("invalid confirmation token: %w", err)
	}

	if pending.WebUserID == "" || pending.SessionID == "" {
		return nil, fmt.Errorf("invalid confirmation token: %w", core.ErrMissingIdentity)
	}

	// Keep the claim for as long as the token itself would be accepted
	ttl := pending.ExpiresAt.Sub(s.now())
	if ttl < time.Minute {
		ttl = time.Minute
	}

	claimed, err := s.store.Claim(ctx, pending.ID, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to claim confirmation: %w", err)
	}
	if !claimed {
		return nil, core.ErrConfirmationConsumed
	}

	client, err := tinkoff.Resume(ctx, tinkoff.Challenge{
		Operation: pending.Operation,
		Ticket:    pending.Ticket,
		Identity:  tinkoff.Identity{WebUserID: pending.WebUserID, SessionID: pending.SessionID},
	}, s.options()...)
	if err != nil {
		s.release(ctx, pending.ID)
		return nil, fmt.Errorf("failed to resume session: %w", err)
	}

	if _, err := client.ConfirmBySMS(ctx, pending.Operation, pending.Ticket, code); err != nil {
		// The bank saw the ticket unless it rejected the input
		if errors.Is(err, tinkoff.ErrInvalidRequestData) {
			s.release(ctx, pending.ID)
		}
		return nil, fmt.Errorf("confirmation failed: %w", err)
	}

	return s.elevate(ctx, client)
}

// SessionStatus returns the state of a caller-held session
func (s *LoginService) SessionStatus(ctx context.Context, id tinkoff.Identity) (tinkoff.SessionState, error) {
	client, err := s.existingClient(ctx, id)
	if err != nil {
		return tinkoff.SessionState{}, err
	}

	payload, err := client.SessionStatus(ctx)
	if err != nil {
		return tinkoff.SessionState{}, fmt.Errorf("session status failed: %w", err)
	}

	return sessionState(payload)
}

// Ping keeps a caller-held session alive
func (s *LoginService) Ping(ctx context.Context, id tinkoff.Identity) (tinkoff.SessionState, error) {
	client, err := s.existingClient(ctx, id)
	if err != nil {
		return tinkoff.SessionState{}, err
	}

	payload, err := client.Ping(ctx)
	if err != nil {
		return tinkoff.SessionState{}, fmt.Errorf("ping failed: %w", err)
	}

	return sessionState(payload)
}

// Accounts lists the accounts of a caller-held elevated session
func (s *LoginService) Accounts(ctx context.Context, id tinkoff.Identity) ([]tinkoff.Account, error) {
	client, err := s.existingClient(ctx, id)
	if err != nil {
		return nil, err
	}

	accounts, err := client.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("accounts failed: %w", err)
	}

	return accounts, nil
}

// PersonalInfo returns the profile behind a caller-held elevated session
func (s *LoginService) PersonalInfo(ctx context.Context, id tinkoff.Identity) (tinkoff.PersonalInfo, error) {
	client, err := s.existingClient(ctx, id)
	if err != nil {
		return tinkoff.PersonalInfo{}, err
	}

	payload, err := client.PersonalInfo(ctx)
	if err != nil {
		return tinkoff.PersonalInfo{}, fmt.Errorf("personal info failed: %w", err)
	}

	return tinkoff.ParsePersonalInfo(payload)
}

func (s *LoginService) requestConfirmation(ctx context.Context, challenge tinkoff.Challenge) (*LoginResult, error) {
	now := s.now()
	pending := &core.PendingConfirmation{
		ID:        uuid.New().String(),
		WebUserID: challenge.Identity.WebUserID,
		SessionID: challenge.Identity.SessionID,
		Operation: challenge.Operation,
		Ticket:    challenge.Ticket,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.confirmationTTL),
	}

	token, err := s.tokenizer.ConfirmationToToken(pending)
	if err != nil {
		return nil, fmt.Errorf("failed to create confirmation token: %w", err)
	}

	s.log.Info("login waits for confirmation",
		zap.String("confirmation_id", pending.ID),
		zap.String("operation", pending.Operation),
	)

	if err := s.eventPub.PublishConfirmationRequested(ctx, pending.ID, pending.WebUserID); err != nil {
		// Log the error but don't fail the login
		s.log.Warn("failed to publish confirmation requested event", zap.Error(err))
	}

	return &LoginResult{ConfirmationToken: token, ExpiresAt: pending.ExpiresAt}, nil
}

func (s *LoginService) elevate(ctx context.Context, client *tinkoff.Client) (*core.Session, error) {
	payload, err := client.LevelUp(ctx)
	if err != nil {
		return nil, fmt.Errorf("level up failed: %w", err)
	}

	state, err := sessionState(payload)
	if err != nil {
		s.log.Debug("level up returned an unexpected payload", zap.Error(err))
	}

	id := client.Identity()
	session := &core.Session{
		WebUserID:     id.WebUserID,
		SessionID:     id.SessionID,
		AccessLevel:   state.AccessLevel,
		EstablishedAt: s.now(),
	}

	s.log.Info("session established", zap.String("access_level", session.AccessLevel))

	if err := s.eventPub.PublishSessionEstablished(ctx, session.WebUserID, session.AccessLevel); err != nil {
		s.log.Warn("failed to publish session established event", zap.Error(err))
	}

	return session, nil
}

func (s *LoginService) newClient(ctx context.Context, id tinkoff.Identity) (*tinkoff.Client, error) {
	return tinkoff.New(ctx, id, s.options()...)
}

func (s *LoginService) options() []tinkoff.Option {
	return append([]tinkoff.Option{tinkoff.WithLogger(s.log.Named("client"))}, s.clientOpts...)
}

func (s *LoginService) release(ctx context.Context, confirmationID string) {
	if err := s.store.Release(ctx, confirmationID); err != nil {
		s.log.Warn("failed to release confirmation",
			zap.String("confirmation_id", confirmationID),
			zap.Error(err),
		)
	}
}

// existingClient never bootstraps: the caller must hold both tokens
func (s *LoginService) existingClient(ctx context.Context, id tinkoff.Identity) (*tinkoff.Client, error) {
	if !id.Complete() {
		return nil, core.ErrMissingIdentity
	}
	return s.newClient(ctx, id)
}

func sessionState(payload tinkoff.Payload) (tinkoff.SessionState, error) {
	if !payload.Present() {
		return tinkoff.SessionState{}, nil
	}
	return tinkoff.ParseSessionState(payload)
}
