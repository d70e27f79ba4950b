package passkey

import (
	"context"

	"github.com/pkg/errors"
	"github/passlet/go-wallet/internal/config"
	"github/passlet/go-wallet/internal/util"
	"github/passlet/go-wallet/internal/wallet/credstore"
)

type service struct {
	cfg      config.Connector
	store    credstore.Service
	ceremony Ceremony
	prompt   NamePrompt
}

// NewService creates a new passkey credential provider.
//
//nolint:ireturn
func NewService(cfg config.Connector, store credstore.Service, ceremony Ceremony, prompt NamePrompt) Service {
	return &service{
		cfg:      cfg,
		store:    store,
		ceremony: ceremony,
		prompt:   prompt,
	}
}

// Authenticate performs a login-mode assertion and persists the result.
func (s *service) Authenticate(ctx context.Context, displayName string) (*credstore.Record, error) {
	log := util.LogFromContext(ctx)

	credential, err := s.ceremony.Login(ctx, displayName)
	if err != nil {
		if errors.Is(err, ErrUserRejected) {
			return nil, err
		}
		log.Debug().Err(err).Msg("Passkey login assertion failed")
		return nil, errors.Wrap(ErrAuthenticationFailed, err.Error())
	}

	record := &credstore.Record{
		WebAuthnKey: *credential,
		DisplayName: displayName,
	}

	// The login path never overwrites a name the user picked earlier.
	existing, err := s.store.Get(ctx, s.key())
	if err == nil && existing != nil && existing.DisplayName != "" {
		record.DisplayName = existing.DisplayName
	}

	if err := s.store.Set(ctx, s.key(), record); err != nil {
		return nil, errors.Wrap(err, "failed to persist credential record")
	}

	return record, nil
}

// Register performs a registration ceremony and persists the result.
func (s *service) Register(ctx context.Context, displayName string) (*credstore.Record, error) {
	log := util.LogFromContext(ctx)

	name, err := s.prompt.ConfirmName(ctx, displayName)
	if err != nil {
		if errors.Is(err, ErrUserRejected) {
			return nil, err
		}
		return nil, errors.Wrap(ErrUserRejected, err.Error())
	}

	credential, err := s.ceremony.Register(ctx, name)
	if err != nil {
		if errors.Is(err, ErrUserRejected) {
			return nil, err
		}
		log.Debug().Err(err).Msg("Passkey registration ceremony failed")
		return nil, errors.Wrap(ErrRegistrationFailed, err.Error())
	}

	record := &credstore.Record{
		WebAuthnKey: *credential,
		DisplayName: name,
	}

	if err := s.store.Set(ctx, s.key(), record); err != nil {
		return nil, errors.Wrap(err, "failed to persist credential record")
	}

	return record, nil
}

// Obtain runs the explicit two-step authenticate-then-register strategy.
// Authentication failures of any kind fall through to registration; only a
// registration failure is surfaced to the caller.
func (s *service) Obtain(ctx context.Context) (*credstore.Record, bool, error) {
	log := util.LogFromContext(ctx)

	displayName := s.cfg.DefaultDisplayName()
	if existing, err := s.store.Get(ctx, s.key()); err == nil && existing != nil && existing.DisplayName != "" {
		displayName = existing.DisplayName
	}

	record, err := s.Authenticate(ctx, displayName)
	if err == nil {
		return record, true, nil
	}

	log.Debug().Err(err).Msg("Passkey authentication did not find a credential, falling back to registration")

	record, err = s.Register(ctx, displayName)
	if err != nil {
		return nil, false, err
	}

	return record, false, nil
}

func (s *service) key() string {
	return credstore.Key(s.cfg.ProjectID)
}
