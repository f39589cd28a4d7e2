package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/logger"
)

// ErrCredentialInvalid means the credential cannot be made valid without
// operator action. Callers must deactivate the account and alert, never spin
// on refresh.
var ErrCredentialInvalid = errors.New("credential invalid")

// ITokenRefresher exchanges a refresh token for a fresh token pair at the
// platform's token endpoint.
type ITokenRefresher interface {
	Refresh(ctx context.Context, cred *model.Credential) (*model.Credential, error)
}

// ICredentialManager hands out valid credentials, refreshing expiring ones.
type ICredentialManager interface {
	GetValidCredential(ctx context.Context, target model.TargetRef) (*model.Credential, error)
	// ForceRefresh refreshes regardless of expiry; used after a platform
	// rejected a token the store still considered valid.
	ForceRefresh(ctx context.Context, target model.TargetRef) (*model.Credential, error)
}

type credentialManager struct {
	repo      repository.ICredential
	refresher ITokenRefresher
	margin    time.Duration
	group     singleflight.Group
	now       func() time.Time
}

func NewCredentialManager(repo repository.ICredential, refresher ITokenRefresher, margin time.Duration) ICredentialManager {
	if margin <= 0 {
		margin = 5 * time.Minute
	}
	return &credentialManager{repo: repo, refresher: refresher, margin: margin, now: time.Now}
}

func (m *credentialManager) GetValidCredential(ctx context.Context, target model.TargetRef) (*model.Credential, error) {
	cred, err := m.repo.GetByID(ctx, target.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("%w: load credential %s: %v", ErrCredentialInvalid, target.CredentialID, err)
	}
	if !cred.ExpiresWithin(m.margin, m.now()) {
		return cred, nil
	}
	return m.refresh(ctx, cred)
}

func (m *credentialManager) ForceRefresh(ctx context.Context, target model.TargetRef) (*model.Credential, error) {
	cred, err := m.repo.GetByID(ctx, target.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("%w: load credential %s: %v", ErrCredentialInvalid, target.CredentialID, err)
	}
	return m.refresh(ctx, cred)
}

// refresh is single-flighted per credential: concurrent callers for the same
// account wait on one in-flight refresh instead of issuing duplicates.
func (m *credentialManager) refresh(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
	v, err, _ := m.group.Do(cred.ID, func() (interface{}, error) {
		refreshed, err := m.refresher.Refresh(ctx, cred)
		if err != nil {
			logger.GetLogger().
				WithField("credential_id", cred.ID).
				WithField("platform", cred.Platform).
				WithField("error", err).
				Warn("credential refresh failed")
			return nil, fmt.Errorf("%w: refresh %s: %v", ErrCredentialInvalid, cred.ID, err)
		}
		if err := m.repo.Save(ctx, refreshed); err != nil {
			return nil, fmt.Errorf("%w: persist refreshed credential %s: %v", ErrCredentialInvalid, cred.ID, err)
		}
		return refreshed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Credential), nil
}
