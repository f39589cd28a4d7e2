package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"socialhub/domain/model"
)

// CredentialRepository stores per-account OAuth credentials on PostgreSQL.
// Rows are refreshed in place by the credential manager, never duplicated.
type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) GetByID(ctx context.Context, id string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, platform, access_token, refresh_token, expires_at, scopes, created_at, updated_at
		 FROM oauth_credentials WHERE id=$1`, id)
	return scanCredential(row)
}

func (r *CredentialRepository) Save(ctx context.Context, cred *model.Credential) error {
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	q := `INSERT INTO oauth_credentials (id, platform, access_token, refresh_token, expires_at, scopes, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		  ON CONFLICT (id) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			expires_at=EXCLUDED.expires_at,
			scopes=EXCLUDED.scopes,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, cred.ID, cred.Platform, cred.AccessToken, cred.RefreshToken,
		cred.ExpiresAt, cred.Scopes, cred.CreatedAt, cred.UpdatedAt)
	return err
}

func scanCredential(row rowScanner) (*model.Credential, error) {
	cred := &model.Credential{}
	var exp sql.NullTime
	if err := row.Scan(&cred.ID, &cred.Platform, &cred.AccessToken, &cred.RefreshToken,
		&exp, &cred.Scopes, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if exp.Valid {
		cred.ExpiresAt = &exp.Time
	}
	return cred, nil
}

// TargetAccountRepository reads account bindings on PostgreSQL. The core may
// only deactivate accounts, never touch identity fields.
type TargetAccountRepository struct{ db *sql.DB }

func NewTargetAccountRepository(db *sql.DB) *TargetAccountRepository {
	return &TargetAccountRepository{db: db}
}

func (r *TargetAccountRepository) GetByRef(ctx context.Context, platform, accountRef string) (*model.TargetAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, platform, account_ref, credential_id, is_active, created_at, updated_at
		 FROM target_accounts WHERE platform=$1 AND account_ref=$2`, platform, accountRef)
	acc := &model.TargetAccount{}
	if err := row.Scan(&acc.ID, &acc.Platform, &acc.AccountRef, &acc.CredentialID,
		&acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return acc, nil
}

func (r *TargetAccountRepository) Deactivate(ctx context.Context, platform, accountRef string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE target_accounts SET is_active=FALSE, updated_at=$1 WHERE platform=$2 AND account_ref=$3`,
		time.Now().UTC(), platform, accountRef)
	return err
}
