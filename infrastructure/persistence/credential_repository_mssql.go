package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"socialhub/domain/model"
)

// CredentialRepositoryMSSQL stores per-account OAuth credentials on Azure SQL.
type CredentialRepositoryMSSQL struct{ db *sql.DB }

func NewCredentialRepositoryMSSQL(db *sql.DB) *CredentialRepositoryMSSQL {
	return &CredentialRepositoryMSSQL{db: db}
}

func (r *CredentialRepositoryMSSQL) GetByID(ctx context.Context, id string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, platform, access_token, refresh_token, expires_at, scopes, created_at, updated_at
		 FROM dbo.[oauth_credentials] WHERE id=@p1`, id)
	return scanCredential(row)
}

func (r *CredentialRepositoryMSSQL) Save(ctx context.Context, cred *model.Credential) error {
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	q := `MERGE dbo.[oauth_credentials] AS t
		  USING (SELECT @p1 AS id) AS s ON t.id = s.id
		  WHEN MATCHED THEN UPDATE SET
			access_token=@p3, refresh_token=@p4, expires_at=@p5, scopes=@p6, updated_at=@p8
		  WHEN NOT MATCHED THEN INSERT (id, platform, access_token, refresh_token, expires_at, scopes, created_at, updated_at)
			VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8);`
	_, err := r.db.ExecContext(ctx, q, cred.ID, cred.Platform, cred.AccessToken, cred.RefreshToken,
		cred.ExpiresAt, cred.Scopes, cred.CreatedAt, cred.UpdatedAt)
	return err
}

// TargetAccountRepositoryMSSQL reads account bindings on Azure SQL.
type TargetAccountRepositoryMSSQL struct{ db *sql.DB }

func NewTargetAccountRepositoryMSSQL(db *sql.DB) *TargetAccountRepositoryMSSQL {
	return &TargetAccountRepositoryMSSQL{db: db}
}

func (r *TargetAccountRepositoryMSSQL) GetByRef(ctx context.Context, platform, accountRef string) (*model.TargetAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, platform, account_ref, credential_id, is_active, created_at, updated_at
		 FROM dbo.[target_accounts] WHERE platform=@p1 AND account_ref=@p2`, platform, accountRef)
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

func (r *TargetAccountRepositoryMSSQL) Deactivate(ctx context.Context, platform, accountRef string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[target_accounts] SET is_active=0, updated_at=@p1 WHERE platform=@p2 AND account_ref=@p3`,
		time.Now().UTC(), platform, accountRef)
	return err
}
