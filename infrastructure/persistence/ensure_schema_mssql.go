package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureCoreSchemaMSSQL creates the scheduling/automation tables when missing
// (Azure SQL / SQL Server).
func EnsureCoreSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	createIfMissing := func(table, ddl string) error {
		q := fmt.Sprintf(`IF OBJECT_ID('dbo.%s', 'U') IS NULL BEGIN %s END`, table, ddl)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure table %s: %w", table, err)
		}
		return nil
	}

	if err := createIfMissing("scheduled_posts", `CREATE TABLE dbo.[scheduled_posts] (
		id NVARCHAR(64) PRIMARY KEY,
		targets NVARCHAR(MAX) NOT NULL,
		content NVARCHAR(MAX) NOT NULL,
		scheduled_time DATETIME2 NOT NULL,
		status NVARCHAR(20) NOT NULL DEFAULT 'scheduled',
		error_detail NVARCHAR(MAX) NULL,
		published_at DATETIME2 NULL,
		claimed_at DATETIME2 NULL,
		created_at DATETIME2 NOT NULL,
		updated_at DATETIME2 NOT NULL
	); CREATE INDEX idx_scheduled_posts_due ON dbo.[scheduled_posts] (status, scheduled_time)`); err != nil {
		return err
	}
	if err := createIfMissing("automation_rules", `CREATE TABLE dbo.[automation_rules] (
		id NVARCHAR(64) PRIMARY KEY,
		name NVARCHAR(200) NOT NULL,
		trigger_type NVARCHAR(32) NOT NULL,
		trigger_config NVARCHAR(MAX) NOT NULL,
		action_type NVARCHAR(32) NOT NULL,
		action_config NVARCHAR(MAX) NOT NULL,
		targets NVARCHAR(MAX) NOT NULL,
		is_active BIT NOT NULL DEFAULT 0,
		last_executed DATETIME2 NULL,
		execution_count INT NOT NULL DEFAULT 0,
		created_at DATETIME2 NOT NULL,
		updated_at DATETIME2 NOT NULL
	)`); err != nil {
		return err
	}
	if err := createIfMissing("dispatch_attempts", `CREATE TABLE dbo.[dispatch_attempts] (
		id NVARCHAR(64) PRIMARY KEY,
		origin_kind NVARCHAR(10) NOT NULL,
		origin_id NVARCHAR(64) NOT NULL,
		occurrence_key NVARCHAR(255) NULL,
		platform NVARCHAR(32) NOT NULL,
		account_ref NVARCHAR(255) NOT NULL,
		attempt_number INT NOT NULL,
		outcome NVARCHAR(32) NOT NULL,
		remote_id NVARCHAR(255) NULL,
		error_detail NVARCHAR(MAX) NULL,
		created_at DATETIME2 NOT NULL
	); CREATE UNIQUE INDEX idx_dispatch_attempts_occurrence ON dbo.[dispatch_attempts] (occurrence_key) WHERE occurrence_key IS NOT NULL;
	CREATE INDEX idx_dispatch_attempts_origin ON dbo.[dispatch_attempts] (origin_kind, origin_id)`); err != nil {
		return err
	}
	if err := createIfMissing("target_accounts", `CREATE TABLE dbo.[target_accounts] (
		id NVARCHAR(64) PRIMARY KEY,
		platform NVARCHAR(32) NOT NULL,
		account_ref NVARCHAR(255) NOT NULL,
		credential_id NVARCHAR(64) NOT NULL,
		is_active BIT NOT NULL DEFAULT 1,
		created_at DATETIME2 NOT NULL,
		updated_at DATETIME2 NOT NULL,
		CONSTRAINT uq_target_accounts UNIQUE (platform, account_ref)
	)`); err != nil {
		return err
	}
	return createIfMissing("oauth_credentials", `CREATE TABLE dbo.[oauth_credentials] (
		id NVARCHAR(64) PRIMARY KEY,
		platform NVARCHAR(32) NOT NULL,
		access_token NVARCHAR(MAX) NOT NULL,
		refresh_token NVARCHAR(MAX) NOT NULL,
		expires_at DATETIME2 NULL,
		scopes NVARCHAR(MAX) NOT NULL DEFAULT '',
		created_at DATETIME2 NOT NULL,
		updated_at DATETIME2 NOT NULL
	)`)
}
