package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureCoreSchema creates the scheduling/automation tables when missing.
// Safe to call at startup from any number of instances.
func EnsureCoreSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scheduled_posts (
			id TEXT PRIMARY KEY,
			targets JSONB NOT NULL,
			content JSONB NOT NULL,
			scheduled_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'scheduled',
			error_detail TEXT,
			published_at TIMESTAMPTZ,
			claimed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due ON scheduled_posts (status, scheduled_time)`,
		`CREATE TABLE IF NOT EXISTS automation_rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			trigger_type TEXT NOT NULL,
			trigger_config JSONB NOT NULL,
			action_type TEXT NOT NULL,
			action_config JSONB NOT NULL,
			targets JSONB NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			last_executed TIMESTAMPTZ,
			execution_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dispatch_attempts (
			id TEXT PRIMARY KEY,
			origin_kind TEXT NOT NULL,
			origin_id TEXT NOT NULL,
			occurrence_key TEXT,
			platform TEXT NOT NULL,
			account_ref TEXT NOT NULL,
			attempt_number INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			remote_id TEXT,
			error_detail TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_dispatch_attempts_occurrence
			ON dispatch_attempts (occurrence_key) WHERE occurrence_key IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_dispatch_attempts_origin ON dispatch_attempts (origin_kind, origin_id)`,
		`CREATE TABLE IF NOT EXISTS target_accounts (
			id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			account_ref TEXT NOT NULL,
			credential_id TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (platform, account_ref)
		)`,
		`CREATE TABLE IF NOT EXISTS oauth_credentials (
			id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at TIMESTAMPTZ,
			scopes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure core schema: %w", err)
		}
	}
	return nil
}
