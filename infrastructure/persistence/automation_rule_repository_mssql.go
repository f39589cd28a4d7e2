package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"socialhub/domain/model"
)

// AutomationRuleRepositoryMSSQL implements rule persistence on Azure SQL.
type AutomationRuleRepositoryMSSQL struct{ db *sql.DB }

func NewAutomationRuleRepositoryMSSQL(db *sql.DB) *AutomationRuleRepositoryMSSQL {
	return &AutomationRuleRepositoryMSSQL{db: db}
}

func (r *AutomationRuleRepositoryMSSQL) GetByID(ctx context.Context, id string) (*model.AutomationRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM dbo.[automation_rules] WHERE id=@p1`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

func (r *AutomationRuleRepositoryMSSQL) List(ctx context.Context, limit, offset int) ([]*model.AutomationRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM dbo.[automation_rules] ORDER BY created_at DESC OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *AutomationRuleRepositoryMSSQL) FetchActive(ctx context.Context) ([]*model.AutomationRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM dbo.[automation_rules] WHERE is_active=1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *AutomationRuleRepositoryMSSQL) ClaimExecution(ctx context.Context, id string, prev *time.Time, executedAt time.Time) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if prev == nil {
		res, err = r.db.ExecContext(ctx,
			`UPDATE dbo.[automation_rules] SET last_executed=@p1, execution_count=execution_count+1, updated_at=@p1
			 WHERE id=@p2 AND last_executed IS NULL`, executedAt.UTC(), id)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE dbo.[automation_rules] SET last_executed=@p1, execution_count=execution_count+1, updated_at=@p1
			 WHERE id=@p2 AND last_executed=@p3`, executedAt.UTC(), id, prev.UTC())
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *AutomationRuleRepositoryMSSQL) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[automation_rules] SET is_active=@p1, updated_at=@p2 WHERE id=@p3`, active, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
