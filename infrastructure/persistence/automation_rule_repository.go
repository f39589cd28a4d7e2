package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"socialhub/domain/model"
)

// AutomationRuleRepository implements rule persistence on PostgreSQL.
type AutomationRuleRepository struct{ db *sql.DB }

func NewAutomationRuleRepository(db *sql.DB) *AutomationRuleRepository {
	return &AutomationRuleRepository{db: db}
}

const ruleColumns = `id, name, trigger_type, trigger_config, action_type, action_config, targets, is_active, last_executed, execution_count, created_at, updated_at`

func (r *AutomationRuleRepository) GetByID(ctx context.Context, id string) (*model.AutomationRule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE id=$1`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

func (r *AutomationRuleRepository) List(ctx context.Context, limit, offset int) ([]*model.AutomationRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM automation_rules ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *AutomationRuleRepository) FetchActive(ctx context.Context) ([]*model.AutomationRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM automation_rules WHERE is_active=TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

// ClaimExecution is the compare-and-swap that keeps multiple engine instances
// from double-counting one firing: the update applies only if last_executed
// is still the value the caller observed.
func (r *AutomationRuleRepository) ClaimExecution(ctx context.Context, id string, prev *time.Time, executedAt time.Time) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if prev == nil {
		res, err = r.db.ExecContext(ctx,
			`UPDATE automation_rules SET last_executed=$1, execution_count=execution_count+1, updated_at=$1
			 WHERE id=$2 AND last_executed IS NULL`, executedAt.UTC(), id)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE automation_rules SET last_executed=$1, execution_count=execution_count+1, updated_at=$1
			 WHERE id=$2 AND last_executed=$3`, executedAt.UTC(), id, prev.UTC())
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

func (r *AutomationRuleRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE automation_rules SET is_active=$1, updated_at=$2 WHERE id=$3`, active, time.Now().UTC(), id)
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

func scanRule(row rowScanner) (*model.AutomationRule, error) {
	rule := &model.AutomationRule{}
	var (
		triggerConfig, actionConfig, targets []byte
		lastExecuted                         sql.NullTime
	)
	if err := row.Scan(&rule.ID, &rule.Name, &rule.TriggerType, &triggerConfig, &rule.ActionType,
		&actionConfig, &targets, &rule.IsActive, &lastExecuted, &rule.ExecutionCount,
		&rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(triggerConfig, &rule.TriggerConfig); err != nil {
		return nil, fmt.Errorf("decode trigger config for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal(actionConfig, &rule.ActionConfig); err != nil {
		return nil, fmt.Errorf("decode action config for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal(targets, &rule.Targets); err != nil {
		return nil, fmt.Errorf("decode targets for rule %s: %w", rule.ID, err)
	}
	if lastExecuted.Valid {
		rule.LastExecuted = &lastExecuted.Time
	}
	return rule, nil
}

func collectRules(rows *sql.Rows) ([]*model.AutomationRule, error) {
	out := []*model.AutomationRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
