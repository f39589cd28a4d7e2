package repository

import (
	"context"
	"time"

	"socialhub/domain/model"
)

// IAutomationRule is the persistence contract for the rule engine. The core
// only ever updates last_executed/execution_count; rule bodies are owned by
// the authoring surface.
type IAutomationRule interface {
	GetByID(ctx context.Context, id string) (*model.AutomationRule, error)
	List(ctx context.Context, limit, offset int) ([]*model.AutomationRule, error)
	FetchActive(ctx context.Context) ([]*model.AutomationRule, error)
	// ClaimExecution advances last_executed with compare-and-swap semantics:
	// the update only applies if last_executed still equals prev (nil for a
	// never-fired rule). Returns false when another instance won the race.
	ClaimExecution(ctx context.Context, id string, prev *time.Time, executedAt time.Time) (bool, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// ITargetAccount gives the core read access to account bindings plus the one
// mutation it is allowed: deactivation on irrecoverable auth failure.
type ITargetAccount interface {
	GetByRef(ctx context.Context, platform, accountRef string) (*model.TargetAccount, error)
	Deactivate(ctx context.Context, platform, accountRef string) error
}
