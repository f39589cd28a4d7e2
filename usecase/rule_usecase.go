package usecase

import (
	"context"
	"fmt"

	"socialhub/domain/model"
	"socialhub/domain/repository"
)

// IRuleUsecase backs the operator API for automation rules. Rule bodies are
// authored elsewhere; this surface reads them and flips activation.
type IRuleUsecase interface {
	GetByID(ctx context.Context, id string) (*model.AutomationRule, error)
	List(ctx context.Context, limit, offset int) ([]*model.AutomationRule, error)
	Activate(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
	Attempts(ctx context.Context, id string) ([]*model.DispatchAttempt, error)
}

type ruleUsecase struct {
	rules  repository.IAutomationRule
	ledger ILedger
}

func NewRuleUsecase(rules repository.IAutomationRule, ledger ILedger) IRuleUsecase {
	return &ruleUsecase{rules: rules, ledger: ledger}
}

func (u *ruleUsecase) GetByID(ctx context.Context, id string) (*model.AutomationRule, error) {
	return u.rules.GetByID(ctx, id)
}

func (u *ruleUsecase) List(ctx context.Context, limit, offset int) ([]*model.AutomationRule, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.rules.List(ctx, limit, offset)
}

// Activate validates the rule body first so a malformed rule can never
// enter the engine's active set.
func (u *ruleUsecase) Activate(ctx context.Context, id string) error {
	rule, err := u.rules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := ValidateRule(rule); err != nil {
		return fmt.Errorf("rule %s is not activatable: %w", id, err)
	}
	return u.rules.SetActive(ctx, id, true)
}

func (u *ruleUsecase) Deactivate(ctx context.Context, id string) error {
	return u.rules.SetActive(ctx, id, false)
}

func (u *ruleUsecase) Attempts(ctx context.Context, id string) ([]*model.DispatchAttempt, error) {
	return u.ledger.History(ctx, model.OriginRule, id)
}
