package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"socialhub/domain/dto"
	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/logger"
)

// IPostUsecase backs the operator API for scheduled posts.
type IPostUsecase interface {
	Create(ctx context.Context, req dto.ReqCreatePost) (*model.ScheduledPost, error)
	GetByID(ctx context.Context, id string) (*model.ScheduledPost, error)
	List(ctx context.Context, status model.PostStatus, limit, offset int) ([]*model.ScheduledPost, error)
	Cancel(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, at *time.Time) error
	Attempts(ctx context.Context, id string) ([]*model.DispatchAttempt, error)
}

type postUsecase struct {
	posts  repository.IScheduledPost
	ledger ILedger
	now    func() time.Time
}

func NewPostUsecase(posts repository.IScheduledPost, ledger ILedger) IPostUsecase {
	return &postUsecase{posts: posts, ledger: ledger, now: time.Now}
}

func (u *postUsecase) Create(ctx context.Context, req dto.ReqCreatePost) (*model.ScheduledPost, error) {
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("at least one target is required")
	}
	for i, target := range req.Targets {
		if target.Platform == "" || target.AccountRef == "" {
			return nil, fmt.Errorf("target %d: platform and account_ref are required", i)
		}
	}
	if req.Content.Text == "" && len(req.Content.MediaURLs) == 0 {
		return nil, fmt.Errorf("content requires text or media")
	}
	if req.ScheduledTime.IsZero() {
		return nil, fmt.Errorf("scheduled_time is required")
	}
	if req.ScheduledTime.Before(u.now().UTC()) {
		return nil, fmt.Errorf("scheduled_time must not be in the past")
	}
	post := &model.ScheduledPost{
		ID:            uuid.NewString(),
		Content:       req.Content,
		Targets:       req.Targets,
		ScheduledTime: req.ScheduledTime.UTC(),
		Status:        model.PostStatusScheduled,
	}
	if err := u.posts.Create(ctx, post); err != nil {
		logger.GetLogger().WithField("error", err).Error("create scheduled post failed")
		return nil, err
	}
	return post, nil
}

func (u *postUsecase) GetByID(ctx context.Context, id string) (*model.ScheduledPost, error) {
	return u.posts.GetByID(ctx, id)
}

func (u *postUsecase) List(ctx context.Context, status model.PostStatus, limit, offset int) ([]*model.ScheduledPost, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.posts.List(ctx, status, limit, offset)
}

func (u *postUsecase) Cancel(ctx context.Context, id string) error {
	return u.posts.Cancel(ctx, id)
}

func (u *postUsecase) Retry(ctx context.Context, id string, at *time.Time) error {
	when := u.now().UTC()
	if at != nil && !at.IsZero() {
		when = at.UTC()
	}
	return u.posts.Retry(ctx, id, when)
}

func (u *postUsecase) Attempts(ctx context.Context, id string) ([]*model.DispatchAttempt, error) {
	return u.ledger.History(ctx, model.OriginPost, id)
}
