package persistence

import (
	"context"

	"socialhub/domain/model"
	"socialhub/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// IAttemptArchive mirrors ledger rows into a store the analytics
// collaborators read. Archiving is best effort and never fails the caller.
type IAttemptArchive interface {
	Archive(ctx context.Context, attempt *model.DispatchAttempt)
}

type AttemptArchive struct {
	mongoDb *mongo.Client
}

func NewAttemptArchive(mongoDb *mongo.Client) IAttemptArchive {
	return &AttemptArchive{mongoDb: mongoDb}
}

func (a *AttemptArchive) collection() *mongo.Collection {
	return a.mongoDb.Database("socialhub").Collection("dispatch_attempts")
}

func (a *AttemptArchive) Archive(ctx context.Context, attempt *model.DispatchAttempt) {
	if a.mongoDb == nil {
		return
	}
	if _, err := a.collection().InsertOne(ctx, attempt); err != nil {
		logger.GetLogger().WithField("attempt_id", attempt.ID).WithField("error", err).Warn("attempt archive insert failed")
	}
}
