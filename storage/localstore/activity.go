package localstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/activity"
)

type activityRepository struct {
	store *Store
	ids   core.IDGen
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(store *Store, ids core.IDGen) activity.Repository {
	return &activityRepository{store: store, ids: ids}
}

func (repo *activityRepository) AddActivity(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	var acts []activity.Activity
	err := repo.store.Update(ctx, CollectionActivities, &acts, func() (bool, error) {
		act.ID = repo.ids.NewID()
		acts = append(acts, act)
		return true, nil
	})
	if err != nil {
		return activity.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return act, nil
}

func (repo *activityRepository) QueryActivities(ctx context.Context) ([]activity.Activity, error) {
	var acts []activity.Activity
	if err := repo.store.Read(ctx, CollectionActivities, &acts); err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	return acts, nil
}
