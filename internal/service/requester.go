package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/models"
	"github.com/noah-isme/coaching-center-api/internal/policy"
	"github.com/noah-isme/coaching-center-api/internal/repository"
)

func loadRequester(ctx context.Context, users repository.UserRepository, id uint) (policy.Requester, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policy.Requester{}, ErrRequesterUnknown
		}
		return policy.Requester{}, err
	}
	return requesterFromUser(user), nil
}

func requesterFromUser(user models.User) policy.Requester {
	return policy.Requester{
		ID:             user.ID,
		Role:           user.Role,
		Status:         user.Status,
		BatchID:        user.BatchID(),
		TeacherBatches: user.TeacherBatchIDs(),
	}
}

func targetFromUser(user models.User) policy.Target {
	return policy.Target{
		ID:      user.ID,
		Role:    user.Role,
		Status:  user.Status,
		BatchID: user.BatchID(),
	}
}
