package services

import (
	"context"
	"errors"

	"bookreview_server/models"
)

// UserProfileService reads display profiles from the Users table.
type UserProfileService struct {
	Dynamo *DynamoService
	Table  string
}

// GetUserProfile retrieves a user profile by ID
func (ups *UserProfileService) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	table := ups.Table
	if table == "" {
		table = models.UserProfilesTable
	}

	var profile models.UserProfile
	if err := ups.Dynamo.GetItem(ctx, table, stringKey("userId", userID), &profile); err != nil {
		if errors.Is(err, errItemNotFound) {
			return nil, notFound("get profile", "profile %s not found", userID)
		}
		return nil, internal("get profile", err)
	}
	return &profile, nil
}
