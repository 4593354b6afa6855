package models

// UserProfile holds the display fields used to denormalize comment views.
// Profiles are created by the account collaborator; this service only reads
// them.
type UserProfile struct {
	UserID   string `dynamodbav:"userId" json:"userId"`                         // ✅ Partition Key
	UserName string `dynamodbav:"username,omitempty" json:"username,omitempty"` // Display name
	Avatar   string `dynamodbav:"avatar,omitempty" json:"avatar,omitempty"`     // Avatar URL
}

// UserProfilesTable is the DynamoDB table name for user profiles
const UserProfilesTable = "Users"
