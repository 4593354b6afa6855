package models

import "time"

// NotificationKind enumerates what a notification is about.
type NotificationKind string

const (
	NotificationNewComment    NotificationKind = "new_comment"
	NotificationNewLikeOnBook NotificationKind = "new_like_on_book"
)

// Related item types referenced by notifications.
const (
	RelatedTypeBook    = "book"
	RelatedTypeComment = "comment"
)

// Notification is persisted before any live delivery is attempted.
// RecipientID never equals ActorID.
type Notification struct {
	NotificationID string           `dynamodbav:"notificationId" json:"notificationId"` // ✅ Partition Key
	RecipientID    string           `dynamodbav:"recipientId" json:"recipientId"`       // ✅ GSI partition key
	ActorID        string           `dynamodbav:"actorId" json:"actorId"`
	Kind           NotificationKind `dynamodbav:"kind" json:"kind"`
	Message        string           `dynamodbav:"message" json:"message"`
	Link           string           `dynamodbav:"link" json:"link"`
	RelatedType    string           `dynamodbav:"relatedType" json:"relatedType"`
	RelatedID      string           `dynamodbav:"relatedId" json:"relatedId"`
	IsRead         bool             `dynamodbav:"isRead" json:"isRead"`
	CreatedAt      time.Time        `dynamodbav:"createdAt" json:"createdAt"`
}

// NotificationsTable is the DynamoDB table name for notifications
const NotificationsTable = "Notifications"

// RecipientIndex is the GSI for a user's notifications (PK: recipientId)
const RecipientIndex = "recipientId-index"
