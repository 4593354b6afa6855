package models

import "time"

// Comment is stored in the Comments table. BookID never changes after
// creation.
type Comment struct {
	CommentID string    `dynamodbav:"commentId" json:"commentId"` // ✅ Partition Key
	BookID    string    `dynamodbav:"bookId" json:"bookId"`       // ✅ GSI partition key (bookId-index)
	AuthorID  string    `dynamodbav:"authorId" json:"authorId"`
	Text      string    `dynamodbav:"text" json:"text"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"` // ✅ GSI sort key
	UpdatedAt time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// CommentView is a comment with its author's display fields resolved. It is
// what callers and socket clients see; it is never stored.
type CommentView struct {
	Comment
	AuthorName   string `json:"authorName"`
	AuthorAvatar string `json:"authorAvatar,omitempty"`
}

// CommentDeleted is the commentDeleted payload.
type CommentDeleted struct {
	CommentID string `json:"commentId"`
	EntryID   string `json:"entryId"`
}

// CommentsTable is the DynamoDB table name for comments
const CommentsTable = "Comments"

// CommentsByBookIndex is the GSI used to list a book's comments (PK: bookId, SK: createdAt)
const CommentsByBookIndex = "bookId-index"
