package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookreview_server/logging"
	"bookreview_server/models"
	"bookreview_server/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// maxReactionAttempts bounds optimistic retries when another writer changes
// the same user's membership between our read and our conditional write.
const maxReactionAttempts = 5

// maxTransactItems is the DynamoDB TransactWriteItems limit.
const maxTransactItems = 100

// Tables names the DynamoDB tables. Empty fields fall back to the models
// defaults.
type Tables struct {
	Books         string
	Comments      string
	Notifications string
}

func (t Tables) withDefaults() Tables {
	if t.Books == "" {
		t.Books = models.BooksTable
	}
	if t.Comments == "" {
		t.Comments = models.CommentsTable
	}
	if t.Notifications == "" {
		t.Notifications = models.NotificationsTable
	}
	return t
}

// DynamoStore implements InteractionStore on DynamoDB.
type DynamoStore struct {
	Dynamo *DynamoService
	Tables Tables
}

// NewDynamoStore returns a store using the given tables.
func NewDynamoStore(dynamo *DynamoService, tables Tables) *DynamoStore {
	return &DynamoStore{Dynamo: dynamo, Tables: tables.withDefaults()}
}

func (s *DynamoStore) PutEntry(ctx context.Context, entry *models.Entry) error {
	if err := s.Dynamo.PutItem(ctx, s.Tables.Books, entry, "attribute_not_exists(bookId)"); err != nil {
		return internal("put entry", err)
	}
	return nil
}

func (s *DynamoStore) GetEntry(ctx context.Context, bookID string) (*models.Entry, error) {
	var entry models.Entry
	if err := s.Dynamo.GetItem(ctx, s.Tables.Books, stringKey("bookId", bookID), &entry); err != nil {
		if errors.Is(err, errItemNotFound) {
			return nil, notFound("get entry", "book %s not found", bookID)
		}
		return nil, internal("get entry", err)
	}
	return &entry, nil
}

// ApplyReaction reads the entry, computes the transition, then writes it
// with a condition pinning the membership it was computed from. Counts move
// with ADD in the same UpdateItem, so sets and counts never diverge.
func (s *DynamoStore) ApplyReaction(ctx context.Context, bookID, userID string, action models.ReactionAction) (*models.Entry, bool, error) {
	for attempt := 1; attempt <= maxReactionAttempts; attempt++ {
		current, err := s.GetEntry(ctx, bookID)
		if err != nil {
			return nil, false, err
		}

		before := current.MembershipOf(userID)
		after := action.Next(before)
		if after == before {
			return current, false, nil
		}

		in, err := reactionUpdate(bookID, userID, before, after, time.Now().UTC())
		if err != nil {
			return nil, false, internal("apply reaction", err)
		}
		attrs, err := s.Dynamo.UpdateItem(ctx, s.Tables.Books, in)
		if err != nil {
			if isConditionFailed(err) {
				logging.Ctx(ctx).Debug().
					Str("book_id", bookID).
					Int("attempt", attempt).
					Msg("reaction raced with another write, retrying")
				continue
			}
			return nil, false, internal("apply reaction", err)
		}

		var updated models.Entry
		if err := attributevalue.UnmarshalMap(attrs, &updated); err != nil {
			return nil, false, internal("apply reaction", err)
		}
		return &updated, true, nil
	}
	return nil, false, internal("apply reaction", fmt.Errorf("book %s: gave up after %d conflicting writes", bookID, maxReactionAttempts))
}

// reactionUpdate builds the conditional UpdateItem moving userID from
// membership before to after. Only names and values referenced by the
// expressions are included; DynamoDB rejects unused ones.
func reactionUpdate(bookID, userID string, before, after models.Membership, at time.Time) (UpdateInput, error) {
	updatedAt, err := attributevalue.Marshal(at)
	if err != nil {
		return UpdateInput{}, err
	}

	names := map[string]string{
		"#likedBy":    "likedBy",
		"#dislikedBy": "dislikedBy",
		"#updatedAt":  "updatedAt",
	}
	values := map[string]types.AttributeValue{
		":user":      &types.AttributeValueMemberS{Value: userID},
		":updatedAt": updatedAt,
	}

	var adds, deletes []string
	move := func(setName, countName, countAttr string, was, is bool) {
		if was == is {
			return
		}
		names[countName] = countAttr
		values[":userSet"] = &types.AttributeValueMemberSS{Value: []string{userID}}
		if is {
			values[":one"] = &types.AttributeValueMemberN{Value: "1"}
			adds = append(adds, setName+" :userSet", countName+" :one")
		} else {
			values[":minusOne"] = &types.AttributeValueMemberN{Value: "-1"}
			deletes = append(deletes, setName+" :userSet")
			adds = append(adds, countName+" :minusOne")
		}
	}
	move("#likedBy", "#likeCount", "like_count", before.Liked, after.Liked)
	move("#dislikedBy", "#dislikeCount", "dislike_count", before.Disliked, after.Disliked)

	expr := "SET #updatedAt = :updatedAt"
	if len(adds) > 0 {
		expr += " ADD " + strings.Join(adds, ", ")
	}
	if len(deletes) > 0 {
		expr += " DELETE " + strings.Join(deletes, ", ")
	}

	return UpdateInput{
		Key:              stringKey("bookId", bookID),
		UpdateExpression: expr,
		Condition: "attribute_exists(bookId) AND " +
			membershipCondition("#likedBy", before.Liked) + " AND " +
			membershipCondition("#dislikedBy", before.Disliked),
		Names:  names,
		Values: values,
	}, nil
}

func membershipCondition(setName string, member bool) string {
	if member {
		return "contains(" + setName + ", :user)"
	}
	return "NOT contains(" + setName + ", :user)"
}

// DeleteEntry removes the entry and its comments. The entry and up to 99
// comments go in one transaction; any remaining comments are batch deleted
// right after, so a book with a very long thread is removed first and its
// leftovers follow.
func (s *DynamoStore) DeleteEntry(ctx context.Context, bookID string) error {
	commentIDs, err := s.commentIDs(ctx, bookID)
	if err != nil {
		return internal("delete entry", err)
	}

	items := []types.TransactWriteItem{{
		Delete: &types.Delete{
			TableName:           aws.String(s.Tables.Books),
			Key:                 stringKey("bookId", bookID),
			ConditionExpression: aws.String("attribute_exists(bookId)"),
		},
	}}
	inTx := commentIDs
	var rest []string
	if len(inTx) > maxTransactItems-1 {
		inTx, rest = commentIDs[:maxTransactItems-1], commentIDs[maxTransactItems-1:]
	}
	for _, id := range inTx {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(s.Tables.Comments),
				Key:       stringKey("commentId", id),
			},
		})
	}

	if err := s.Dynamo.TransactWrite(ctx, items); err != nil {
		if firstConditionFailed(err) {
			return notFound("delete entry", "book %s not found", bookID)
		}
		return internal("delete entry", err)
	}

	if len(rest) > 0 {
		requests := make([]types.WriteRequest, 0, len(rest))
		for _, id := range rest {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: stringKey("commentId", id)},
			})
		}
		if err := s.Dynamo.BatchWriteItems(ctx, s.Tables.Comments, requests); err != nil {
			return internal("delete entry comments", err)
		}
	}
	return nil
}

// commentIDs lists only the keys of a book's comments; the rest of each item
// is not needed for a delete.
func (s *DynamoStore) commentIDs(ctx context.Context, bookID string) ([]string, error) {
	items, err := s.Dynamo.QueryAllWithIndex(ctx, s.Tables.Comments, models.CommentsByBookIndex,
		"#bookId = :bookId",
		map[string]types.AttributeValue{":bookId": &types.AttributeValueMemberS{Value: bookID}},
		map[string]string{"#bookId": "bookId"},
	)
	if err != nil {
		return nil, err
	}
	return utils.ExtractStrings(items, "commentId"), nil
}

// PutComment writes the comment in a transaction with a condition check on
// the owning book, so a comment can never outlive a concurrent book delete.
func (s *DynamoStore) PutComment(ctx context.Context, comment *models.Comment) error {
	item, err := attributevalue.MarshalMap(comment)
	if err != nil {
		return internal("put comment", err)
	}
	err = s.Dynamo.TransactWrite(ctx, []types.TransactWriteItem{
		{
			ConditionCheck: &types.ConditionCheck{
				TableName:           aws.String(s.Tables.Books),
				Key:                 stringKey("bookId", comment.BookID),
				ConditionExpression: aws.String("attribute_exists(bookId)"),
			},
		},
		{
			Put: &types.Put{
				TableName:           aws.String(s.Tables.Comments),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(commentId)"),
			},
		},
	})
	if err != nil {
		if firstConditionFailed(err) {
			return notFound("put comment", "book %s not found", comment.BookID)
		}
		return internal("put comment", err)
	}
	return nil
}

func (s *DynamoStore) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	var c models.Comment
	if err := s.Dynamo.GetItem(ctx, s.Tables.Comments, stringKey("commentId", commentID), &c); err != nil {
		if errors.Is(err, errItemNotFound) {
			return nil, notFound("get comment", "comment %s not found", commentID)
		}
		return nil, internal("get comment", err)
	}
	return &c, nil
}

func (s *DynamoStore) ListComments(ctx context.Context, bookID string) ([]models.Comment, error) {
	items, err := s.Dynamo.QueryAllWithIndex(ctx, s.Tables.Comments, models.CommentsByBookIndex,
		"#bookId = :bookId",
		map[string]types.AttributeValue{":bookId": &types.AttributeValueMemberS{Value: bookID}},
		map[string]string{"#bookId": "bookId"},
	)
	if err != nil {
		return nil, internal("list comments", err)
	}
	comments := []models.Comment{}
	if err := attributevalue.UnmarshalListOfMaps(items, &comments); err != nil {
		return nil, internal("list comments", err)
	}
	return comments, nil
}

func (s *DynamoStore) UpdateCommentText(ctx context.Context, commentID, authorID, text string, at time.Time) (*models.Comment, error) {
	updatedAt, err := attributevalue.Marshal(at)
	if err != nil {
		return nil, internal("update comment", err)
	}
	attrs, err := s.Dynamo.UpdateItem(ctx, s.Tables.Comments, UpdateInput{
		Key:              stringKey("commentId", commentID),
		UpdateExpression: "SET #text = :text, #updatedAt = :updatedAt",
		Condition:        "attribute_exists(commentId) AND #authorId = :authorId",
		Names: map[string]string{
			"#text":      "text",
			"#updatedAt": "updatedAt",
			"#authorId":  "authorId",
		},
		Values: map[string]types.AttributeValue{
			":text":      &types.AttributeValueMemberS{Value: text},
			":updatedAt": updatedAt,
			":authorId":  &types.AttributeValueMemberS{Value: authorID},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, s.ownershipError(ctx, "update comment", commentID)
		}
		return nil, internal("update comment", err)
	}
	var c models.Comment
	if err := attributevalue.UnmarshalMap(attrs, &c); err != nil {
		return nil, internal("update comment", err)
	}
	return &c, nil
}

func (s *DynamoStore) DeleteComment(ctx context.Context, commentID, authorID string) error {
	err := s.Dynamo.DeleteItem(ctx, s.Tables.Comments, stringKey("commentId", commentID),
		"attribute_exists(commentId) AND authorId = :authorId",
		map[string]types.AttributeValue{":authorId": &types.AttributeValueMemberS{Value: authorID}},
	)
	if err != nil {
		if isConditionFailed(err) {
			return s.ownershipError(ctx, "delete comment", commentID)
		}
		return internal("delete comment", err)
	}
	return nil
}

// ownershipError explains a failed author condition: the comment is either
// gone or owned by someone else.
func (s *DynamoStore) ownershipError(ctx context.Context, op, commentID string) error {
	if _, err := s.GetComment(ctx, commentID); err != nil {
		return err
	}
	return forbidden(op, "only the author can modify this comment")
}

func (s *DynamoStore) PutNotification(ctx context.Context, n *models.Notification) error {
	if err := s.Dynamo.PutItem(ctx, s.Tables.Notifications, n, ""); err != nil {
		return internal("put notification", err)
	}
	return nil
}

// firstConditionFailed reports whether a cancelled transaction failed on its
// first item's condition.
func firstConditionFailed(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) || len(tce.CancellationReasons) == 0 {
		return false
	}
	return aws.ToString(tce.CancellationReasons[0].Code) == "ConditionalCheckFailed"
}
