package models

import "time"

// Entry is a posted book review. Reaction fields are only ever changed
// through ReactionAction transitions.
type Entry struct {
	BookID        string    `dynamodbav:"bookId" json:"bookId"`                                     // ✅ Partition Key
	OwnerID       string    `dynamodbav:"ownerId" json:"ownerId"`                                   // User who posted the book
	Title         string    `dynamodbav:"title" json:"title"`                                       // Book title
	BookAuthor    string    `dynamodbav:"bookAuthor,omitempty" json:"bookAuthor,omitempty"`         // Author of the book itself
	Review        string    `dynamodbav:"review,omitempty" json:"review,omitempty"`                 // Review body
	CoverAssetKey string    `dynamodbav:"coverAssetKey,omitempty" json:"coverAssetKey,omitempty"`   // S3 key stored at upload time
	LikeCount     int       `dynamodbav:"like_count" json:"like_count"`                             // == len(LikedBy)
	DislikeCount  int       `dynamodbav:"dislike_count" json:"dislike_count"`                       // == len(DislikedBy)
	LikedBy       []string  `dynamodbav:"likedBy,stringset,omitempty" json:"likedBy"`               // String set, absent when empty
	DislikedBy    []string  `dynamodbav:"dislikedBy,stringset,omitempty" json:"dislikedBy"`         // String set, absent when empty
	CreatedAt     time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// Membership is one user's reaction state on one entry. Liked and Disliked
// are never both true.
type Membership struct {
	Liked    bool
	Disliked bool
}

// MembershipOf reports userID's current reaction on e.
func (e *Entry) MembershipOf(userID string) Membership {
	return Membership{
		Liked:    contains(e.LikedBy, userID),
		Disliked: contains(e.DislikedBy, userID),
	}
}

// ApplyMembership rewrites userID's reaction on e to m, keeping counts equal
// to set sizes.
func (e *Entry) ApplyMembership(userID string, m Membership) {
	e.LikedBy = setMember(e.LikedBy, userID, m.Liked)
	e.DislikedBy = setMember(e.DislikedBy, userID, m.Disliked)
	e.LikeCount = len(e.LikedBy)
	e.DislikeCount = len(e.DislikedBy)
}

// Clone returns a deep copy so callers can hand out snapshots.
func (e *Entry) Clone() *Entry {
	c := *e
	c.LikedBy = append([]string(nil), e.LikedBy...)
	c.DislikedBy = append([]string(nil), e.DislikedBy...)
	return &c
}

// ReactionAction is one of the four reaction transitions.
type ReactionAction string

const (
	ReactionLike          ReactionAction = "like"
	ReactionUnlike        ReactionAction = "unlike"
	ReactionDislike       ReactionAction = "dislike"
	ReactionRemoveDislike ReactionAction = "remove-dislike"
)

// Valid reports whether a is a known action.
func (a ReactionAction) Valid() bool {
	switch a {
	case ReactionLike, ReactionUnlike, ReactionDislike, ReactionRemoveDislike:
		return true
	}
	return false
}

// Next returns the membership after applying a to m. like and dislike
// clear the opposite reaction.
func (a ReactionAction) Next(m Membership) Membership {
	switch a {
	case ReactionLike:
		return Membership{Liked: true}
	case ReactionDislike:
		return Membership{Disliked: true}
	case ReactionUnlike:
		return Membership{Disliked: m.Disliked}
	case ReactionRemoveDislike:
		return Membership{Liked: m.Liked}
	}
	return m
}

// InteractionUpdate is the bookInteractionUpdate payload.
type InteractionUpdate struct {
	EntryID      string   `json:"entryId"`
	LikeCount    int      `json:"like_count"`
	DislikeCount int      `json:"dislike_count"`
	LikedBy      []string `json:"likedBy"`
	DislikedBy   []string `json:"dislikedBy"`
}

// InteractionUpdateOf builds the broadcast payload for e.
func InteractionUpdateOf(e *Entry) InteractionUpdate {
	return InteractionUpdate{
		EntryID:      e.BookID,
		LikeCount:    e.LikeCount,
		DislikeCount: e.DislikeCount,
		LikedBy:      nonNil(e.LikedBy),
		DislikedBy:   nonNil(e.DislikedBy),
	}
}

// BooksTable is the DynamoDB table name for book entries
const BooksTable = "Books"

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func setMember(set []string, v string, present bool) []string {
	has := contains(set, v)
	switch {
	case present && !has:
		return append(set, v)
	case !present && has:
		out := make([]string, 0, len(set)-1)
		for _, s := range set {
			if s != v {
				out = append(out, s)
			}
		}
		return out
	}
	return set
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
