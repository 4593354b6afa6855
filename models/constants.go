package models

// ✅ Room events sent to subscribers of a book's room
const (
	EventNewComment            = "newComment"
	EventCommentUpdated        = "commentUpdated"
	EventCommentDeleted        = "commentDeleted"
	EventBookInteractionUpdate = "bookInteractionUpdate"
)

// ✅ Event sent on a user's personal channel
const EventNewNotification = "newNotification"

// ✅ Events sent by clients over the socket
const (
	ClientEventJoinBook  = "joinBook"
	ClientEventLeaveBook = "leaveBook"
)
