package account

// Placeholder values written over PII fields. Content fields (message text,
// lesson transcriptions, summaries) are never touched.
const (
	AnonymousEmail       = "anonymous@example.com"
	AnonymousTeacherName = "Anonymous Teacher"
	DeletedUserName      = "Deleted User"
)

// DefaultGracePeriodDays is the delay between scheduling and execution.
const DefaultGracePeriodDays = 30

const (
	collectionUsers     = "users"
	collectionDeletions = "accountDeletions"
	profileDocKey       = "main"
)

const (
	fieldUserID         = "userId"
	fieldUserIDLesson   = "user_id"
	fieldUserEmail      = "userEmail"
	fieldEmail          = "email"
	fieldDisplayName    = "displayName"
	fieldTeacherName    = "teacherName"
	fieldScheduledFor   = "scheduledForDeletion"
	fieldCreatedAt      = "createdAt"
	fieldAnonymized     = "anonymized"
	fieldAnonymizedAt   = "anonymizedAt"
	fieldOriginalUserID = "originalUserId"
)

func chatRoomsCollection(userID string) string {
	return collectionUsers + "/" + userID + "/chatRooms"
}

func messagesCollection(userID, roomID string) string {
	return chatRoomsCollection(userID) + "/" + roomID + "/messages"
}

func lessonsCollection(userID string) string {
	return collectionUsers + "/" + userID + "/lessons"
}

func profileCollection(userID string) string {
	return collectionUsers + "/" + userID + "/profile"
}
