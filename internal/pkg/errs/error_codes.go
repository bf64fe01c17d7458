/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both inside the server
and in REST and WebSocket responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed or has unexpected fields.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrNotFound indicates that the requested resource does not exist.
	ErrNotFound = 1008
)

// 2xxx: Chat, Board and Content Errors
const (
	// ErrRoomNotFound indicates that the referenced chat room does not exist.
	ErrRoomNotFound = 2103

	// ErrMessageContentTooLong indicates that message content exceeded the maximum length.
	ErrMessageContentTooLong = 2201

	// ErrMessageContentEmpty indicates that a message or post was submitted without content.
	ErrMessageContentEmpty = 2202

	// ErrMessageTypeInvalid indicates an unknown message kind.
	ErrMessageTypeInvalid = 2203

	// ErrImageReferenceInvalid indicates that image content is not a reference to an uploaded file.
	ErrImageReferenceInvalid = 2204

	// ErrPostNotFound indicates that the referenced board post does not exist.
	ErrPostNotFound = 2301

	// ErrFileSizeTooLarge indicates that an uploaded file is larger than allowed.
	ErrFileSizeTooLarge = 2401

	// ErrFileTypeInvalid indicates that an uploaded file is not an accepted image type.
	ErrFileTypeInvalid = 2402
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates that the PoW proof provided by the client is invalid.
	ErrPowChallengeInvalid = 3002

	// ErrUnauthorized indicates a missing, invalid or revoked identity.
	ErrUnauthorized = 3101

	// ErrAlreadyLoggedIn indicates a register/login attempt with a valid session.
	ErrAlreadyLoggedIn = 3102

	// ErrInvalidUsername indicates a username outside the allowed pattern.
	ErrInvalidUsername = 3103

	// ErrInvalidPassword indicates a password outside the allowed length.
	ErrInvalidPassword = 3104

	// ErrUserAlreadyExists indicates a registration with a taken username.
	ErrUserAlreadyExists = 3105

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = 3106

	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = 3107

	// ErrCannotTargetSelf indicates a friend or block action aimed at the caller.
	ErrCannotTargetSelf = 3108

	// ErrSenderNotFound indicates a chat message whose sender no longer resolves (integrity fault).
	ErrSenderNotFound = 3109
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreUnavailable indicates that the database could not serve the request.
	ErrStoreUnavailable = 5001

	// ErrFileStorageFailed indicates that an upload could not be stored.
	ErrFileStorageFailed = 5002
)
