package errs

import "net/http"

// errorMap holds the template CustomError for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrNotFound:              {Code: ErrNotFound, Message: "Not found.", Status: http.StatusNotFound},

	// 2xxx
	ErrRoomNotFound:          {Code: ErrRoomNotFound, Message: "Chat room not found.", Status: http.StatusNotFound},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes).", Status: http.StatusBadRequest},
	ErrMessageContentEmpty:   {Code: ErrMessageContentEmpty, Message: "Content cannot be empty.", Status: http.StatusBadRequest},
	ErrMessageTypeInvalid:    {Code: ErrMessageTypeInvalid, Message: "Unknown message type.", Status: http.StatusBadRequest},
	ErrImageReferenceInvalid: {Code: ErrImageReferenceInvalid, Message: "Images must be uploaded first.", Status: http.StatusBadRequest},
	ErrPostNotFound:          {Code: ErrPostNotFound, Message: "Post not found.", Status: http.StatusNotFound},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is too large (max %d MB).", Status: http.StatusRequestEntityTooLarge},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Message: "Only JPEG, PNG, WebP and GIF images are accepted.", Status: http.StatusBadRequest},

	// 3xxx
	ErrPowChallengeRequired: {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again.", Status: http.StatusForbidden},
	ErrPowChallengeInvalid:  {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again.", Status: http.StatusForbidden},
	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Unauthorized.", Status: http.StatusUnauthorized},
	ErrAlreadyLoggedIn:      {Code: ErrAlreadyLoggedIn, Message: "You are already signed in.", Status: http.StatusConflict},
	ErrInvalidUsername:      {Code: ErrInvalidUsername, Message: "Usernames are 2-20 characters: letters, digits, _ or -.", Status: http.StatusBadRequest},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Passwords are 6-72 characters.", Status: http.StatusBadRequest},
	ErrUserAlreadyExists:    {Code: ErrUserAlreadyExists, Message: "Username already exists.", Status: http.StatusConflict},
	ErrInvalidCredentials:   {Code: ErrInvalidCredentials, Message: "Invalid credentials.", Status: http.StatusUnauthorized},
	ErrUserNotFound:         {Code: ErrUserNotFound, Message: "User not found.", Status: http.StatusNotFound},
	ErrCannotTargetSelf:     {Code: ErrCannotTargetSelf, Message: "You cannot do that to yourself.", Status: http.StatusBadRequest},
	ErrSenderNotFound:       {Code: ErrSenderNotFound, Message: "Sender could not be resolved.", Status: http.StatusConflict},

	// 5xxx
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStoreUnavailable:  {Code: ErrStoreUnavailable, Message: "Storage is temporarily unavailable.", Status: http.StatusServiceUnavailable},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusInternalServerError},
}
