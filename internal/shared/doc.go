// Package shared contains the error taxonomy used across the service.
//
// # Sentinels and kinds
//
// Every failure belongs to one Kind, detected through sentinel errors in its
// chain (ErrNotFound, ErrValidation, ErrUnauthorized, ErrInternal,
// ErrTimeout) or through context cancellation:
//
//	switch shared.KindOf(err) {
//	case shared.KindNotFound:
//	    // ...
//	case shared.KindTimeout:
//	    // ...
//	}
//
// Third-party errors are classified with MarkKind and given context with
// Wrap/Wrapf; neither loses the original error.
//
// # Typed application errors
//
// The service produces a closed set of typed errors:
//
//   - LoginFailError (code LOGIN_FAIL, kind Unauthorized)
//   - ResourceNotFoundError{ID} (code TICKET_DELETE_FAIL_ID_NOT_FOUND, kind NotFound)
//
// They implement Coded and slog.LogValuer, so a single slog.Any("error", err)
// attribute records the code and every field. Adding a variant means adding a
// type here; the boundary responder masks it without changes.
//
// # Message style
//
// Messages are lowercase, without trailing punctuation, and composable under
// further wrapping.
package shared
