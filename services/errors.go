package services

import "errors"

// Domain errors. The "already resolved" case is a benign race outcome and is
// reported to callers as the current state, never as a failure.
var (
	ErrInvalidStake             = errors.New("invalid stake")
	ErrChallengeExpired         = errors.New("challenge expired")
	ErrChallengeAlreadyResolved = errors.New("challenge already resolved")
	ErrChallengeNotFound        = errors.New("challenge not found")
	ErrSessionNotFound          = errors.New("battle session not found")
	ErrSessionMismatch          = errors.New("callback session id does not match pending session")
	ErrRuntimeUnavailable       = errors.New("arena runtime unavailable")
	ErrNotChallenger            = errors.New("only the challenger can cancel")
	ErrNotOpponent              = errors.New("only the challenged player can respond")
)
