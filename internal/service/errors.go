package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTier          = errors.New("invalid subscription tier")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrQuotaExceeded        = errors.New("monthly image limit reached")
	ErrRetryable            = errors.New("subscription is busy, please retry")
	ErrSubscriptionNotFound = errors.New("active subscription required")
	ErrUserNotFound         = errors.New("user not found")
	ErrGenerationNotFound   = errors.New("generated image not found")
)

// QuotaExceededError 带上限和已用量，errors.Is(err, ErrQuotaExceeded) 为 true
type QuotaExceededError struct {
	Tier  string
	Limit int
	Used  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %d of %d images used on %s plan", ErrQuotaExceeded, e.Used, e.Limit, e.Tier)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Kind 错误类别
type Kind string

const (
	KindNone             Kind = ""
	KindUnknownTier      Kind = "UnknownTier"
	KindNotAuthenticated Kind = "NotAuthenticated"
	KindForbidden        Kind = "Forbidden"
	KindQuotaExceeded    Kind = "QuotaExceeded"
	KindRetryable        Kind = "Retryable"
	KindNotFound         Kind = "NotFound"
	KindInvalidRequest   Kind = "InvalidRequest"
	KindDuplicate        Kind = "Duplicate"
	KindInternal         Kind = "Internal"
)

// KindOf 把业务错误归类，未识别的错误为 KindInternal
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnknownTier):
		return KindUnknownTier
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrInvalidCredentials):
		return KindNotAuthenticated
	case errors.Is(err, ErrAccountPending), errors.Is(err, ErrAccountInactive), errors.Is(err, ErrAdminRequired):
		return KindForbidden
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.Is(err, ErrRetryable):
		return KindRetryable
	case errors.Is(err, ErrSubscriptionNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrGenerationNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidScene), errors.Is(err, ErrMissingGenerateInput), errors.Is(err, ErrInvalidImageID),
		errors.Is(err, ErrInvalidRole), errors.Is(err, ErrNoFieldsToUpdate), errors.Is(err, ErrWeakPassword):
		return KindInvalidRequest
	case errors.Is(err, ErrEmailExists), errors.Is(err, ErrAdminExists):
		return KindDuplicate
	default:
		return KindInternal
	}
}
