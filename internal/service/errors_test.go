package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotaExceededError(t *testing.T) {
	err := error(&QuotaExceededError{Tier: "free", Limit: 10, Used: 10})

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.ErrorIs(t, fmt.Errorf("generate: %w", err), ErrQuotaExceeded)
	assert.Contains(t, err.Error(), "10 of 10")

	var qe *QuotaExceededError
	assert.True(t, errors.As(err, &qe))
	assert.Equal(t, 10, qe.Limit)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{fmt.Errorf("%w: %q", ErrUnknownTier, "gold"), KindUnknownTier},
		{ErrNotAuthenticated, KindNotAuthenticated},
		{ErrInvalidCredentials, KindNotAuthenticated},
		{&QuotaExceededError{Limit: 1, Used: 1}, KindQuotaExceeded},
		{ErrRetryable, KindRetryable},
		{ErrSubscriptionNotFound, KindNotFound},
		{ErrGenerationNotFound, KindNotFound},
		{fmt.Errorf("profile: %w", ErrUserNotFound), KindNotFound},
		{ErrInvalidScene, KindInvalidRequest},
		{ErrMissingGenerateInput, KindInvalidRequest},
		{ErrInvalidImageID, KindInvalidRequest},
		{ErrInvalidRole, KindInvalidRequest},
		{ErrNoFieldsToUpdate, KindInvalidRequest},
		{ErrWeakPassword, KindInvalidRequest},
		{ErrAccountPending, KindForbidden},
		{ErrAccountInactive, KindForbidden},
		{ErrAdminRequired, KindForbidden},
		{ErrEmailExists, KindDuplicate},
		{ErrAdminExists, KindDuplicate},
		{errors.New("disk on fire"), KindInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}
