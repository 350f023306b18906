package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "internal server error: boom", appErr.Error())
}

func TestCloneKeepsIdentityForIs(t *testing.T) {
	cloned := Clone(ErrStaleVersion, "session changed")
	assert.True(t, errors.Is(cloned, ErrStaleVersion))
	assert.False(t, errors.Is(cloned, ErrConflict))
	assert.Equal(t, "session changed", cloned.Message)
	assert.Equal(t, "resource was modified by someone else, reload and retry", ErrStaleVersion.Message)
}

func TestWithDetails(t *testing.T) {
	withDetails := WithDetails(ErrForbidden, map[string]any{"requiredRole": "exe"})
	assert.Equal(t, "exe", withDetails.Details["requiredRole"])
	assert.Nil(t, ErrForbidden.Details)
}
