package appErrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
)

func TestServerMessageUnwrapsChain(t *testing.T) {
	apiErr := &appErrors.APIError{Op: "send mail", StatusCode: 422, Message: "quota exceeded"}
	wrapped := fmt.Errorf("dispatch: %w", appErrors.NewPersistError(apiErr))

	assert.Equal(t, "quota exceeded", appErrors.ServerMessage(wrapped))
	assert.Equal(t, "", appErrors.ServerMessage(errors.New("boom")))

	var persistErr *appErrors.PersistError
	assert.True(t, errors.As(wrapped, &persistErr))
}

func TestValidationErrorsMessageIsSorted(t *testing.T) {
	err := appErrors.ValidationErrors{"title": "required", "content": "required"}
	assert.Equal(t, "validation failed: content: required; title: required", err.Error())
}

func TestAPIErrorWithoutMessage(t *testing.T) {
	err := &appErrors.APIError{Op: "list campaigns", StatusCode: 502}
	assert.Equal(t, "list campaigns: status 502", err.Error())
}
