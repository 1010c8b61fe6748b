package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindBadRequest, KindOf(BadRequest("chat %q already exists", "c1")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("chat not found")))
	assert.Equal(t, KindPermissionDenied, KindOf(PermissionDenied("no user is logged in")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("select chat: %w", NotFound("chat not found"))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindBadRequest))
}

func TestLLMWrapsCause(t *testing.T) {
	cause := errors.New("429 too many requests")
	err := LLM(cause)

	assert.Equal(t, KindLLM, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "429 too many requests")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "bad_request", KindBadRequest.String())
	assert.Equal(t, "llm_error", KindLLM.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
