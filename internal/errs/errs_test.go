package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndError(t *testing.T) {
	e := New(InvalidInput, "bad box name")
	assert.Equal(t, "invalid_input: bad box name", e.Error())
	assert.Nil(t, e.Unwrap())
}

func TestNewfFormats(t *testing.T) {
	e := Newf(NotFound, "box %q not found", "docs")
	assert.Equal(t, `not_found: box "docs" not found`, e.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(Internal, cause, "failed to write chunk")
	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "disk full")
}

func TestWithSuggestionDoesNotMutateOriginal(t *testing.T) {
	e := New(NameTaken, "shelf exists")
	withHint := e.WithSuggestion("use a different name")
	assert.Empty(t, e.Suggestion)
	assert.Equal(t, "use a different name", withHint.Suggestion)
}

func TestAsAndIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(Protected, "default shelf"))
	kind, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, Protected, kind)
	assert.True(t, Is(err, Protected))
	assert.False(t, Is(err, Busy))
}

func TestAsOnPlainError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}

func TestExitCodeForErr(t *testing.T) {
	assert.Equal(t, 0, ExitCodeForErr(nil))
	assert.Equal(t, 1, ExitCodeForErr(errors.New("plain")))
	assert.Equal(t, 3, ExitCodeForErr(New(NotFound, "missing")))
	assert.Equal(t, 4, ExitCodeForErr(New(Protected, "default")))
	assert.Equal(t, 5, ExitCodeForErr(New(EmbedTimeout, "slow")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, HTTPStatus(InvalidInput))
	assert.Equal(t, 404, HTTPStatus(NotFound))
	assert.Equal(t, 403, HTTPStatus(ForbiddenNetwork))
	assert.Equal(t, 409, HTTPStatus(Busy))
	assert.Equal(t, 503, HTTPStatus(VectorBackendUnavailable))
	assert.Equal(t, 500, HTTPStatus(Internal))
}

func TestCodeIsStableWireValue(t *testing.T) {
	assert.Equal(t, "wizard_invalid", Code(WizardInvalid))
}
