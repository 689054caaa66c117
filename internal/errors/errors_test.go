package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errRagged = errors.New("ragged")

func TestStageInputNamesStageAndElement(t *testing.T) {
	err := StageInput("differential_expression", "sample GSM1", errRagged)
	assert.Equal(t, CodeInvalidInput, err.Code)
	assert.True(t, strings.Contains(err.Error(), "differential_expression"))
	assert.True(t, strings.Contains(err.Error(), "sample GSM1"))
	assert.True(t, errors.Is(err, errRagged))
}

func TestWrapKeepsCode(t *testing.T) {
	base := StageInput("group_assignment", "samples", nil)
	wrapped := Wrap(base, "pipeline")
	assert.Equal(t, CodeInvalidInput, GetCode(wrapped))

	plain := Wrapf(errRagged, "load %s", "matrix")
	assert.Equal(t, CodeInternalError, GetCode(plain))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("run"))
	assert.Equal(t, CodeNotFound, GetCode(err))
	assert.True(t, IsAppError(err))
	assert.Equal(t, "UNKNOWN", GetCode(errRagged))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("run")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("bad")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errRagged))
	assert.Equal(t, CodeConfigInvalid, GetCode(WithCode(CodeConfigInvalid, errRagged)))
}
