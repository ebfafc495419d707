package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		Unauthorized("no token"):                 http.StatusUnauthorized,
		DecodeError("bad base64", nil):           http.StatusBadRequest,
		ParseError("no header", nil):             http.StatusBadRequest,
		ValidationError("missing Ward"):          http.StatusBadRequest,
		TooLarge(10):                             http.StatusRequestEntityTooLarge,
		AggregationError("grouping failed", nil): http.StatusInternalServerError,
		ConfigInvalid("bad config"):              http.StatusInternalServerError,
		stderrors.New("plain"):                   http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestWrapKeepsCode(t *testing.T) {
	cause := ParseError("no header row found", nil)
	wrapped := fmt.Errorf("census.xlsx: %w", Wrap(cause, "load failed"))

	assert.Equal(t, CodeParseError, GetCode(wrapped))
	assert.True(t, HasCode(wrapped, CodeParseError))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "load failed: no header row found", Wrap(cause, "load failed").Error())

	assert.Equal(t, CodeInternalError, GetCode(Wrap(stderrors.New("io"), "read failed")))
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, WithCode(CodeParseError, nil, "nothing"))
	assert.False(t, HasCode(nil, CodeParseError))
}
