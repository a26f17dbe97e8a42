package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"civicprofile/domain/core"
)

func TestWrap_InheritsCode(t *testing.T) {
	base := ConfigInvalid("TOP_N must be positive")
	wrapped := Wrap(base, "failed to load configuration")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.Equal(t, "failed to load configuration: TOP_N must be positive", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))
	assert.NoError(t, Wrapf(nil, "ignored %d", 1))
	assert.NoError(t, WithCode(CodeLoadError, nil))
}

func TestGetCode_DomainSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"schema", core.NewSchemaError("SR_TYPE"), CodeSchemaError},
		{"not found", core.NewNotFoundError("dataset", "x"), CodeNotFound},
		{"invalid input", core.NewInvalidInputError("n", "must be positive"), CodeInvalidInput},
		{"empty input", fmt.Errorf("ratio: %w", core.ErrEmptyInput), CodeInvalidInput},
		{"plain", stderrors.New("boom"), CodeInternalError},
		{"load", LoadError("service_requests", stderrors.New("eof")), CodeLoadError},
		{"wrapped app error", fmt.Errorf("run: %w", NotFound("dataset x")), CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestWrapf_SchemaErrorKeepsSentinel(t *testing.T) {
	err := Wrapf(core.NewSchemaError("LATITUDE"), "profile %s", "building_violations")

	assert.Equal(t, CodeSchemaError, GetCode(err))
	assert.True(t, core.IsSchemaError(err))
	assert.True(t, IsAppError(err))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeLoadError, stderrors.New("connection refused"))
	assert.Equal(t, CodeLoadError, GetCode(err))
	assert.ErrorContains(t, err, "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("dataset")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(core.NewSchemaError("x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("format")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(LoadError("d", stderrors.New("x"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(stderrors.New("x")))
}
