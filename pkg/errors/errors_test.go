package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrapsToSentinel(t *testing.T) {
	assert.ErrorIs(t, NotFound("product", "prod-1"), ErrNotFound)
	assert.ErrorIs(t, InvalidInput("bad filter"), ErrInvalidInput)
	assert.ErrorIs(t, RebuildInProgress(), ErrRebuildInProgress)
	assert.ErrorIs(t, EngineUnavailable(errors.New("dial tcp refused")), ErrEngineUnavailable)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrRebuildInProgress, http.StatusConflict},
		{ErrEngineUnavailable, http.StatusServiceUnavailable},
		{ErrInternal, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrVersionConflict), http.StatusInternalServerError},
		{EngineUnavailable(errors.New("down")), http.StatusServiceUnavailable},
	}

	for _, c := range cases {
		assert.Equal(t, c.status, HTTPStatus(c.err), c.err.Error())
	}
}

func TestHTTPStatusWrappedSentinels(t *testing.T) {
	err := fmt.Errorf("search products: %w", ErrEngineUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(err))
}
