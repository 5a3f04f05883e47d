package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stridewear/api/internal/domain"
)

func TestStatusFromCode(t *testing.T) {
	cases := map[string]int{
		domain.EINVALID:      http.StatusBadRequest,
		domain.ENOTFOUND:     http.StatusNotFound,
		domain.ECONFLICT:     http.StatusConflict,
		domain.EUNAUTHORIZED: http.StatusUnauthorized,
		domain.EFORBIDDEN:    http.StatusForbidden,
		domain.EINTERNAL:     http.StatusInternalServerError,
		"something else":     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusFromCode(code), code)
	}
}
