package httpmetrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AlibekovAA/recordkeeper/internal/common/httpmetrics"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", httpmetrics.NormalizePath(""))
	assert.Equal(t, "/recordings", httpmetrics.NormalizePath("/recordings"))
	assert.Equal(t, "/recordings/{param}", httpmetrics.NormalizePath("/recordings/2f1c7a8e-3b9d-4f6a-9c2e-1a2b3c4d5e6f"))
	assert.Equal(t, "/reports/{param}", httpmetrics.NormalizePath("/reports/2024"))
}

func TestCollector_PassesStatusThrough(t *testing.T) {
	h := httpmetrics.New("test").Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recordings", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
