package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHealthHealthyWithNoComponents(t *testing.T) {
	healthChecker.mu.Lock()
	healthChecker.components = make(map[string]componentHealth)
	healthChecker.mu.Unlock()

	h := GetHealth()
	assert.Equal(t, "healthy", h.Status)
}

func TestGetHealthUnhealthyWhenComponentFails(t *testing.T) {
	RegisterComponent("catalog", true, "")
	RegisterComponent("queue", false, "db locked")

	h := GetHealth()
	assert.Equal(t, "unhealthy", h.Status)
	assert.Contains(t, h.Components["queue"], "db locked")
	assert.Equal(t, "healthy", h.Components["catalog"])
}

func TestHealthHandlerReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	RegisterComponent("blobstore", false, "disk full")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	HealthHandler()(rec, req)

	assert.Equal(t, 503, rec.Code)
}

func TestLivenessHandlerAlwaysOK(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/livez", nil)
	LivenessHandler()(rec, req)

	assert.Equal(t, 200, rec.Code)
}
