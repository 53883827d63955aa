package version

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.2.3"
	assert.Equal(t, "v1.2.3 (unknown, unknown)", String())
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler("minutesd")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var info Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "minutesd", info.Service)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}
