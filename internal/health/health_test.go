package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRooms int

func (f fixedRooms) ActiveRooms() int { return int(f) }

func get(t *testing.T, h http.Handler, path string) (int, Status) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var status Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	return w.Code, status
}

func TestUnconfiguredDependenciesAreDisabled(t *testing.T) {
	status := NewChecker(nil, nil, nil, fixedRooms(3)).Check(context.Background())
	assert.Equal(t, StateDisabled, status.NATS)
	assert.Equal(t, StateDisabled, status.Redis)
	assert.Equal(t, StateDisabled, status.Database)
	assert.Equal(t, 3, status.Rooms)
	assert.True(t, status.Ready())
}

func TestReadyFollowsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	h := NewChecker(nil, client, nil, nil).Handler()

	code, status := get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StateConnected, status.Redis)

	mr.Close()

	code, status = get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StateDisconnected, status.Redis)

	// 存活检查不受依赖影响
	code, _ = get(t, h, "/health")
	assert.Equal(t, http.StatusOK, code)
}
