package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "buildtrack/internal/errors"
)

func TestAccessRoutes(t *testing.T) {
	env := newTestEnv(t)
	admin := env.signIn(t, "u1")
	engineer := env.signIn(t, "u2")

	rec := env.do(t, http.MethodGet, "/api/access", engineer, nil)
	requireStatus(t, rec, http.StatusForbidden)
	assert.Equal(t, apierrors.TypeForbidden, decodeBody(t, rec)["type"])

	rec = env.do(t, http.MethodGet, "/api/access", admin, nil)
	requireStatus(t, rec, http.StatusOK)
	overview := decodeBody(t, rec)
	assert.Len(t, overview["roles"], 2)
	assert.Len(t, overview["users"], 2)
	assert.Len(t, overview["assignments"], 2)

	rec = env.do(t, http.MethodPost, "/api/access/assignments", admin, map[string]string{
		"user_id": "u1", "project_id": "p1", "role_id": "admin",
	})
	requireStatus(t, rec, http.StatusConflict)

	rec = env.do(t, http.MethodPost, "/api/access/assignments", admin, map[string]string{
		"user_id": "u2", "project_id": "p1",
	})
	requireStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodPost, "/api/access/assignments", admin, map[string]string{
		"user_id": "u2", "project_id": "p1", "role_id": "admin",
	})
	requireStatus(t, rec, http.StatusCreated)
	id, ok := decodeBody(t, rec)["id"].(string)
	require.True(t, ok)
	assert.True(t, env.logs.ContainsMessage("project assigned"))

	rec = env.do(t, http.MethodGet, "/api/access/assignments?user_id=u2", admin, nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])

	rec = env.do(t, http.MethodDelete, "/api/access/assignments/"+id, admin, nil)
	requireStatus(t, rec, http.StatusNoContent)

	rec = env.do(t, http.MethodDelete, "/api/access/assignments/"+id, admin, nil)
	requireStatus(t, rec, http.StatusNotFound)
}
