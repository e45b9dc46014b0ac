package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildtrack/internal/session"
	"buildtrack/internal/shared/testutil"
	"buildtrack/pkg/contracts/domain"
)

func TestAccessServiceRequiresUserManagement(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewAccessService(newTestStore(), newTestValidator(t), logger)
	ctx := context.Background()

	_, err := svc.Overview(ctx, viewerSession())
	assert.ErrorIs(t, err, session.ErrForbidden)
	_, err = svc.Assign(ctx, nil, domain.AssignmentInput{UserID: "u2", ProjectID: "p1", RoleID: "engineer"})
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
	assert.ErrorIs(t, svc.Remove(ctx, viewerSession(), "a1"), session.ErrForbidden)
}

func TestAccessServiceAssignments(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewAccessService(newTestStore(), newTestValidator(t), logger)
	svc.now = testClock
	ctx := context.Background()

	overview, err := svc.Overview(ctx, adminSession())
	require.NoError(t, err)
	assert.Len(t, overview.Roles, 2)
	assert.Len(t, overview.Users, 2)
	assert.Len(t, overview.Assignments, 1)

	in := domain.AssignmentInput{UserID: "u2", ProjectID: "p1", RoleID: "engineer"}
	a, err := svc.Assign(ctx, adminSession(), in)
	require.NoError(t, err)
	assert.Equal(t, testNow, a.AssignedAt)

	_, err = svc.Assign(ctx, adminSession(), in)
	assert.ErrorIs(t, err, ErrAssignmentConflict)

	_, err = svc.Assign(ctx, adminSession(), domain.AssignmentInput{UserID: "u2"})
	assert.Error(t, err)

	mine, err := svc.Assignments(ctx, adminSession(), "u2")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, svc.Remove(ctx, adminSession(), a.ID))
	assert.ErrorIs(t, svc.Remove(ctx, adminSession(), a.ID), ErrAssignmentNotFound)
}
