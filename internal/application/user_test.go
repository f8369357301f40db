package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"port-vision/internal/domain/entity"
	"port-vision/internal/infrastructure/storage"
)

func TestUserService_BeginCheckAndCancel(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.BeginCheck(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)

	user, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestUserService_ProcessingAndFinish(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.StartProcessing(ctx, 2, 20)
	require.NoError(t, err)
	require.True(t, user.Busy())

	inspection := &entity.Inspection{ID: "abc", Ports: entity.NewPortTable().Report()}
	user, err = svc.FinishCheck(ctx, 2, 20, inspection)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Same(t, inspection, user.LastInspection)

	user, err = svc.Get(ctx, 2, 20)
	require.NoError(t, err)
	require.False(t, user.Busy())
	require.Equal(t, "abc", user.LastInspection.ID)
}
