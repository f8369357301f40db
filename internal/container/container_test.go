package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	app "port-vision/internal/application"
	"port-vision/internal/domain/entity"
	"port-vision/internal/infrastructure/storage"
)

func TestNew_WiresServices(t *testing.T) {
	c := New(storage.NewMemoryUserRepository(), nil, storage.NewMemoryReportRepository(5), nil, app.LabelParser{}, nil)
	require.NotNil(t, c.UserService)
	require.NotNil(t, c.InspectionService)

	_, err := c.InspectionService.Inspect(context.Background(), "a.jpg", []byte("x"))
	require.ErrorIs(t, err, entity.ErrNoDetectors)

	user, err := c.UserService.BeginCheck(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)
}
