package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"port-vision/internal/domain/entity"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newInspection(n int, connected ...entity.PortNumber) *entity.Inspection {
	table := entity.NewPortTable()
	for _, p := range connected {
		table.MarkConnected(p)
	}
	return &entity.Inspection{
		ID:    fmt.Sprintf("00000000-0000-0000-0000-%012d", n),
		Image: fmt.Sprintf("device_%d.jpg", n),
		Ports: table.Report(),
		Models: []entity.ModelVerdict{
			{Model: "m1", Detections: len(connected), Ports: table.Report()},
		},
		CreatedAt: baseTime.Add(time.Duration(n) * time.Minute),
	}
}

func requireSameInspection(t *testing.T, want, got *entity.Inspection) {
	t.Helper()
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Image, got.Image)
	require.Equal(t, want.Ports, got.Ports)
	require.Equal(t, want.Models, got.Models)
	require.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", want.CreatedAt, got.CreatedAt)
}
