package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"port-vision/internal/domain/entity"
)

func newSQLiteRepo(t *testing.T) *SQLiteReportRepository {
	t.Helper()
	repo, err := NewSQLiteReportRepository(filepath.Join(t.TempDir(), "db", "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteReportRepository_Empty(t *testing.T) {
	repo := newSQLiteRepo(t)
	_, err := repo.Latest(context.Background())
	require.ErrorIs(t, err, entity.ErrNoReport)
}

func TestSQLiteReportRepository_SaveLatestList(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Save(ctx, newInspection(i, entity.PortNumber(i))))
	}

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	requireSameInspection(t, newInspection(3, 3), latest)

	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	requireSameInspection(t, newInspection(3, 3), list[0])
	requireSameInspection(t, newInspection(2, 2), list[1])
}

func TestSQLiteReportRepository_WithoutModels(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	in := newInspection(1, 4)
	in.Models = nil
	require.NoError(t, repo.Save(ctx, in))

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.Nil(t, latest.Models)
	require.Equal(t, in.Ports, latest.Ports)
}

func TestSQLiteReportRepository_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")
	ctx := context.Background()

	repo, err := NewSQLiteReportRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, newInspection(1, 8)))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteReportRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	requireSameInspection(t, newInspection(1, 8), latest)
}
