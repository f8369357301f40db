package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"port-vision/internal/domain/entity"
	"port-vision/internal/domain/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresReportRepository хранит историю проверок в Postgres
type PostgresReportRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReportRepository подключается к базе и применяет миграции
func NewPostgresReportRepository(ctx context.Context, url string) (*PostgresReportRepository, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresReportRepository{pool: pool}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close закрывает пул соединений
func (r *PostgresReportRepository) Close() {
	r.pool.Close()
}

// Save записывает отчёт
func (r *PostgresReportRepository) Save(ctx context.Context, inspection *entity.Inspection) error {
	ports, models, err := encodeReport(inspection)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO inspections (id, image, ports, models, connected, created_at)
		 VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6)`,
		inspection.ID, inspection.Image, string(ports), string(models), inspection.ConnectedCount(), inspection.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inspection: %w", err)
	}
	return nil
}

// Latest возвращает последний отчёт
func (r *PostgresReportRepository) Latest(ctx context.Context) (*entity.Inspection, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, image, ports, models, created_at FROM inspections ORDER BY created_at DESC LIMIT 1`)
	inspection, err := scanPgInspection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrNoReport
	}
	return inspection, err
}

// List возвращает до limit последних отчётов
func (r *PostgresReportRepository) List(ctx context.Context, limit int) ([]*entity.Inspection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, image, ports, models, created_at FROM inspections ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	defer rows.Close()

	var out []*entity.Inspection
	for rows.Next() {
		inspection, err := scanPgInspection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inspection)
	}
	return out, rows.Err()
}

func scanPgInspection(row pgx.Row) (*entity.Inspection, error) {
	var (
		inspection    entity.Inspection
		ports, models []byte
	)
	if err := row.Scan(&inspection.ID, &inspection.Image, &ports, &models, &inspection.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeReport(ports, models, &inspection); err != nil {
		return nil, err
	}
	inspection.CreatedAt = inspection.CreatedAt.UTC()
	return &inspection, nil
}

var _ port.ReportRepository = (*PostgresReportRepository)(nil)
