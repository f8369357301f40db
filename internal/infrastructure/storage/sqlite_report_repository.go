package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"port-vision/internal/domain/entity"
	"port-vision/internal/domain/port"
)

// SQLiteReportRepository хранит всю историю проверок в SQLite
type SQLiteReportRepository struct {
	db *sql.DB
}

// NewSQLiteReportRepository открывает (или создаёт) базу по указанному пути
func NewSQLiteReportRepository(dbPath string) (*SQLiteReportRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite лучше работает с одним писателем.
	db.SetMaxOpenConns(1)

	r := &SQLiteReportRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Close освобождает соединение с базой
func (r *SQLiteReportRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteReportRepository) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS inspections (
			id TEXT PRIMARY KEY,
			image TEXT NOT NULL,
			ports TEXT NOT NULL,
			models TEXT NOT NULL DEFAULT '[]',
			connected INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_inspections_created_at ON inspections(created_at);`,
	}
	for _, stmt := range schema {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Save записывает отчёт
func (r *SQLiteReportRepository) Save(ctx context.Context, inspection *entity.Inspection) error {
	ports, models, err := encodeReport(inspection)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO inspections (id, image, ports, models, connected, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		inspection.ID, inspection.Image, string(ports), string(models), inspection.ConnectedCount(), inspection.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert inspection: %w", err)
	}
	return nil
}

// Latest возвращает последний отчёт
func (r *SQLiteReportRepository) Latest(ctx context.Context) (*entity.Inspection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, image, ports, models, created_at FROM inspections ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	inspection, err := scanInspection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNoReport
	}
	return inspection, err
}

// List возвращает до limit последних отчётов
func (r *SQLiteReportRepository) List(ctx context.Context, limit int) ([]*entity.Inspection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, image, ports, models, created_at FROM inspections ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	defer rows.Close()

	var out []*entity.Inspection
	for rows.Next() {
		inspection, err := scanInspection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inspection)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInspection(row rowScanner) (*entity.Inspection, error) {
	var (
		inspection    entity.Inspection
		ports, models string
		createdAt     int64
	)
	if err := row.Scan(&inspection.ID, &inspection.Image, &ports, &models, &createdAt); err != nil {
		return nil, err
	}
	if err := decodeReport([]byte(ports), []byte(models), &inspection); err != nil {
		return nil, err
	}
	inspection.CreatedAt = time.Unix(0, createdAt).UTC()
	return &inspection, nil
}

func encodeReport(inspection *entity.Inspection) (ports, models []byte, err error) {
	ports, err = json.Marshal(inspection.Ports)
	if err != nil {
		return nil, nil, fmt.Errorf("encode ports: %w", err)
	}
	if inspection.Models == nil {
		models = []byte("[]")
	} else if models, err = json.Marshal(inspection.Models); err != nil {
		return nil, nil, fmt.Errorf("encode models: %w", err)
	}
	return ports, models, nil
}

func decodeReport(ports, models []byte, inspection *entity.Inspection) error {
	if err := json.Unmarshal(ports, &inspection.Ports); err != nil {
		return fmt.Errorf("decode ports of %s: %w", inspection.ID, err)
	}
	if len(models) > 0 {
		if err := json.Unmarshal(models, &inspection.Models); err != nil {
			return fmt.Errorf("decode models of %s: %w", inspection.ID, err)
		}
	}
	if len(inspection.Models) == 0 {
		inspection.Models = nil
	}
	return nil
}

var _ port.ReportRepository = (*SQLiteReportRepository)(nil)
