package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens the registry database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	// SQLite allows one writer at a time, and a :memory: database exists
	// only on the connection that opened it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations applies the embedded SQL migrations.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Store Methods
// =============================================================================

func (s *SQLiteStore) CreateDeployment(ctx context.Context, rec *DeploymentRecord) error {
	return createDeployment(ctx, s.db, rec)
}

func (s *SQLiteStore) GetDeployment(ctx context.Context, id string) (*DeploymentRecord, error) {
	return getDeployment(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateDeployment(ctx context.Context, rec *DeploymentRecord) error {
	return updateDeployment(ctx, s.db, rec)
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status RecordStatus, errMsg string) error {
	return updateStatus(ctx, s.db, id, status, errMsg)
}

func (s *SQLiteStore) DeleteDeployment(ctx context.Context, id string) error {
	return deleteDeployment(ctx, s.db, id)
}

func (s *SQLiteStore) ListDeployments(ctx context.Context, opts ListOptions) ([]DeploymentRecord, error) {
	return listDeployments(ctx, s.db, opts)
}

func (s *SQLiteStore) ListByStatus(ctx context.Context, status RecordStatus, opts ListOptions) ([]DeploymentRecord, error) {
	return listByStatus(ctx, s.db, status, opts)
}

func (s *SQLiteStore) MarkStaleDeploying(ctx context.Context, reason string) (int, error) {
	return markStaleDeploying(ctx, s.db, reason)
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) CreateDeployment(ctx context.Context, rec *DeploymentRecord) error {
	return createDeployment(ctx, s.tx, rec)
}

func (s *txSQLiteStore) GetDeployment(ctx context.Context, id string) (*DeploymentRecord, error) {
	return getDeployment(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateDeployment(ctx context.Context, rec *DeploymentRecord) error {
	return updateDeployment(ctx, s.tx, rec)
}

func (s *txSQLiteStore) UpdateStatus(ctx context.Context, id string, status RecordStatus, errMsg string) error {
	return updateStatus(ctx, s.tx, id, status, errMsg)
}

func (s *txSQLiteStore) DeleteDeployment(ctx context.Context, id string) error {
	return deleteDeployment(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListDeployments(ctx context.Context, opts ListOptions) ([]DeploymentRecord, error) {
	return listDeployments(ctx, s.tx, opts)
}

func (s *txSQLiteStore) ListByStatus(ctx context.Context, status RecordStatus, opts ListOptions) ([]DeploymentRecord, error) {
	return listByStatus(ctx, s.tx, status, opts)
}

func (s *txSQLiteStore) MarkStaleDeploying(ctx context.Context, reason string) (int, error) {
	return markStaleDeploying(ctx, s.tx, reason)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Row Mapping
// =============================================================================

// recordRow is the database shape of a DeploymentRecord. Timestamps are
// stored as RFC3339 strings.
type recordRow struct {
	ID          string `db:"id"`
	Service     string `db:"service"`
	Host        string `db:"host"`
	Port        int    `db:"port"`
	URL         string `db:"url"`
	ContainerID string `db:"container_id"`
	Accelerator string `db:"accelerator"`
	ImageRef    string `db:"image_ref"`
	Status      string `db:"status"`
	Error       string `db:"error_message"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func rowToRecord(row *recordRow) *DeploymentRecord {
	createdAt, _ := time.Parse(time.RFC3339, row.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, row.UpdatedAt)

	return &DeploymentRecord{
		ID:          row.ID,
		Service:     row.Service,
		Host:        row.Host,
		Port:        row.Port,
		URL:         row.URL,
		ContainerID: row.ContainerID,
		Accelerator: row.Accelerator,
		ImageRef:    row.ImageRef,
		Status:      RecordStatus(row.Status),
		Error:       row.Error,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// =============================================================================
// Shared Implementation Functions
// =============================================================================

func createDeployment(ctx context.Context, exec executor, rec *DeploymentRecord) error {
	if err := rec.Validate(); err != nil {
		return NewStoreError("CreateDeployment", rec.ID, err.Error(), err)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO deployments (
			id, service, host, port, url, container_id, accelerator,
			image_ref, status, error_message, created_at, updated_at
		) VALUES (
			:id, :service, :host, :port, :url, :container_id, :accelerator,
			:image_ref, :status, :error_message, :created_at, :updated_at
		)`

	row := map[string]any{
		"id":            rec.ID,
		"service":       rec.Service,
		"host":          rec.Host,
		"port":          rec.Port,
		"url":           rec.URL,
		"container_id":  rec.ContainerID,
		"accelerator":   rec.Accelerator,
		"image_ref":     rec.ImageRef,
		"status":        string(rec.Status),
		"error_message": rec.Error,
		"created_at":    rec.CreatedAt.Format(time.RFC3339),
		"updated_at":    rec.UpdatedAt.Format(time.RFC3339),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: deployments.id") {
			return NewStoreError("CreateDeployment", rec.ID, "record with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateDeployment", rec.ID, err.Error(), err)
	}

	return nil
}

func getDeployment(ctx context.Context, exec executor, id string) (*DeploymentRecord, error) {
	query := `SELECT * FROM deployments WHERE id = ?`

	var row recordRow
	if err := exec.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetDeployment", id, "record not found", ErrNotFound)
		}
		return nil, NewStoreError("GetDeployment", id, err.Error(), err)
	}

	return rowToRecord(&row), nil
}

func updateDeployment(ctx context.Context, exec executor, rec *DeploymentRecord) error {
	if err := rec.Validate(); err != nil {
		return NewStoreError("UpdateDeployment", rec.ID, err.Error(), err)
	}

	rec.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE deployments SET
			service = :service,
			host = :host,
			port = :port,
			url = :url,
			container_id = :container_id,
			accelerator = :accelerator,
			image_ref = :image_ref,
			status = :status,
			error_message = :error_message,
			updated_at = :updated_at
		WHERE id = :id`

	row := map[string]any{
		"id":            rec.ID,
		"service":       rec.Service,
		"host":          rec.Host,
		"port":          rec.Port,
		"url":           rec.URL,
		"container_id":  rec.ContainerID,
		"accelerator":   rec.Accelerator,
		"image_ref":     rec.ImageRef,
		"status":        string(rec.Status),
		"error_message": rec.Error,
		"updated_at":    rec.UpdatedAt.Format(time.RFC3339),
	}

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("UpdateDeployment", rec.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateDeployment", rec.ID, "record not found", ErrNotFound)
	}

	return nil
}

func updateStatus(ctx context.Context, exec executor, id string, status RecordStatus, errMsg string) error {
	if !status.IsValid() {
		return NewStoreError("UpdateStatus", id, "record status is invalid", ErrStatusInvalid)
	}

	query := `UPDATE deployments SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, string(status), errMsg, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return NewStoreError("UpdateStatus", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateStatus", id, "record not found", ErrNotFound)
	}

	return nil
}

func deleteDeployment(ctx context.Context, exec executor, id string) error {
	query := `DELETE FROM deployments WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return NewStoreError("DeleteDeployment", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteDeployment", id, "record not found", ErrNotFound)
	}

	return nil
}

func listDeployments(ctx context.Context, exec executor, opts ListOptions) ([]DeploymentRecord, error) {
	opts = opts.Normalize()

	query := `SELECT * FROM deployments ORDER BY created_at DESC LIMIT ? OFFSET ?`

	var rows []recordRow
	if err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListDeployments", "", err.Error(), err)
	}

	records := make([]DeploymentRecord, 0, len(rows))
	for i := range rows {
		records = append(records, *rowToRecord(&rows[i]))
	}
	return records, nil
}

func listByStatus(ctx context.Context, exec executor, status RecordStatus, opts ListOptions) ([]DeploymentRecord, error) {
	opts = opts.Normalize()

	query := `SELECT * FROM deployments WHERE status = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

	var rows []recordRow
	if err := exec.SelectContext(ctx, &rows, query, string(status), opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListByStatus", "", err.Error(), err)
	}

	records := make([]DeploymentRecord, 0, len(rows))
	for i := range rows {
		records = append(records, *rowToRecord(&rows[i]))
	}
	return records, nil
}

func markStaleDeploying(ctx context.Context, exec executor, reason string) (int, error) {
	query := `UPDATE deployments SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`

	result, err := exec.ExecContext(ctx, query,
		string(StatusFailed), reason, time.Now().UTC().Format(time.RFC3339), string(StatusDeploying))
	if err != nil {
		return 0, NewStoreError("MarkStaleDeploying", "", err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}
