// Package store persists the deployment registry. It is owned by the
// shell and API layers; the core never reads or writes it.
package store

import (
	"context"
	"time"
)

// =============================================================================
// Deployment Record
// =============================================================================

// RecordStatus is the registry's view of one deployment. A record starts
// as deploying and settles into exactly one of the other states.
type RecordStatus string

const (
	StatusDeploying RecordStatus = "deploying"
	StatusRunning   RecordStatus = "running"
	StatusStopped   RecordStatus = "stopped"
	StatusFailed    RecordStatus = "failed"
)

// IsValid checks if the status is one of the known values.
func (s RecordStatus) IsValid() bool {
	switch s {
	case StatusDeploying, StatusRunning, StatusStopped, StatusFailed:
		return true
	default:
		return false
	}
}

// DeploymentRecord is one registry row: where a service was put and how
// that ended. The record never stores credential material.
type DeploymentRecord struct {
	ID          string       `db:"id" json:"id"`
	Service     string       `db:"service" json:"service"`
	Host        string       `db:"host" json:"host"`
	Port        int          `db:"port" json:"port"`
	URL         string       `db:"url" json:"url,omitempty"`
	ContainerID string       `db:"container_id" json:"container_id,omitempty"`
	Accelerator string       `db:"accelerator" json:"accelerator,omitempty"`
	ImageRef    string       `db:"image_ref" json:"image_ref,omitempty"`
	Status      RecordStatus `db:"status" json:"status"`
	Error       string       `db:"error_message" json:"error,omitempty"`
	CreatedAt   time.Time    `db:"-" json:"created_at"`
	UpdatedAt   time.Time    `db:"-" json:"updated_at"`
}

// Validate checks the record shape before persistence.
func (r *DeploymentRecord) Validate() error {
	if r.ID == "" {
		return ErrIDRequired
	}
	if r.Service == "" {
		return ErrServiceRequired
	}
	if r.Host == "" {
		return ErrHostRequired
	}
	if !r.Status.IsValid() {
		return ErrStatusInvalid
	}
	return nil
}

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence surface for deployment records.
type Store interface {
	CreateDeployment(ctx context.Context, rec *DeploymentRecord) error
	GetDeployment(ctx context.Context, id string) (*DeploymentRecord, error)
	UpdateDeployment(ctx context.Context, rec *DeploymentRecord) error
	UpdateStatus(ctx context.Context, id string, status RecordStatus, errMsg string) error
	DeleteDeployment(ctx context.Context, id string) error
	ListDeployments(ctx context.Context, opts ListOptions) ([]DeploymentRecord, error)
	ListByStatus(ctx context.Context, status RecordStatus, opts ListOptions) ([]DeploymentRecord, error)

	// MarkStaleDeploying fails every record still marked deploying. Run at
	// startup: a record in that state after a restart has no live
	// orchestrator behind it.
	MarkStaleDeploying(ctx context.Context, reason string) (int, error)

	// WithTx runs fn inside a transaction; fn's error rolls back.
	WithTx(ctx context.Context, fn func(Store) error) error

	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination for list operations.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
