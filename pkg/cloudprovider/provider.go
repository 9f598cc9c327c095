package cloudprovider

import (
	"context"
	"errors"
)

type ChangeStatus string

const (
	StatusPending ChangeStatus = "PENDING"
	StatusInsync  ChangeStatus = "INSYNC"
)

// RecordSnapshot is the provider's current view of a record set.
type RecordSnapshot struct {
	Name   string
	Type   string
	TTL    int64
	Values []string
}

// ChangeRequest is a single upsert instruction: create the record set if it
// does not exist, replace its value if it does.
type ChangeRequest struct {
	Name  string
	Type  string
	TTL   int64
	Value string
}

// ChangeResult identifies a submitted change for status polling.
type ChangeResult struct {
	ChangeID string
	Status   ChangeStatus
}

// Provider errors are classified into these sentinels so callers can pick a
// retry or abort path with errors.Is.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrZoneNotFound   = errors.New("hosted zone not found")
	ErrAuth           = errors.New("provider authentication failed")
	ErrThrottled      = errors.New("provider throttled the request")
	ErrUnavailable    = errors.New("provider unavailable")
)

type Provider interface {
	GetRecord(ctx context.Context, zoneID, name, recordType string) (*RecordSnapshot, error)
	UpsertRecord(ctx context.Context, zoneID string, req ChangeRequest) (*ChangeResult, error)
	ChangeStatus(ctx context.Context, changeID string) (ChangeStatus, error)
}
