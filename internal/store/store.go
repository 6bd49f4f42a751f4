package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/prospect-cli/internal/model"
)

var (
	// ErrNotFound is returned when a campaign, lead or setting does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a lead status change is not allowed
	// from the lead's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// PersistenceError wraps every failure raised by a Store. It is surfaced to
// callers as-is and never retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Store defines the persistence interface for campaigns, leads and settings.
type Store interface {
	// Campaigns
	CreateCampaign(ctx context.Context, req model.CampaignRequest) (*model.Campaign, error)
	GetCampaign(ctx context.Context, id int64) (*model.Campaign, error)
	// ListCampaigns returns campaigns newest first with derived lead counts.
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)

	// Leads
	CreateLead(ctx context.Context, campaignID int64, lead model.NewLead) (*model.Lead, error)
	GetLead(ctx context.Context, id int64) (*model.Lead, error)
	// ListLeads returns a campaign's leads in processing order (oldest first).
	ListLeads(ctx context.Context, campaignID int64) ([]model.Lead, error)
	CompleteLead(ctx context.Context, id int64, artifacts model.LeadArtifacts) error
	FailLead(ctx context.Context, id int64) error
	MarkLeadSent(ctx context.Context, id int64) error
	UpdateLeadEmail(ctx context.Context, id int64, content string) error

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	ListSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSettings(ctx context.Context) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
