package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Orchestrator drives persisted leads through the Machine one at a time and
// writes each lead's terminal state back to the store.
type Orchestrator struct {
	store           store.Store
	machine         *Machine
	sink            EventSink
	continueOnError bool
	metrics         *metrics.Metrics
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithEventSink sets where progress events are published.
func WithEventSink(s EventSink) OrchestratorOption {
	return func(o *Orchestrator) { o.sink = s }
}

// WithContinueOnError keeps processing the remaining leads after a lead
// fails. By default the first failure ends the batch.
func WithContinueOnError(v bool) OrchestratorOption {
	return func(o *Orchestrator) { o.continueOnError = v }
}

// WithMetrics records per-lead outcomes.
func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(st store.Store, machine *Machine, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{store: st, machine: machine, sink: Discard}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Summary counts the outcome of a campaign batch.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// ProcessCampaign processes the campaign's pending leads in store order.
// Leads that are not PENDING are skipped. With the default policy the first
// failing lead aborts the batch and its error is returned; the leads after it
// stay PENDING.
func (o *Orchestrator) ProcessCampaign(ctx context.Context, campaignID int64) (Summary, error) {
	leads, err := o.store.ListLeads(ctx, campaignID)
	if err != nil {
		return Summary{}, err
	}

	var pending []model.Lead
	var sum Summary
	for _, l := range leads {
		if l.Status == model.LeadStatusPending {
			pending = append(pending, l)
		} else {
			sum.Skipped++
		}
	}
	sum.Total = len(pending)

	log := zap.L().With(zap.Int64("campaign_id", campaignID))
	for i := range pending {
		lead := pending[i]
		o.publish(Event{
			Type:       EventUpdate,
			CampaignID: campaignID,
			LeadID:     lead.ID,
			Message:    fmt.Sprintf("Processing lead %d/%d: %s", i+1, len(pending), lead.CompanyName),
		})

		err := o.ProcessLead(ctx, &lead)
		if err != nil {
			sum.Failed++
			log.Warn("enrich: lead failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
			if !o.continueOnError {
				return sum, err
			}
			continue
		}
		sum.Succeeded++
	}

	if sum.Failed > 0 {
		log.Info("enrich: campaign finished with failures",
			zap.Int("succeeded", sum.Succeeded),
			zap.Int("failed", sum.Failed),
		)
	}
	return sum, nil
}

// ProcessLead runs every stage for one PENDING lead and persists the result:
// REVIEW_PENDING with all artifacts on success, ERROR otherwise. A
// lead_processed event follows either outcome.
func (o *Orchestrator) ProcessLead(ctx context.Context, lead *model.Lead) error {
	if !model.CanTransition(lead.Status, model.LeadStatusReviewPending) {
		return eris.Wrapf(store.ErrInvalidTransition, "enrich: lead %d is %s", lead.ID, lead.Status)
	}

	log := zap.L().With(zap.Int64("lead_id", lead.ID), zap.Int64("campaign_id", lead.CampaignID))
	start := time.Now()

	final, genErr := o.machine.Run(ctx, NewSnapshot(*lead))
	if genErr == nil {
		if err := o.store.CompleteLead(ctx, lead.ID, final.Artifacts()); err != nil {
			genErr = err
		} else {
			o.finish(lead, model.LeadStatusReviewPending, "")
			log.Info("enrich: lead ready for review", zap.Duration("elapsed", time.Since(start)))
			return nil
		}
	}

	err := genErr
	if ferr := o.store.FailLead(context.WithoutCancel(ctx), lead.ID); ferr != nil {
		log.Error("enrich: mark lead failed", zap.Error(ferr))
		err = errors.Join(genErr, ferr)
	}
	o.finish(lead, model.LeadStatusError, genErr.Error())
	return err
}

func (o *Orchestrator) finish(lead *model.Lead, status model.LeadStatus, msg string) {
	lead.Status = status
	o.metrics.LeadProcessed(string(status))
	o.publish(Event{
		Type:       EventLeadProcessed,
		CampaignID: lead.CampaignID,
		LeadID:     lead.ID,
		Status:     string(status),
		Message:    msg,
	})
}

func (o *Orchestrator) publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	o.sink.Publish(e)
}
