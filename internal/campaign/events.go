package campaign

import (
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/enrich"
)

// LogSink writes progress events to the global logger.
var LogSink enrich.EventSink = enrich.SinkFunc(func(e enrich.Event) {
	fields := []zap.Field{
		zap.String("event", string(e.Type)),
		zap.Int64("campaign_id", e.CampaignID),
	}
	if e.LeadID != 0 {
		fields = append(fields, zap.Int64("lead_id", e.LeadID))
	}
	if e.Count != 0 {
		fields = append(fields, zap.Int("count", e.Count))
	}
	if e.Status != "" {
		fields = append(fields, zap.String("status", e.Status))
	}
	msg := e.Message
	if msg == "" {
		msg = "campaign: " + string(e.Type)
	}
	if e.Type == enrich.EventError {
		zap.L().Warn(msg, fields...)
		return
	}
	zap.L().Info(msg, fields...)
})
