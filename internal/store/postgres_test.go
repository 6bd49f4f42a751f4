package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateCampaign(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)INSERT INTO campaigns .* RETURNING id, created_at`).
		WithArgs("Plumbing in Austin", "Plumbing", "Austin", 2, "ACTIVE").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	c, err := s.CreateCampaign(context.Background(), model.CampaignRequest{BusinessType: "Plumbing", Location: "Austin", NumberOfLeads: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, now, c.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCampaign_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM campaigns c\s+LEFT JOIN leads l ON l.campaign_id = c.id WHERE c.id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCampaign(context.Background(), 9)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCampaigns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)FILTER \(WHERE l.status = 'SENT'\).*ORDER BY c.created_at DESC`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "business_type", "location", "number_of_leads", "status", "created_at", "total", "sent", "ready"}).
			AddRow(int64(2), "Plumbing in Austin", "Plumbing", "Austin", 3, "ACTIVE", now, 3, 1, 1).
			AddRow(int64(1), "Dentist in Denver", "Dentist", "Denver", 1, "ACTIVE", now, 0, 0, 0))

	campaigns, err := s.ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	assert.Equal(t, 3, campaigns[0].TotalLeads)
	assert.Equal(t, 1, campaigns[0].SentLeads)
	assert.Equal(t, 1, campaigns[0].ReadyLeads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	email := model.StringPtr("hello@acme.com")

	mock.ExpectQuery(`(?s)INSERT INTO leads .* RETURNING id, created_at`).
		WithArgs(int64(1), "Acme", "https://acme.com", email, "PENDING").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))

	l, err := s.CreateLead(context.Background(), 1, model.NewLead{CompanyName: "Acme", WebsiteURL: "https://acme.com", ContactEmail: email})
	require.NoError(t, err)
	assert.Equal(t, int64(11), l.ID)
	assert.Equal(t, model.LeadStatusPending, l.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads_DecodesArtifacts(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	brand := `{"websiteUrl":"https://acme.com","analysis":"plumbing","scrapedContent":"pipes"}`
	concept := `{"brandAnalysis":"plumbing","concepts":"PipePal","generatedAt":"2026-01-02T03:04:05Z"}`
	mockup := "mockups/Acme_mockup_1.png"

	cols := []string{"id", "campaign_id", "company_name", "website_url", "contact_email", "brand_analysis", "app_concept", "mockup_path", "email_content", "status", "created_at", "processed_at", "sent_at"}
	mock.ExpectQuery(`(?s)SELECT id, campaign_id, .* FROM leads WHERE campaign_id = \$1 ORDER BY id ASC`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(1), int64(1), "Acme", "https://acme.com", (*string)(nil), &brand, &concept, &mockup, (*string)(nil), "REVIEW_PENDING", now, &now, (*time.Time)(nil)).
			AddRow(int64(2), int64(1), "Beta", "https://beta.com", (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), "PENDING", now, (*time.Time)(nil), (*time.Time)(nil)))

	leads, err := s.ListLeads(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	require.NotNil(t, leads[0].BrandAnalysis)
	assert.Equal(t, "pipes", leads[0].BrandAnalysis.ScrapedContent)
	require.NotNil(t, leads[0].AppConcept)
	assert.Equal(t, "PipePal", leads[0].AppConcept.Concepts)
	assert.Equal(t, model.LeadStatusReviewPending, leads[0].Status)
	assert.Nil(t, leads[1].BrandAnalysis)
	assert.Nil(t, leads[1].ProcessedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads_UnknownStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	cols := []string{"id", "campaign_id", "company_name", "website_url", "contact_email", "brand_analysis", "app_concept", "mockup_path", "email_content", "status", "created_at", "processed_at", "sent_at"}
	mock.ExpectQuery(`(?s)SELECT id, campaign_id, .* FROM leads WHERE campaign_id = \$1 ORDER BY id ASC`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(1), int64(1), "Acme", "https://acme.com", (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), "DONE", now, (*time.Time)(nil), (*time.Time)(nil)))

	_, err := s.ListLeads(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown lead status")
}

func TestPostgresStore_CompleteLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`(?s)UPDATE leads SET brand_analysis = \$1.*WHERE id = \$7 AND status = \$8`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "mockups/Acme_mockup_1.png", pgxmock.AnyArg(), "REVIEW_PENDING", pgxmock.AnyArg(), int64(3), "PENDING").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteLead(context.Background(), 3, model.LeadArtifacts{MockupPath: "mockups/Acme_mockup_1.png"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailLead_InvalidTransition(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE leads SET status = \$1, processed_at = \$2 WHERE id = \$3 AND status = \$4`).
		WithArgs("ERROR", pgxmock.AnyArg(), int64(3), "PENDING").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM leads WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))

	err := s.FailLead(context.Background(), 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkLeadSent_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE leads SET status = \$1, sent_at = \$2`).
		WithArgs("SENT", pgxmock.AnyArg(), int64(5), "REVIEW_PENDING").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM leads WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnError(pgx.ErrNoRows)

	err := s.MarkLeadSent(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateLeadEmail_DBError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE leads SET email_content = \$1 WHERE id = \$2 AND status <> \$3`).
		WithArgs("hi", int64(5), "SENT").
		WillReturnError(errors.New("connection reset"))

	err := s.UpdateLeadEmail(context.Background(), 5, "hi")
	require.Error(t, err)
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "update lead email", pe.Op)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetSetting_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \("key"\) DO UPDATE`).
		WithArgs("ollamaModel", `"llama3"`, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetSetting(context.Background(), "ollamaModel", `"llama3"`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSetting_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM settings WHERE key = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSetting(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS campaigns`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
