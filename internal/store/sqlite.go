package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, persistErr("open", eris.Wrap(err, "sqlite: open"))
	}
	// A single writer keeps status updates serialized.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, persistErr("open", eris.Wrapf(err, "sqlite: exec %s", pragma))
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	business_type   TEXT NOT NULL,
	location        TEXT NOT NULL,
	number_of_leads INTEGER NOT NULL,
	status          TEXT NOT NULL DEFAULT 'ACTIVE',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_id    INTEGER NOT NULL REFERENCES campaigns(id),
	company_name   TEXT NOT NULL,
	website_url    TEXT NOT NULL,
	contact_email  TEXT,
	brand_analysis TEXT,
	app_concept    TEXT,
	mockup_path    TEXT,
	email_content  TEXT,
	status         TEXT NOT NULL DEFAULT 'PENDING',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	processed_at   DATETIME,
	sent_at        DATETIME
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	if err != nil {
		return persistErr("migrate", eris.Wrap(err, "sqlite: migrate"))
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return persistErr("ping", eris.Wrap(s.db.PingContext(ctx), "sqlite: ping"))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Campaigns ---

func (s *SQLiteStore) CreateCampaign(ctx context.Context, req model.CampaignRequest) (*model.Campaign, error) {
	now := time.Now().UTC()
	c := &model.Campaign{
		Name:          model.CampaignName(req.BusinessType, req.Location),
		BusinessType:  req.BusinessType,
		Location:      req.Location,
		NumberOfLeads: req.NumberOfLeads,
		Status:        model.CampaignStatusActive,
		CreatedAt:     now,
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (name, business_type, location, number_of_leads, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.BusinessType, c.Location, c.NumberOfLeads, string(c.Status), now,
	)
	if err != nil {
		return nil, persistErr("create campaign", eris.Wrap(err, "sqlite: insert campaign"))
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return nil, persistErr("create campaign", eris.Wrap(err, "sqlite: last insert id"))
	}
	return c, nil
}

const sqliteCampaignSelect = `
SELECT c.id, c.name, c.business_type, c.location, c.number_of_leads, c.status, c.created_at,
	COUNT(l.id),
	COALESCE(SUM(CASE WHEN l.status = 'SENT' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN l.status = 'REVIEW_PENDING' THEN 1 ELSE 0 END), 0)
FROM campaigns c
LEFT JOIN leads l ON l.campaign_id = c.id`

func (s *SQLiteStore) GetCampaign(ctx context.Context, id int64) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx, sqliteCampaignSelect+` WHERE c.id = ? GROUP BY c.id`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistErr("get campaign", ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("get campaign", eris.Wrapf(err, "sqlite: get campaign %d", id))
	}
	return c, nil
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, sqliteCampaignSelect+` GROUP BY c.id ORDER BY c.created_at DESC, c.id DESC`)
	if err != nil {
		return nil, persistErr("list campaigns", eris.Wrap(err, "sqlite: list campaigns"))
	}
	defer rows.Close() //nolint:errcheck

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, persistErr("list campaigns", eris.Wrap(err, "sqlite: scan campaign"))
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list campaigns", eris.Wrap(err, "sqlite: list campaigns iterate"))
	}
	return campaigns, nil
}

// --- Leads ---

func (s *SQLiteStore) CreateLead(ctx context.Context, campaignID int64, lead model.NewLead) (*model.Lead, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (campaign_id, company_name, website_url, contact_email, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		campaignID, lead.CompanyName, lead.WebsiteURL, lead.ContactEmail, string(model.LeadStatusPending), now,
	)
	if err != nil {
		return nil, persistErr("create lead", eris.Wrapf(err, "sqlite: insert lead for campaign %d", campaignID))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistErr("create lead", eris.Wrap(err, "sqlite: last insert id"))
	}
	return &model.Lead{
		ID:           id,
		CampaignID:   campaignID,
		CompanyName:  lead.CompanyName,
		WebsiteURL:   lead.WebsiteURL,
		ContactEmail: lead.ContactEmail,
		Status:       model.LeadStatusPending,
		CreatedAt:    now,
	}, nil
}

const sqliteLeadColumns = `id, campaign_id, company_name, website_url, contact_email, brand_analysis, app_concept, mockup_path, email_content, status, created_at, processed_at, sent_at`

func (s *SQLiteStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteLeadColumns+` FROM leads WHERE id = ?`, id)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistErr("get lead", ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("get lead", eris.Wrapf(err, "sqlite: get lead %d", id))
	}
	return l, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, campaignID int64) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLeadColumns+` FROM leads WHERE campaign_id = ? ORDER BY id ASC`,
		campaignID,
	)
	if err != nil {
		return nil, persistErr("list leads", eris.Wrapf(err, "sqlite: list leads for campaign %d", campaignID))
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, persistErr("list leads", eris.Wrap(err, "sqlite: scan lead"))
		}
		leads = append(leads, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list leads", eris.Wrap(err, "sqlite: list leads iterate"))
	}
	return leads, nil
}

func (s *SQLiteStore) CompleteLead(ctx context.Context, id int64, a model.LeadArtifacts) error {
	brand, concept, err := encodeArtifacts(a)
	if err != nil {
		return persistErr("complete lead", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET brand_analysis = ?, app_concept = ?, mockup_path = ?, email_content = ?, status = ?, processed_at = ?
		 WHERE id = ? AND status = ?`,
		brand, concept, a.MockupPath, a.EmailContent, string(model.LeadStatusReviewPending), time.Now().UTC(),
		id, string(model.LeadStatusPending),
	)
	if err != nil {
		return persistErr("complete lead", eris.Wrapf(err, "sqlite: complete lead %d", id))
	}
	return s.checkTransition(ctx, res, "complete lead", id)
}

func (s *SQLiteStore) FailLead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, processed_at = ? WHERE id = ? AND status = ?`,
		string(model.LeadStatusError), time.Now().UTC(), id, string(model.LeadStatusPending),
	)
	if err != nil {
		return persistErr("fail lead", eris.Wrapf(err, "sqlite: fail lead %d", id))
	}
	return s.checkTransition(ctx, res, "fail lead", id)
}

func (s *SQLiteStore) MarkLeadSent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, sent_at = ? WHERE id = ? AND status = ?`,
		string(model.LeadStatusSent), time.Now().UTC(), id, string(model.LeadStatusReviewPending),
	)
	if err != nil {
		return persistErr("mark lead sent", eris.Wrapf(err, "sqlite: mark lead sent %d", id))
	}
	return s.checkTransition(ctx, res, "mark lead sent", id)
}

func (s *SQLiteStore) UpdateLeadEmail(ctx context.Context, id int64, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET email_content = ? WHERE id = ? AND status <> ?`,
		content, id, string(model.LeadStatusSent),
	)
	if err != nil {
		return persistErr("update lead email", eris.Wrapf(err, "sqlite: update lead email %d", id))
	}
	return s.checkTransition(ctx, res, "update lead email", id)
}

// checkTransition distinguishes a missing lead from one whose current status
// did not satisfy the update predicate.
func (s *SQLiteStore) checkTransition(ctx context.Context, res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(op, eris.Wrap(err, "sqlite: rows affected"))
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM leads WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return persistErr(op, ErrNotFound)
	}
	if err != nil {
		return persistErr(op, eris.Wrapf(err, "sqlite: lookup lead %d", id))
	}
	return persistErr(op, ErrInvalidTransition)
}

// --- Settings ---

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", persistErr("get setting", ErrNotFound)
	}
	if err != nil {
		return "", persistErr("get setting", eris.Wrapf(err, "sqlite: get setting %s", key))
	}
	return value, nil
}

func (s *SQLiteStore) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, persistErr("list settings", eris.Wrap(err, "sqlite: list settings"))
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, persistErr("list settings", eris.Wrap(err, "sqlite: scan setting"))
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list settings", eris.Wrap(err, "sqlite: list settings iterate"))
	}
	return out, nil
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return persistErr("set setting", eris.Wrapf(err, "sqlite: set setting %s", key))
	}
	return nil
}

func (s *SQLiteStore) DeleteSettings(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return persistErr("delete settings", eris.Wrap(err, "sqlite: delete settings"))
	}
	return nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanCampaign(row scannable) (*model.Campaign, error) {
	var c model.Campaign
	var status string
	err := row.Scan(&c.ID, &c.Name, &c.BusinessType, &c.Location, &c.NumberOfLeads, &status, &c.CreatedAt,
		&c.TotalLeads, &c.SentLeads, &c.ReadyLeads)
	if err != nil {
		return nil, err
	}
	c.Status = model.CampaignStatus(status)
	return &c, nil
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var status string
	var contact, brand, concept, mockup, email sql.NullString
	var processed, sent sql.NullTime

	err := row.Scan(&l.ID, &l.CampaignID, &l.CompanyName, &l.WebsiteURL, &contact, &brand, &concept,
		&mockup, &email, &status, &l.CreatedAt, &processed, &sent)
	if err != nil {
		return nil, err
	}

	if l.Status, err = model.ParseLeadStatus(status); err != nil {
		return nil, err
	}
	l.ContactEmail = nullString(contact)
	l.MockupPath = nullString(mockup)
	l.EmailContent = nullString(email)
	if processed.Valid {
		t := processed.Time
		l.ProcessedAt = &t
	}
	if sent.Valid {
		t := sent.Time
		l.SentAt = &t
	}
	if err := decodeArtifacts(&l, nullString(brand), nullString(concept)); err != nil {
		return nil, err
	}
	return &l, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
