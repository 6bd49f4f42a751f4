package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/db"
	"github.com/sells-group/prospect-cli/internal/model"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, persistErr("open", eris.Wrap(err, "postgres: parse config"))
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, persistErr("open", eris.Wrap(err, "postgres: create pool"))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, persistErr("open", eris.Wrap(err, "postgres: ping"))
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id              BIGSERIAL PRIMARY KEY,
	name            TEXT NOT NULL,
	business_type   TEXT NOT NULL,
	location        TEXT NOT NULL,
	number_of_leads INTEGER NOT NULL,
	status          TEXT NOT NULL DEFAULT 'ACTIVE',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id             BIGSERIAL PRIMARY KEY,
	campaign_id    BIGINT NOT NULL REFERENCES campaigns(id),
	company_name   TEXT NOT NULL,
	website_url    TEXT NOT NULL,
	contact_email  TEXT,
	brand_analysis JSONB,
	app_concept    JSONB,
	mockup_path    TEXT,
	email_content  TEXT,
	status         TEXT NOT NULL DEFAULT 'PENDING',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	processed_at   TIMESTAMPTZ,
	sent_at        TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	if err != nil {
		return persistErr("ping", eris.Wrap(err, "postgres: ping"))
	}
	return nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	if err != nil {
		return persistErr("migrate", eris.Wrap(err, "postgres: migrate"))
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Campaigns ---

func (s *PostgresStore) CreateCampaign(ctx context.Context, req model.CampaignRequest) (*model.Campaign, error) {
	c := &model.Campaign{
		Name:          model.CampaignName(req.BusinessType, req.Location),
		BusinessType:  req.BusinessType,
		Location:      req.Location,
		NumberOfLeads: req.NumberOfLeads,
		Status:        model.CampaignStatusActive,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO campaigns (name, business_type, location, number_of_leads, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		c.Name, c.BusinessType, c.Location, c.NumberOfLeads, string(c.Status),
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, persistErr("create campaign", eris.Wrap(err, "postgres: insert campaign"))
	}
	return c, nil
}

const postgresCampaignSelect = `
SELECT c.id, c.name, c.business_type, c.location, c.number_of_leads, c.status, c.created_at,
	COUNT(l.id),
	COUNT(l.id) FILTER (WHERE l.status = 'SENT'),
	COUNT(l.id) FILTER (WHERE l.status = 'REVIEW_PENDING')
FROM campaigns c
LEFT JOIN leads l ON l.campaign_id = c.id`

func (s *PostgresStore) GetCampaign(ctx context.Context, id int64) (*model.Campaign, error) {
	row := s.pool.QueryRow(ctx, postgresCampaignSelect+` WHERE c.id = $1 GROUP BY c.id`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistErr("get campaign", ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("get campaign", eris.Wrapf(err, "postgres: get campaign %d", id))
	}
	return c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.pool.Query(ctx, postgresCampaignSelect+` GROUP BY c.id ORDER BY c.created_at DESC, c.id DESC`)
	if err != nil {
		return nil, persistErr("list campaigns", eris.Wrap(err, "postgres: list campaigns"))
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, persistErr("list campaigns", eris.Wrap(err, "postgres: scan campaign"))
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list campaigns", eris.Wrap(err, "postgres: list campaigns iterate"))
	}
	return campaigns, nil
}

// --- Leads ---

func (s *PostgresStore) CreateLead(ctx context.Context, campaignID int64, lead model.NewLead) (*model.Lead, error) {
	l := &model.Lead{
		CampaignID:   campaignID,
		CompanyName:  lead.CompanyName,
		WebsiteURL:   lead.WebsiteURL,
		ContactEmail: lead.ContactEmail,
		Status:       model.LeadStatusPending,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO leads (campaign_id, company_name, website_url, contact_email, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		campaignID, lead.CompanyName, lead.WebsiteURL, lead.ContactEmail, string(model.LeadStatusPending),
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return nil, persistErr("create lead", eris.Wrapf(err, "postgres: insert lead for campaign %d", campaignID))
	}
	return l, nil
}

const postgresLeadColumns = `id, campaign_id, company_name, website_url, contact_email, brand_analysis::text, app_concept::text, mockup_path, email_content, status, created_at, processed_at, sent_at`

func (s *PostgresStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postgresLeadColumns+` FROM leads WHERE id = $1`, id)
	l, err := scanPgLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistErr("get lead", ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("get lead", eris.Wrapf(err, "postgres: get lead %d", id))
	}
	return l, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, campaignID int64) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresLeadColumns+` FROM leads WHERE campaign_id = $1 ORDER BY id ASC`,
		campaignID,
	)
	if err != nil {
		return nil, persistErr("list leads", eris.Wrapf(err, "postgres: list leads for campaign %d", campaignID))
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, persistErr("list leads", eris.Wrap(err, "postgres: scan lead"))
		}
		leads = append(leads, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list leads", eris.Wrap(err, "postgres: list leads iterate"))
	}
	return leads, nil
}

func (s *PostgresStore) CompleteLead(ctx context.Context, id int64, a model.LeadArtifacts) error {
	brand, concept, err := encodeArtifacts(a)
	if err != nil {
		return persistErr("complete lead", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET brand_analysis = $1, app_concept = $2, mockup_path = $3, email_content = $4, status = $5, processed_at = $6
		 WHERE id = $7 AND status = $8`,
		brand, concept, a.MockupPath, a.EmailContent, string(model.LeadStatusReviewPending), time.Now().UTC(),
		id, string(model.LeadStatusPending),
	)
	if err != nil {
		return persistErr("complete lead", eris.Wrapf(err, "postgres: complete lead %d", id))
	}
	return s.checkTransition(ctx, tag, "complete lead", id)
}

func (s *PostgresStore) FailLead(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = $1, processed_at = $2 WHERE id = $3 AND status = $4`,
		string(model.LeadStatusError), time.Now().UTC(), id, string(model.LeadStatusPending),
	)
	if err != nil {
		return persistErr("fail lead", eris.Wrapf(err, "postgres: fail lead %d", id))
	}
	return s.checkTransition(ctx, tag, "fail lead", id)
}

func (s *PostgresStore) MarkLeadSent(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = $1, sent_at = $2 WHERE id = $3 AND status = $4`,
		string(model.LeadStatusSent), time.Now().UTC(), id, string(model.LeadStatusReviewPending),
	)
	if err != nil {
		return persistErr("mark lead sent", eris.Wrapf(err, "postgres: mark lead sent %d", id))
	}
	return s.checkTransition(ctx, tag, "mark lead sent", id)
}

func (s *PostgresStore) UpdateLeadEmail(ctx context.Context, id int64, content string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET email_content = $1 WHERE id = $2 AND status <> $3`,
		content, id, string(model.LeadStatusSent),
	)
	if err != nil {
		return persistErr("update lead email", eris.Wrapf(err, "postgres: update lead email %d", id))
	}
	return s.checkTransition(ctx, tag, "update lead email", id)
}

func (s *PostgresStore) checkTransition(ctx context.Context, tag pgconn.CommandTag, op string, id int64) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM leads WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return persistErr(op, ErrNotFound)
	}
	if err != nil {
		return persistErr(op, eris.Wrapf(err, "postgres: lookup lead %d", id))
	}
	return persistErr(op, ErrInvalidTransition)
}

// --- Settings ---

func (s *PostgresStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", persistErr("get setting", ErrNotFound)
	}
	if err != nil {
		return "", persistErr("get setting", eris.Wrapf(err, "postgres: get setting %s", key))
	}
	return value, nil
}

func (s *PostgresStore) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, persistErr("list settings", eris.Wrap(err, "postgres: list settings"))
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, persistErr("list settings", eris.Wrap(err, "postgres: scan setting"))
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list settings", eris.Wrap(err, "postgres: list settings iterate"))
	}
	return out, nil
}

var settingsUpsert = func() string {
	stmt, err := db.UpsertSQL(db.UpsertConfig{
		Table:        "settings",
		Columns:      []string{"key", "value", "updated_at"},
		ConflictKeys: []string{"key"},
	})
	if err != nil {
		panic(err)
	}
	return stmt
}()

func (s *PostgresStore) SetSetting(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, settingsUpsert, key, value, time.Now().UTC()); err != nil {
		return persistErr("set setting", eris.Wrapf(err, "postgres: set setting %s", key))
	}
	return nil
}

func (s *PostgresStore) DeleteSettings(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM settings`); err != nil {
		return persistErr("delete settings", eris.Wrap(err, "postgres: delete settings"))
	}
	return nil
}

func scanPgLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var status string
	var brand, concept *string

	err := row.Scan(&l.ID, &l.CampaignID, &l.CompanyName, &l.WebsiteURL, &l.ContactEmail, &brand, &concept,
		&l.MockupPath, &l.EmailContent, &status, &l.CreatedAt, &l.ProcessedAt, &l.SentAt)
	if err != nil {
		return nil, err
	}
	if l.Status, err = model.ParseLeadStatus(status); err != nil {
		return nil, err
	}
	if err := decodeArtifacts(&l, brand, concept); err != nil {
		return nil, err
	}
	return &l, nil
}
