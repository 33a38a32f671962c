package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/scenescout/extract-cli/internal/db"
	"github.com/scenescout/extract-cli/internal/model"
)

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

// preparedStatements lists queries to prepare on each new connection. The
// matcher hits these on every extraction call.
var preparedStatements = map[string]string{
	"active_patterns": `SELECT id, field_type, regex_source, description, confidence, success_count, failure_count, priority, is_active, source, last_used_at, created_at
		FROM extraction_patterns
		WHERE field_type = $1 AND is_active AND confidence >= $2
		ORDER BY priority DESC, confidence DESC
		LIMIT $3`,
	"pattern_hit":  `UPDATE extraction_patterns SET success_count = success_count + 1, last_used_at = now() WHERE id = $1`,
	"pattern_miss": `UPDATE extraction_patterns SET failure_count = failure_count + 1 WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
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

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., the venue registry importer).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS extraction_patterns (
	id            TEXT PRIMARY KEY,
	field_type    TEXT NOT NULL,
	regex_source  TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	priority      INTEGER NOT NULL DEFAULT 0,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	source        TEXT NOT NULL DEFAULT 'manual',
	last_used_at  TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_patterns_match_order
	ON extraction_patterns(field_type, is_active, priority DESC, confidence DESC);

CREATE TABLE IF NOT EXISTS corrections (
	id              TEXT PRIMARY KEY,
	post_ref        TEXT NOT NULL DEFAULT '',
	field_name      TEXT NOT NULL,
	original_value  TEXT NOT NULL DEFAULT '',
	corrected_value TEXT NOT NULL,
	raw_source_text TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_corrections_field ON corrections(field_name);

CREATE TABLE IF NOT EXISTS ground_truth (
	id                TEXT PRIMARY KEY,
	post_ref          TEXT NOT NULL DEFAULT '',
	field_name        TEXT NOT NULL,
	raw_text          TEXT NOT NULL DEFAULT '',
	correct_value     TEXT NOT NULL,
	source_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ground_truth_field ON ground_truth(field_name);

CREATE TABLE IF NOT EXISTS pattern_suggestions (
	id              TEXT PRIMARY KEY,
	field_type      TEXT NOT NULL,
	suggested_regex TEXT NOT NULL,
	sample_text     TEXT NOT NULL DEFAULT '',
	expected_value  TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'pending',
	attempt_count   INTEGER NOT NULL DEFAULT 1,
	reviewed_at     TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_suggestions_pending
	ON pattern_suggestions(field_type, suggested_regex) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_suggestions_status ON pattern_suggestions(status);

CREATE TABLE IF NOT EXISTS known_venues (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	aliases JSONB NOT NULL DEFAULT '[]',
	address TEXT NOT NULL DEFAULT '',
	city    TEXT NOT NULL DEFAULT '',
	lat     DOUBLE PRECISION,
	lng     DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS location_corrections (
	id                       TEXT PRIMARY KEY,
	original_name            TEXT NOT NULL DEFAULT '',
	original_address         TEXT NOT NULL DEFAULT '',
	corrected_venue_name     TEXT NOT NULL,
	corrected_street_address TEXT NOT NULL DEFAULT '',
	lat                      DOUBLE PRECISION,
	lng                      DOUBLE PRECISION,
	correction_count         INTEGER NOT NULL DEFAULT 1,
	confidence_score         DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	UNIQUE (original_name, original_address, corrected_venue_name)
);

CREATE INDEX IF NOT EXISTS idx_location_corrections_venue
	ON location_corrections(corrected_venue_name);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const patternColumns = `id, field_type, regex_source, description, confidence, success_count, failure_count, priority, is_active, source, last_used_at, created_at`

func scanPattern(row pgx.Row) (*model.ExtractionPattern, error) {
	var p model.ExtractionPattern
	err := row.Scan(&p.ID, &p.FieldType, &p.RegexSource, &p.Description,
		&p.Confidence, &p.SuccessCount, &p.FailureCount, &p.Priority,
		&p.IsActive, &p.Source, &p.LastUsedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreatePattern(ctx context.Context, p model.ExtractionPattern) (*model.ExtractionPattern, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO extraction_patterns
		 (id, field_type, regex_source, description, confidence, priority, is_active, source, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, string(p.FieldType), p.RegexSource, p.Description,
		p.Confidence, p.Priority, p.IsActive, string(p.Source), p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert pattern")
	}
	return &p, nil
}

func (s *PostgresStore) GetPattern(ctx context.Context, id string) (*model.ExtractionPattern, error) {
	p, err := scanPattern(s.pool.QueryRow(ctx,
		`SELECT `+patternColumns+` FROM extraction_patterns WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get pattern %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListPatterns(ctx context.Context, filter PatternFilter) ([]model.ExtractionPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM extraction_patterns WHERE true`
	args := []any{}
	argIdx := 1

	if filter.FieldType != "" {
		query += fmt.Sprintf(` AND field_type = $%d`, argIdx)
		args = append(args, string(filter.FieldType))
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, string(filter.Source))
		argIdx++
	}
	if filter.OnlyActive {
		query += ` AND is_active`
	}
	query += ` ORDER BY priority DESC, confidence DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list patterns")
	}
	defer rows.Close()

	var patterns []model.ExtractionPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan pattern")
		}
		patterns = append(patterns, *p)
	}
	return patterns, eris.Wrap(rows.Err(), "postgres: list patterns iterate")
}

func (s *PostgresStore) ActivePatterns(ctx context.Context, ft model.FieldType, minConfidence float64, limit int) ([]model.ExtractionPattern, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+patternColumns+` FROM extraction_patterns
		 WHERE field_type = $1 AND is_active AND confidence >= $2
		 ORDER BY priority DESC, confidence DESC
		 LIMIT $3`,
		string(ft), minConfidence, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: active patterns")
	}
	defer rows.Close()

	var patterns []model.ExtractionPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan pattern")
		}
		patterns = append(patterns, *p)
	}
	return patterns, eris.Wrap(rows.Err(), "postgres: active patterns iterate")
}

func (s *PostgresStore) RecordPatternHit(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extraction_patterns SET success_count = success_count + 1, last_used_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record hit %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("pattern not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) RecordPatternMiss(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extraction_patterns SET failure_count = failure_count + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record miss %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("pattern not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetPatternActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extraction_patterns SET is_active = $1 WHERE id = $2`,
		active, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set pattern active %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("pattern not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) DeactivateFailingPatterns(ctx context.Context, minAttempts, failureFactor int) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extraction_patterns
		 SET is_active = FALSE
		 WHERE is_active
		   AND success_count + failure_count > $1
		   AND failure_count > success_count * $2`,
		minAttempts, failureFactor,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: deactivate failing patterns")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CreateCorrection(ctx context.Context, c model.Correction) (*model.Correction, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO corrections (id, post_ref, field_name, original_value, corrected_value, raw_source_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.PostRef, c.FieldName, c.OriginalValue, c.CorrectedValue, c.RawSourceText, c.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert correction")
	}
	return &c, nil
}

func (s *PostgresStore) ListCorrections(ctx context.Context, fieldName string, limit int) ([]model.Correction, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, post_ref, field_name, original_value, corrected_value, raw_source_text, created_at
		 FROM corrections WHERE field_name = $1
		 ORDER BY created_at DESC LIMIT $2`,
		fieldName, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list corrections")
	}
	defer rows.Close()

	var out []model.Correction
	for rows.Next() {
		var c model.Correction
		if err := rows.Scan(&c.ID, &c.PostRef, &c.FieldName, &c.OriginalValue,
			&c.CorrectedValue, &c.RawSourceText, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan correction")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list corrections iterate")
}

func (s *PostgresStore) FieldsWithCorrections(ctx context.Context, min int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT field_name FROM corrections GROUP BY field_name HAVING COUNT(*) >= $1`,
		min,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fields with corrections")
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, eris.Wrap(err, "postgres: scan field name")
		}
		fields = append(fields, f)
	}
	return fields, eris.Wrap(rows.Err(), "postgres: fields with corrections iterate")
}

func (s *PostgresStore) CreateGroundTruth(ctx context.Context, g model.GroundTruthEntry) (*model.GroundTruthEntry, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.ID = uuid.New().String()
	g.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ground_truth (id, post_ref, field_name, raw_text, correct_value, source_confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.PostRef, g.FieldName, g.RawText, g.CorrectValue, g.SourceConfidence, g.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert ground truth")
	}
	return &g, nil
}

func (s *PostgresStore) ListGroundTruth(ctx context.Context, fieldName string, limit int) ([]model.GroundTruthEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, post_ref, field_name, raw_text, correct_value, source_confidence, created_at
		 FROM ground_truth WHERE field_name = $1
		 ORDER BY created_at DESC LIMIT $2`,
		fieldName, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ground truth")
	}
	defer rows.Close()

	var out []model.GroundTruthEntry
	for rows.Next() {
		var g model.GroundTruthEntry
		if err := rows.Scan(&g.ID, &g.PostRef, &g.FieldName, &g.RawText,
			&g.CorrectValue, &g.SourceConfidence, &g.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ground truth")
		}
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list ground truth iterate")
}

const suggestionColumns = `id, field_type, suggested_regex, sample_text, expected_value, status, attempt_count, reviewed_at, created_at`

func scanSuggestion(row pgx.Row) (*model.PatternSuggestion, error) {
	var sg model.PatternSuggestion
	err := row.Scan(&sg.ID, &sg.FieldType, &sg.SuggestedRegex, &sg.SampleText,
		&sg.ExpectedValue, &sg.Status, &sg.AttemptCount, &sg.ReviewedAt, &sg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sg, nil
}

func (s *PostgresStore) UpsertSuggestion(ctx context.Context, sg model.PatternSuggestion) (*model.PatternSuggestion, error) {
	if err := sg.Validate(); err != nil {
		return nil, err
	}
	sg.ID = uuid.New().String()
	sg.Status = model.SuggestionPending
	sg.AttemptCount = 1
	sg.CreatedAt = time.Now().UTC()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO pattern_suggestions
		 (id, field_type, suggested_regex, sample_text, expected_value, status, attempt_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (field_type, suggested_regex) WHERE status = 'pending'
		 DO UPDATE SET attempt_count = pattern_suggestions.attempt_count + 1
		 RETURNING `+suggestionColumns,
		sg.ID, string(sg.FieldType), sg.SuggestedRegex, sg.SampleText,
		sg.ExpectedValue, string(sg.Status), sg.AttemptCount, sg.CreatedAt,
	)
	out, err := scanSuggestion(row)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert suggestion")
	}
	return out, nil
}

func (s *PostgresStore) GetSuggestion(ctx context.Context, id string) (*model.PatternSuggestion, error) {
	sg, err := scanSuggestion(s.pool.QueryRow(ctx,
		`SELECT `+suggestionColumns+` FROM pattern_suggestions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get suggestion %s", id)
	}
	return sg, nil
}

func (s *PostgresStore) ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]model.PatternSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM pattern_suggestions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if len(filter.FieldTypes) > 0 {
		types := make([]string, len(filter.FieldTypes))
		for i, ft := range filter.FieldTypes {
			types[i] = string(ft)
		}
		query += fmt.Sprintf(` AND field_type = ANY($%d)`, argIdx)
		args = append(args, types)
		argIdx++
	}
	if filter.MinAttempts > 0 {
		query += fmt.Sprintf(` AND attempt_count >= $%d`, argIdx)
		args = append(args, filter.MinAttempts)
		argIdx++
	}
	query += ` ORDER BY created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list suggestions")
	}
	defer rows.Close()

	var out []model.PatternSuggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan suggestion")
		}
		out = append(out, *sg)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list suggestions iterate")
}

func (s *PostgresStore) TransitionSuggestion(ctx context.Context, id string, from, to model.SuggestionStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, eris.Errorf("postgres: illegal suggestion transition %s -> %s", from, to)
	}
	var tagSQL string
	if to.Terminal() {
		tagSQL = `UPDATE pattern_suggestions SET status = $1, reviewed_at = now() WHERE id = $2 AND status = $3`
	} else {
		tagSQL = `UPDATE pattern_suggestions SET status = $1, reviewed_at = NULL WHERE id = $2 AND status = $3`
	}
	tag, err := s.pool.Exec(ctx, tagSQL, string(to), id, string(from))
	if err != nil {
		return false, eris.Wrapf(err, "postgres: transition suggestion %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ResetFailedSuggestions(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pattern_suggestions
		 SET status = 'pending', attempt_count = 0, reviewed_at = NULL
		 WHERE status = 'generation_failed'`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reset failed suggestions")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) PurgeSuggestions(ctx context.Context, statuses []model.SuggestionStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	strs := make([]string, 0, len(statuses))
	for _, st := range statuses {
		// Approved suggestions stay linked to the pattern they produced.
		if st == model.SuggestionApproved {
			continue
		}
		strs = append(strs, string(st))
	}
	if len(strs) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM pattern_suggestions WHERE status = ANY($1)`, strs)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge suggestions")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) UpsertVenue(ctx context.Context, v model.KnownVenue) (*model.KnownVenue, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	aliasJSON, err := json.Marshal(v.Aliases)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal aliases")
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO known_venues (id, name, aliases, address, city, lat, lng)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (name) DO UPDATE SET aliases = $3, address = $4, city = $5, lat = $6, lng = $7
		 RETURNING id`,
		v.ID, v.Name, aliasJSON, v.Address, v.City, v.Lat, v.Lng,
	).Scan(&id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert venue")
	}
	v.ID = id
	return &v, nil
}

func (s *PostgresStore) ImportVenues(ctx context.Context, venues []model.KnownVenue) (int, error) {
	rows := make([][]any, 0, len(venues))
	for i := range venues {
		v := &venues[i]
		if err := v.Validate(); err != nil {
			return 0, eris.Wrapf(err, "postgres: import venue %q", v.Name)
		}
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		aliasJSON, err := json.Marshal(v.Aliases)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal aliases")
		}
		rows = append(rows, []any{v.ID, v.Name, aliasJSON, v.Address, v.City, v.Lat, v.Lng})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "known_venues",
		Columns:      []string{"id", "name", "aliases", "address", "city", "lat", "lng"},
		ConflictKeys: []string{"name"},
		UpdateCols:   []string{"aliases", "address", "city", "lat", "lng"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import venues")
	}
	return int(n), nil
}

func scanVenue(row pgx.Row) (*model.KnownVenue, error) {
	var v model.KnownVenue
	var aliasJSON []byte
	if err := row.Scan(&v.ID, &v.Name, &aliasJSON, &v.Address, &v.City, &v.Lat, &v.Lng); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(aliasJSON, &v.Aliases); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal aliases")
	}
	return &v, nil
}

func (s *PostgresStore) GetVenueByName(ctx context.Context, name string) (*model.KnownVenue, error) {
	v, err := scanVenue(s.pool.QueryRow(ctx,
		`SELECT id, name, aliases, address, city, lat, lng FROM known_venues WHERE lower(name) = lower($1)`,
		name,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get venue %q", name)
	}
	return v, nil
}

func (s *PostgresStore) ListVenues(ctx context.Context) ([]model.KnownVenue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, aliases, address, city, lat, lng FROM known_venues ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list venues")
	}
	defer rows.Close()

	var out []model.KnownVenue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan venue")
		}
		out = append(out, *v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list venues iterate")
}

func (s *PostgresStore) RecordLocationCorrection(ctx context.Context, lc model.LocationCorrection) (*model.LocationCorrection, error) {
	if err := lc.Validate(); err != nil {
		return nil, err
	}
	lc.ID = uuid.New().String()
	if lc.CorrectionCount < 1 {
		lc.CorrectionCount = 1
	}
	if lc.ConfidenceScore == 0 {
		lc.ConfidenceScore = 0.5
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO location_corrections
		 (id, original_name, original_address, corrected_venue_name, corrected_street_address, lat, lng, correction_count, confidence_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (original_name, original_address, corrected_venue_name)
		 DO UPDATE SET
		   correction_count = location_corrections.correction_count + 1,
		   confidence_score = LEAST(1.0, location_corrections.confidence_score + 0.1)
		 RETURNING id, original_name, original_address, corrected_venue_name, corrected_street_address, lat, lng, correction_count, confidence_score`,
		lc.ID, lc.OriginalName, lc.OriginalAddress, lc.CorrectedVenueName,
		lc.CorrectedStreetAddr, lc.Lat, lc.Lng, lc.CorrectionCount, lc.ConfidenceScore,
	)
	var out model.LocationCorrection
	if err := row.Scan(&out.ID, &out.OriginalName, &out.OriginalAddress,
		&out.CorrectedVenueName, &out.CorrectedStreetAddr, &out.Lat, &out.Lng,
		&out.CorrectionCount, &out.ConfidenceScore); err != nil {
		return nil, eris.Wrap(err, "postgres: record location correction")
	}
	return &out, nil
}

func (s *PostgresStore) ListLocationCorrections(ctx context.Context) ([]model.LocationCorrection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, original_name, original_address, corrected_venue_name, corrected_street_address, lat, lng, correction_count, confidence_score
		 FROM location_corrections`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list location corrections")
	}
	defer rows.Close()

	var out []model.LocationCorrection
	for rows.Next() {
		var lc model.LocationCorrection
		if err := rows.Scan(&lc.ID, &lc.OriginalName, &lc.OriginalAddress,
			&lc.CorrectedVenueName, &lc.CorrectedStreetAddr, &lc.Lat, &lc.Lng,
			&lc.CorrectionCount, &lc.ConfidenceScore); err != nil {
			return nil, eris.Wrap(err, "postgres: scan location correction")
		}
		out = append(out, lc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list location corrections iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM extraction_patterns WHERE is_active),
		   (SELECT COUNT(*) FROM extraction_patterns WHERE NOT is_active),
		   (SELECT COUNT(*) FROM corrections),
		   (SELECT COUNT(*) FROM ground_truth),
		   (SELECT COUNT(*) FROM pattern_suggestions WHERE status = 'pending'),
		   (SELECT COUNT(*) FROM known_venues)`,
	).Scan(&st.ActivePatterns, &st.InactivePatterns, &st.Corrections,
		&st.GroundTruthEntries, &st.PendingSuggestions, &st.KnownVenues)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &st, nil
}
