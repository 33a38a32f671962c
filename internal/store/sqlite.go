package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/scenescout/extract-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs the
// embedded/offline mode where no postgres is available.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS extraction_patterns (
	id            TEXT PRIMARY KEY,
	field_type    TEXT NOT NULL,
	regex_source  TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	confidence    REAL NOT NULL DEFAULT 0.5,
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	priority      INTEGER NOT NULL DEFAULT 0,
	is_active     INTEGER NOT NULL DEFAULT 1,
	source        TEXT NOT NULL DEFAULT 'manual',
	last_used_at  DATETIME,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
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
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_corrections_field ON corrections(field_name);

CREATE TABLE IF NOT EXISTS ground_truth (
	id                TEXT PRIMARY KEY,
	post_ref          TEXT NOT NULL DEFAULT '',
	field_name        TEXT NOT NULL,
	raw_text          TEXT NOT NULL DEFAULT '',
	correct_value     TEXT NOT NULL,
	source_confidence REAL NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
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
	reviewed_at     DATETIME,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_suggestions_pending
	ON pattern_suggestions(field_type, suggested_regex) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_suggestions_status ON pattern_suggestions(status);

CREATE TABLE IF NOT EXISTS known_venues (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	aliases TEXT NOT NULL DEFAULT '[]',
	address TEXT NOT NULL DEFAULT '',
	city    TEXT NOT NULL DEFAULT '',
	lat     REAL,
	lng     REAL
);

CREATE TABLE IF NOT EXISTS location_corrections (
	id                       TEXT PRIMARY KEY,
	original_name            TEXT NOT NULL DEFAULT '',
	original_address         TEXT NOT NULL DEFAULT '',
	corrected_venue_name     TEXT NOT NULL,
	corrected_street_address TEXT NOT NULL DEFAULT '',
	lat                      REAL,
	lng                      REAL,
	correction_count         INTEGER NOT NULL DEFAULT 1,
	confidence_score         REAL NOT NULL DEFAULT 0.5,
	UNIQUE (original_name, original_address, corrected_venue_name)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s", entity)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func (s *SQLiteStore) CreatePattern(ctx context.Context, p model.ExtractionPattern) (*model.ExtractionPattern, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO extraction_patterns
		 (id, field_type, regex_source, description, confidence, priority, is_active, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.FieldType), p.RegexSource, p.Description,
		p.Confidence, p.Priority, p.IsActive, string(p.Source), p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert pattern")
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatternLite(row rowScanner) (*model.ExtractionPattern, error) {
	var p model.ExtractionPattern
	var lastUsed sql.NullTime
	err := row.Scan(&p.ID, &p.FieldType, &p.RegexSource, &p.Description,
		&p.Confidence, &p.SuccessCount, &p.FailureCount, &p.Priority,
		&p.IsActive, &p.Source, &lastUsed, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		p.LastUsedAt = &t
	}
	return &p, nil
}

func (s *SQLiteStore) GetPattern(ctx context.Context, id string) (*model.ExtractionPattern, error) {
	p, err := scanPatternLite(s.db.QueryRowContext(ctx,
		`SELECT `+patternColumns+` FROM extraction_patterns WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get pattern %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListPatterns(ctx context.Context, filter PatternFilter) ([]model.ExtractionPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM extraction_patterns WHERE 1=1`
	args := []any{}

	if filter.FieldType != "" {
		query += ` AND field_type = ?`
		args = append(args, string(filter.FieldType))
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	if filter.OnlyActive {
		query += ` AND is_active`
	}
	query += ` ORDER BY priority DESC, confidence DESC LIMIT ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list patterns")
	}
	defer rows.Close()

	var patterns []model.ExtractionPattern
	for rows.Next() {
		p, err := scanPatternLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pattern")
		}
		patterns = append(patterns, *p)
	}
	return patterns, eris.Wrap(rows.Err(), "sqlite: list patterns iterate")
}

func (s *SQLiteStore) ActivePatterns(ctx context.Context, ft model.FieldType, minConfidence float64, limit int) ([]model.ExtractionPattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+patternColumns+` FROM extraction_patterns
		 WHERE field_type = ? AND is_active AND confidence >= ?
		 ORDER BY priority DESC, confidence DESC
		 LIMIT ?`,
		string(ft), minConfidence, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: active patterns")
	}
	defer rows.Close()

	var patterns []model.ExtractionPattern
	for rows.Next() {
		p, err := scanPatternLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pattern")
		}
		patterns = append(patterns, *p)
	}
	return patterns, eris.Wrap(rows.Err(), "sqlite: active patterns iterate")
}

func (s *SQLiteStore) RecordPatternHit(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_patterns SET success_count = success_count + 1, last_used_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record hit %s", id)
	}
	return checkRowsAffected(res, "pattern", id)
}

func (s *SQLiteStore) RecordPatternMiss(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_patterns SET failure_count = failure_count + 1 WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record miss %s", id)
	}
	return checkRowsAffected(res, "pattern", id)
}

func (s *SQLiteStore) SetPatternActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_patterns SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set pattern active %s", id)
	}
	return checkRowsAffected(res, "pattern", id)
}

func (s *SQLiteStore) DeactivateFailingPatterns(ctx context.Context, minAttempts, failureFactor int) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_patterns
		 SET is_active = 0
		 WHERE is_active
		   AND success_count + failure_count > ?
		   AND failure_count > success_count * ?`,
		minAttempts, failureFactor,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: deactivate failing patterns")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: deactivate failing rows affected")
}

func (s *SQLiteStore) CreateCorrection(ctx context.Context, c model.Correction) (*model.Correction, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO corrections (id, post_ref, field_name, original_value, corrected_value, raw_source_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PostRef, c.FieldName, c.OriginalValue, c.CorrectedValue, c.RawSourceText, c.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert correction")
	}
	return &c, nil
}

func (s *SQLiteStore) ListCorrections(ctx context.Context, fieldName string, limit int) ([]model.Correction, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_ref, field_name, original_value, corrected_value, raw_source_text, created_at
		 FROM corrections WHERE field_name = ?
		 ORDER BY created_at DESC LIMIT ?`,
		fieldName, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list corrections")
	}
	defer rows.Close()

	var out []model.Correction
	for rows.Next() {
		var c model.Correction
		if err := rows.Scan(&c.ID, &c.PostRef, &c.FieldName, &c.OriginalValue,
			&c.CorrectedValue, &c.RawSourceText, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan correction")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list corrections iterate")
}

func (s *SQLiteStore) FieldsWithCorrections(ctx context.Context, min int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field_name FROM corrections GROUP BY field_name HAVING COUNT(*) >= ?`, min)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fields with corrections")
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan field name")
		}
		fields = append(fields, f)
	}
	return fields, eris.Wrap(rows.Err(), "sqlite: fields with corrections iterate")
}

func (s *SQLiteStore) CreateGroundTruth(ctx context.Context, g model.GroundTruthEntry) (*model.GroundTruthEntry, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.ID = uuid.New().String()
	g.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ground_truth (id, post_ref, field_name, raw_text, correct_value, source_confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.PostRef, g.FieldName, g.RawText, g.CorrectValue, g.SourceConfidence, g.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert ground truth")
	}
	return &g, nil
}

func (s *SQLiteStore) ListGroundTruth(ctx context.Context, fieldName string, limit int) ([]model.GroundTruthEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_ref, field_name, raw_text, correct_value, source_confidence, created_at
		 FROM ground_truth WHERE field_name = ?
		 ORDER BY created_at DESC LIMIT ?`,
		fieldName, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ground truth")
	}
	defer rows.Close()

	var out []model.GroundTruthEntry
	for rows.Next() {
		var g model.GroundTruthEntry
		if err := rows.Scan(&g.ID, &g.PostRef, &g.FieldName, &g.RawText,
			&g.CorrectValue, &g.SourceConfidence, &g.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ground truth")
		}
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list ground truth iterate")
}

func scanSuggestionLite(row rowScanner) (*model.PatternSuggestion, error) {
	var sg model.PatternSuggestion
	var reviewed sql.NullTime
	err := row.Scan(&sg.ID, &sg.FieldType, &sg.SuggestedRegex, &sg.SampleText,
		&sg.ExpectedValue, &sg.Status, &sg.AttemptCount, &reviewed, &sg.CreatedAt)
	if err != nil {
		return nil, err
	}
	if reviewed.Valid {
		t := reviewed.Time
		sg.ReviewedAt = &t
	}
	return &sg, nil
}

func (s *SQLiteStore) UpsertSuggestion(ctx context.Context, sg model.PatternSuggestion) (*model.PatternSuggestion, error) {
	if err := sg.Validate(); err != nil {
		return nil, err
	}
	sg.ID = uuid.New().String()
	sg.Status = model.SuggestionPending
	sg.AttemptCount = 1
	sg.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pattern_suggestions
		 (id, field_type, suggested_regex, sample_text, expected_value, status, attempt_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (field_type, suggested_regex) WHERE status = 'pending'
		 DO UPDATE SET attempt_count = attempt_count + 1`,
		sg.ID, string(sg.FieldType), sg.SuggestedRegex, sg.SampleText,
		sg.ExpectedValue, string(sg.Status), sg.AttemptCount, sg.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert suggestion")
	}

	out, err := scanSuggestionLite(s.db.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM pattern_suggestions
		 WHERE field_type = ? AND suggested_regex = ? AND status = 'pending'`,
		string(sg.FieldType), sg.SuggestedRegex,
	))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: reload suggestion")
	}
	return out, nil
}

func (s *SQLiteStore) GetSuggestion(ctx context.Context, id string) (*model.PatternSuggestion, error) {
	sg, err := scanSuggestionLite(s.db.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM pattern_suggestions WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get suggestion %s", id)
	}
	return sg, nil
}

func (s *SQLiteStore) ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]model.PatternSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM pattern_suggestions WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if len(filter.FieldTypes) > 0 {
		placeholders := make([]string, len(filter.FieldTypes))
		for i, ft := range filter.FieldTypes {
			placeholders[i] = "?"
			args = append(args, string(ft))
		}
		query += fmt.Sprintf(` AND field_type IN (%s)`, strings.Join(placeholders, ", "))
	}
	if filter.MinAttempts > 0 {
		query += ` AND attempt_count >= ?`
		args = append(args, filter.MinAttempts)
	}
	query += ` ORDER BY created_at ASC LIMIT ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list suggestions")
	}
	defer rows.Close()

	var out []model.PatternSuggestion
	for rows.Next() {
		sg, err := scanSuggestionLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan suggestion")
		}
		out = append(out, *sg)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list suggestions iterate")
}

func (s *SQLiteStore) TransitionSuggestion(ctx context.Context, id string, from, to model.SuggestionStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, eris.Errorf("sqlite: illegal suggestion transition %s -> %s", from, to)
	}
	var res sql.Result
	var err error
	if to.Terminal() {
		res, err = s.db.ExecContext(ctx,
			`UPDATE pattern_suggestions SET status = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
			string(to), time.Now().UTC(), id, string(from))
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE pattern_suggestions SET status = ?, reviewed_at = NULL WHERE id = ? AND status = ?`,
			string(to), id, string(from))
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: transition suggestion %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: transition rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ResetFailedSuggestions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pattern_suggestions
		 SET status = 'pending', attempt_count = 0, reviewed_at = NULL
		 WHERE status = 'generation_failed'`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reset failed suggestions")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: reset failed rows affected")
}

func (s *SQLiteStore) PurgeSuggestions(ctx context.Context, statuses []model.SuggestionStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	var placeholders []string
	var args []any
	for _, st := range statuses {
		if st == model.SuggestionApproved {
			continue
		}
		placeholders = append(placeholders, "?")
		args = append(args, string(st))
	}
	if len(args) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM pattern_suggestions WHERE status IN (%s)`, strings.Join(placeholders, ", ")),
		args...,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge suggestions")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: purge rows affected")
}

func (s *SQLiteStore) UpsertVenue(ctx context.Context, v model.KnownVenue) (*model.KnownVenue, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	aliasJSON, err := json.Marshal(v.Aliases)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal aliases")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO known_venues (id, name, aliases, address, city, lat, lng)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET aliases = excluded.aliases, address = excluded.address,
		   city = excluded.city, lat = excluded.lat, lng = excluded.lng`,
		v.ID, v.Name, string(aliasJSON), v.Address, v.City, v.Lat, v.Lng,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert venue")
	}

	var id string
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM known_venues WHERE name = ?`, v.Name).Scan(&id); err != nil {
		return nil, eris.Wrap(err, "sqlite: reload venue id")
	}
	v.ID = id
	return &v, nil
}

func (s *SQLiteStore) ImportVenues(ctx context.Context, venues []model.KnownVenue) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import venues: begin tx")
	}
	defer tx.Rollback()

	var written int
	for i := range venues {
		v := &venues[i]
		if err := v.Validate(); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import venue %q", v.Name)
		}
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		aliasJSON, err := json.Marshal(v.Aliases)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal aliases")
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO known_venues (id, name, aliases, address, city, lat, lng)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (name) DO UPDATE SET aliases = excluded.aliases, address = excluded.address,
			   city = excluded.city, lat = excluded.lat, lng = excluded.lng`,
			v.ID, v.Name, string(aliasJSON), v.Address, v.City, v.Lat, v.Lng,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import venue %q", v.Name)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import venues: commit tx")
	}
	return written, nil
}

func scanVenueLite(row rowScanner) (*model.KnownVenue, error) {
	var v model.KnownVenue
	var aliasJSON string
	var lat, lng sql.NullFloat64
	if err := row.Scan(&v.ID, &v.Name, &aliasJSON, &v.Address, &v.City, &lat, &lng); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(aliasJSON), &v.Aliases); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal aliases")
	}
	if lat.Valid {
		f := lat.Float64
		v.Lat = &f
	}
	if lng.Valid {
		f := lng.Float64
		v.Lng = &f
	}
	return &v, nil
}

func (s *SQLiteStore) GetVenueByName(ctx context.Context, name string) (*model.KnownVenue, error) {
	v, err := scanVenueLite(s.db.QueryRowContext(ctx,
		`SELECT id, name, aliases, address, city, lat, lng FROM known_venues WHERE lower(name) = lower(?)`,
		name,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get venue %q", name)
	}
	return v, nil
}

func (s *SQLiteStore) ListVenues(ctx context.Context) ([]model.KnownVenue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, aliases, address, city, lat, lng FROM known_venues ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list venues")
	}
	defer rows.Close()

	var out []model.KnownVenue
	for rows.Next() {
		v, err := scanVenueLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan venue")
		}
		out = append(out, *v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list venues iterate")
}

func (s *SQLiteStore) RecordLocationCorrection(ctx context.Context, lc model.LocationCorrection) (*model.LocationCorrection, error) {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO location_corrections
		 (id, original_name, original_address, corrected_venue_name, corrected_street_address, lat, lng, correction_count, confidence_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (original_name, original_address, corrected_venue_name)
		 DO UPDATE SET
		   correction_count = correction_count + 1,
		   confidence_score = MIN(1.0, confidence_score + 0.1)`,
		lc.ID, lc.OriginalName, lc.OriginalAddress, lc.CorrectedVenueName,
		lc.CorrectedStreetAddr, lc.Lat, lc.Lng, lc.CorrectionCount, lc.ConfidenceScore,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: record location correction")
	}

	var out model.LocationCorrection
	var lat, lng sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, original_name, original_address, corrected_venue_name, corrected_street_address, lat, lng, correction_count, confidence_score
		 FROM location_corrections
		 WHERE original_name = ? AND original_address = ? AND corrected_venue_name = ?`,
		lc.OriginalName, lc.OriginalAddress, lc.CorrectedVenueName,
	).Scan(&out.ID, &out.OriginalName, &out.OriginalAddress, &out.CorrectedVenueName,
		&out.CorrectedStreetAddr, &lat, &lng, &out.CorrectionCount, &out.ConfidenceScore)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: reload location correction")
	}
	if lat.Valid {
		f := lat.Float64
		out.Lat = &f
	}
	if lng.Valid {
		f := lng.Float64
		out.Lng = &f
	}
	return &out, nil
}

func (s *SQLiteStore) ListLocationCorrections(ctx context.Context) ([]model.LocationCorrection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_name, original_address, corrected_venue_name, corrected_street_address, lat, lng, correction_count, confidence_score
		 FROM location_corrections`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list location corrections")
	}
	defer rows.Close()

	var out []model.LocationCorrection
	for rows.Next() {
		var lc model.LocationCorrection
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&lc.ID, &lc.OriginalName, &lc.OriginalAddress,
			&lc.CorrectedVenueName, &lc.CorrectedStreetAddr, &lat, &lng,
			&lc.CorrectionCount, &lc.ConfidenceScore); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan location correction")
		}
		if lat.Valid {
			f := lat.Float64
			lc.Lat = &f
		}
		if lng.Valid {
			f := lng.Float64
			lc.Lng = &f
		}
		out = append(out, lc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list location corrections iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
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
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return &st, nil
}
