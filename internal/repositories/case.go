package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"github.com/myrjola/caselink/internal/errors"
	"github.com/myrjola/caselink/internal/models"
	"github.com/myrjola/caselink/internal/similarity"
	"github.com/myrjola/caselink/internal/sqlite"
	"log/slog"
	"time"
)

// CaseRepository stores cases, their relationships and witness reports in SQLite.
type CaseRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewCaseRepository(dbs *sqlite.Database, logger *slog.Logger) *CaseRepository {
	return &CaseRepository{
		dbs:    dbs,
		logger: logger.With("source", "CaseRepository"),
	}
}

type caseRow struct {
	ID            string `db:"id"`
	CaseNumber    string `db:"case_number"`
	Title         string `db:"title"`
	Summary       string `db:"summary"`
	Location      string `db:"location"`
	Status        string `db:"status"`
	Metadata      string `db:"metadata"`
	SceneImageURL string `db:"scene_image_url"`
	Timeframe     string `db:"timeframe"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

const caseColumns = `id, case_number, title, summary, location, status, metadata, scene_image_url, timeframe,
created_at, updated_at`

// caseFromRow decodes a stored case. Undecodable metadata or timeframe JSON is logged and read as absent so
// that one bad row never hides the other cases.
func (r *CaseRepository) caseFromRow(ctx context.Context, row caseRow) models.Case {
	c := models.Case{
		ID:            row.ID,
		CaseNumber:    row.CaseNumber,
		Title:         row.Title,
		Summary:       row.Summary,
		Location:      row.Location,
		Status:        models.CaseStatus(row.Status),
		Metadata:      models.CaseMetadata{},
		SceneImageURL: row.SceneImageURL,
		Timeframe:     nil,
		CreatedAt:     parseTime(row.CreatedAt),
		UpdatedAt:     parseTime(row.UpdatedAt),
	}
	if row.Metadata != "" {
		var metadata models.CaseMetadata
		if err := json.Unmarshal([]byte(row.Metadata), &metadata); err != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "ignoring malformed case metadata", slog.String("row_case_id", row.ID),
				errors.SlogError(errors.Wrap(err, "decode metadata")))
		} else {
			c.Metadata = metadata
		}
	}
	if row.Timeframe != "" {
		var tf models.Timeframe
		if err := json.Unmarshal([]byte(row.Timeframe), &tf); err != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "ignoring malformed case timeframe", slog.String("row_case_id", row.ID),
				errors.SlogError(errors.Wrap(err, "decode timeframe")))
		} else {
			c.Timeframe = &tf
		}
	}
	return c
}

// parseTime returns the zero time for unparseable values so that the time factors treat them as missing.
func parseTime(s string) time.Time {
	t, _ := similarity.ParseTimestamp(s)
	return t
}

// GetCase returns nil without error when the case does not exist.
func (r *CaseRepository) GetCase(ctx context.Context, id string) (*models.Case, error) {
	var row caseRow
	stmt := `SELECT ` + caseColumns + ` FROM cases WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &row, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil // missing case is not an error
		}
		return nil, errors.Wrap(err, "read case", slog.String("case_id", id))
	}
	c := r.caseFromRow(ctx, row)
	return &c, nil
}

// ListCases returns the most recently updated cases first. A non-positive limit lists every case.
func (r *CaseRepository) ListCases(ctx context.Context, limit int) ([]models.Case, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []caseRow
	stmt := `SELECT ` + caseColumns + ` FROM cases ORDER BY updated_at DESC, id LIMIT ?`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &rows, stmt, limit); err != nil {
		return nil, errors.Wrap(err, "list cases")
	}
	cases := make([]models.Case, 0, len(rows))
	for _, row := range rows {
		cases = append(cases, r.caseFromRow(ctx, row))
	}
	return cases, nil
}

// UpsertCase inserts c or replaces the stored case with the same id.
func (r *CaseRepository) UpsertCase(ctx context.Context, c models.Case) error {
	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return errors.Wrap(err, "encode metadata")
	}
	var timeframe []byte
	if c.Timeframe != nil {
		if timeframe, err = json.Marshal(c.Timeframe); err != nil {
			return errors.Wrap(err, "encode timeframe")
		}
	}
	status := c.Status
	if status == "" {
		status = models.CaseStatusOpen
	}
	stmt := `INSERT INTO cases (` + caseColumns + `)
VALUES (:id, :case_number, :title, :summary, :location, :status, :metadata, :scene_image_url, :timeframe,
        :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET case_number     = excluded.case_number,
                               title           = excluded.title,
                               summary         = excluded.summary,
                               location        = excluded.location,
                               status          = excluded.status,
                               metadata        = excluded.metadata,
                               scene_image_url = excluded.scene_image_url,
                               timeframe       = excluded.timeframe,
                               created_at      = excluded.created_at,
                               updated_at      = excluded.updated_at`
	row := caseRow{
		ID:            c.ID,
		CaseNumber:    c.CaseNumber,
		Title:         c.Title,
		Summary:       c.Summary,
		Location:      c.Location,
		Status:        string(status),
		Metadata:      string(metadata),
		SceneImageURL: c.SceneImageURL,
		Timeframe:     string(timeframe),
		CreatedAt:     similarity.FormatTimestamp(c.CreatedAt),
		UpdatedAt:     similarity.FormatTimestamp(c.UpdatedAt),
	}
	if _, err = r.dbs.ReadWrite.NamedExecContext(ctx, stmt, row); err != nil {
		return errors.Wrap(err, "upsert case", slog.String("case_id", c.ID))
	}
	return nil
}

type relationshipRow struct {
	ID               string  `db:"id"`
	CaseAID          string  `db:"case_a_id"`
	CaseBID          string  `db:"case_b_id"`
	RelationshipType string  `db:"relationship_type"`
	LinkReason       string  `db:"link_reason"`
	Confidence       float64 `db:"confidence"`
	Notes            string  `db:"notes"`
	CreatedBy        string  `db:"created_by"`
	CreatedAt        string  `db:"created_at"`
}

const relationshipColumns = `id, case_a_id, case_b_id, relationship_type, link_reason, confidence, notes,
created_by, created_at`

func (row relationshipRow) toModel() models.CaseRelationship {
	return models.CaseRelationship{
		ID:               row.ID,
		CaseAID:          row.CaseAID,
		CaseBID:          row.CaseBID,
		RelationshipType: models.RelationshipType(row.RelationshipType),
		LinkReason:       models.LinkReason(row.LinkReason),
		Confidence:       row.Confidence,
		Notes:            row.Notes,
		CreatedBy:        row.CreatedBy,
		CreatedAt:        parseTime(row.CreatedAt),
	}
}

// SaveRelationship inserts rel and reports false when the unordered pair is already linked.
func (r *CaseRepository) SaveRelationship(ctx context.Context, rel models.CaseRelationship) (bool, error) {
	stmt := `INSERT INTO case_relationships (` + relationshipColumns + `)
VALUES (:id, :case_a_id, :case_b_id, :relationship_type, :link_reason, :confidence, :notes, :created_by, :created_at)
ON CONFLICT DO NOTHING`
	row := relationshipRow{
		ID:               rel.ID,
		CaseAID:          rel.CaseAID,
		CaseBID:          rel.CaseBID,
		RelationshipType: string(rel.RelationshipType),
		LinkReason:       string(rel.LinkReason),
		Confidence:       rel.Confidence,
		Notes:            rel.Notes,
		CreatedBy:        rel.CreatedBy,
		CreatedAt:        similarity.FormatTimestamp(rel.CreatedAt),
	}
	result, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, row)
	if err != nil {
		return false, errors.Wrap(err, "insert relationship", slog.String("relationship_id", rel.ID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "relationship pair already linked",
			slog.String("case_a_id", rel.CaseAID), slog.String("case_b_id", rel.CaseBID))
	}
	return affected > 0, nil
}

// GetRelationships lists the relationships with caseID on either side, oldest first.
func (r *CaseRepository) GetRelationships(ctx context.Context, caseID string) ([]models.CaseRelationship, error) {
	var rows []relationshipRow
	stmt := `SELECT ` + relationshipColumns + ` FROM case_relationships
WHERE case_a_id = :case_id OR case_b_id = :case_id
ORDER BY created_at, id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &rows, stmt, sql.Named("case_id", caseID)); err != nil {
		return nil, errors.Wrap(err, "list relationships", slog.String("case_id", caseID))
	}
	rels := make([]models.CaseRelationship, 0, len(rows))
	for _, row := range rows {
		rels = append(rels, row.toModel())
	}
	return rels, nil
}

// RelationshipExists finds the relationship between the two cases in either order. It returns nil without
// error when the pair is not linked.
func (r *CaseRepository) RelationshipExists(
	ctx context.Context,
	caseA string,
	caseB string,
) (*models.CaseRelationship, error) {
	var row relationshipRow
	stmt := `SELECT ` + relationshipColumns + ` FROM case_relationships
WHERE min(case_a_id, case_b_id) = min(:a, :b) AND max(case_a_id, case_b_id) = max(:a, :b)`
	err := r.dbs.ReadOnly.GetContext(ctx, &row, stmt, sql.Named("a", caseA), sql.Named("b", caseB))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil // unlinked pair is not an error
		}
		return nil, errors.Wrap(err, "read relationship",
			slog.String("case_a_id", caseA), slog.String("case_b_id", caseB))
	}
	rel := row.toModel()
	return &rel, nil
}

// DeleteRelationship reports whether a relationship with id existed.
func (r *CaseRepository) DeleteRelationship(ctx context.Context, id string) (bool, error) {
	result, err := r.dbs.ReadWrite.ExecContext(ctx, `DELETE FROM case_relationships WHERE id = ?`, id)
	if err != nil {
		return false, errors.Wrap(err, "delete relationship", slog.String("relationship_id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return affected > 0, nil
}

// AddReport records a witness report for caseID.
func (r *CaseRepository) AddReport(ctx context.Context, caseID string, witnessName string, at time.Time) error {
	stmt := `INSERT INTO witness_reports (case_id, witness_name, created_at) VALUES (?, ?, ?)`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, caseID, witnessName,
		similarity.FormatTimestamp(at)); err != nil {
		return errors.Wrap(err, "insert witness report", slog.String("case_id", caseID))
	}
	return nil
}

// CountReports returns the number of witness reports filed for caseID.
func (r *CaseRepository) CountReports(ctx context.Context, caseID string) (int, error) {
	var count int
	stmt := `SELECT COUNT(*) FROM witness_reports WHERE case_id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &count, stmt, caseID); err != nil {
		return 0, errors.Wrap(err, "count witness reports", slog.String("case_id", caseID))
	}
	return count, nil
}

// ReportCounts returns the witness report count of every case that has at least one report.
func (r *CaseRepository) ReportCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		CaseID string `db:"case_id"`
		Count  int    `db:"report_count"`
	}
	stmt := `SELECT case_id, COUNT(*) AS report_count FROM witness_reports GROUP BY case_id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "count witness reports")
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.CaseID] = row.Count
	}
	return counts, nil
}
