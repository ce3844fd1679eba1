package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidVendor = errors.New("invalid vendor")
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository handles database operations
type Repository struct {
	db  *DB
	now func() time.Time
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) PoolStats() map[string]interface{} {
	return r.db.GetPoolStats()
}

const vendorColumns = `id, name, COALESCE(website, ''), COALESCE(description, ''), COALESCE(email, ''),
	COALESCE(phone, ''), COALESCE(address, ''), COALESCE(company_size, ''), COALESCE(industry, ''),
	COALESCE(founded, ''), status, is_verified, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVendor(row rowScanner) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Website, &v.Description, &v.Email,
		&v.Phone, &v.Address, &v.CompanySize, &v.Industry,
		&v.Founded, &v.Status, &v.IsVerified, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ListVendors returns one page of vendors, newest first. Each vendor carries
// its latest score, up to three active risks by severity, its three best
// rated reviews and its capability features.
func (r *Repository) ListVendors(ctx context.Context, filter VendorFilter) (*VendorPage, error) {
	f := filter.normalized()

	var where []string
	var args []interface{}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		where = append(where, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Industry != "" {
		where = append(where, "industry = ?")
		args = append(args, f.Industry)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vendors`+clause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count vendors: %w", err)
	}

	pageArgs := append(append([]interface{}{}, args...), f.Limit, (f.Page-1)*f.Limit)
	vendors, err := r.queryVendors(ctx,
		`SELECT `+vendorColumns+` FROM vendors`+clause+` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		pageArgs...)
	if err != nil {
		return nil, err
	}

	details := make([]VendorDetail, 0, len(vendors))
	for _, v := range vendors {
		d, err := r.attach(ctx, v, relationLimits{reviews: 3, risks: 3, activeRisksOnly: true, skipRecords: true})
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}

	pages := 0
	if total > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}

	return &VendorPage{
		Vendors: details,
		Pagination: Pagination{
			Page:  f.Page,
			Limit: f.Limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

// GetVendor loads a vendor with every related row and its last 20 audit
// entries.
func (r *Repository) GetVendor(ctx context.Context, id string) (*VendorDetail, error) {
	v, err := scanVendor(r.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}

	d, err := r.attach(ctx, v, relationLimits{})
	if err != nil {
		return nil, err
	}

	logs, err := r.ListAuditLogs(ctx, AuditFilter{VendorID: id, Limit: 20})
	if err != nil {
		return nil, err
	}
	d.AuditLogs = logs

	return &d, nil
}

// ListCandidates returns ACTIVE vendors, optionally restricted to one
// industry, prepared for ranking.
func (r *Repository) ListCandidates(ctx context.Context, industry string) ([]VendorDetail, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE status = ?`
	args := []interface{}{string(VendorActive)}
	if industry != "" {
		query += ` AND industry = ?`
		args = append(args, industry)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	vendors, err := r.queryVendors(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]VendorDetail, 0, len(vendors))
	for _, v := range vendors {
		d, err := r.attach(ctx, v, relationLimits{reviews: 5, records: 5, risks: 3, activeRisksOnly: true})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *Repository) queryVendors(ctx context.Context, query string, args ...interface{}) ([]Vendor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// relationLimits bounds how many related rows attach loads. Zero means no
// limit.
type relationLimits struct {
	reviews         int
	records         int
	risks           int
	activeRisksOnly bool
	skipRecords     bool
}

func limitClause(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", n)
}

func (r *Repository) attach(ctx context.Context, v Vendor, lim relationLimits) (VendorDetail, error) {
	d := VendorDetail{
		Vendor:          v,
		InternalRecords: []PerformanceRecord{},
		ExternalReviews: []ExternalReview{},
		Features:        []CapabilityFeature{},
		Risks:           []VendorRisk{},
		Scores:          []VendorScore{},
	}

	var err error
	if !lim.skipRecords {
		if d.InternalRecords, err = r.records(ctx, v.ID, lim.records); err != nil {
			return d, err
		}
	}
	if d.ExternalReviews, err = r.reviews(ctx, v.ID, lim.reviews); err != nil {
		return d, err
	}
	if d.Features, err = r.features(ctx, v.ID); err != nil {
		return d, err
	}
	if d.Risks, err = r.risks(ctx, v.ID, lim.activeRisksOnly, lim.risks); err != nil {
		return d, err
	}

	score, err := r.LatestScore(ctx, v.ID)
	switch {
	case err == nil:
		d.Scores = append(d.Scores, *score)
	case !errors.Is(err, ErrNotFound):
		return d, err
	}

	return d, nil
}

func (r *Repository) records(ctx context.Context, vendorID string, limit int) ([]PerformanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, vendor_id, project_name, COALESCE(project_category, ''), contract_value,
			delivery_success_rate, quality_score, cost_efficiency, compliance_score,
			incident_count, created_at
		FROM performance_records WHERE vendor_id = ?
		ORDER BY created_at DESC, rowid DESC`+limitClause(limit), vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance records: %w", err)
	}
	defer rows.Close()

	out := []PerformanceRecord{}
	for rows.Next() {
		var p PerformanceRecord
		if err := rows.Scan(&p.ID, &p.VendorID, &p.ProjectName, &p.ProjectCategory, &p.ContractValue,
			&p.DeliverySuccessRate, &p.QualityScore, &p.CostEfficiency, &p.ComplianceScore,
			&p.IncidentCount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan performance record: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) reviews(ctx context.Context, vendorID string, limit int) ([]ExternalReview, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, vendor_id, source, rating, review_count, sentiment, created_at
		FROM external_reviews WHERE vendor_id = ?
		ORDER BY rating DESC, rowid ASC`+limitClause(limit), vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	out := []ExternalReview{}
	for rows.Next() {
		var rv ExternalReview
		var sentiment sql.NullString
		if err := rows.Scan(&rv.ID, &rv.VendorID, &rv.Source, &rv.Rating, &rv.ReviewCount,
			&sentiment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		rv.Sentiment = sentiment.String
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repository) features(ctx context.Context, vendorID string) ([]CapabilityFeature, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, vendor_id, services, technologies, certifications, expertise_areas,
			years_in_business, team_size, created_at
		FROM capability_features WHERE vendor_id = ?
		ORDER BY created_at ASC, rowid ASC`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	defer rows.Close()

	out := []CapabilityFeature{}
	for rows.Next() {
		var f CapabilityFeature
		if err := rows.Scan(&f.ID, &f.VendorID, &f.Services, &f.Technologies, &f.Certifications,
			&f.ExpertiseAreas, &f.YearsInBusiness, &f.TeamSize, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feature: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repository) risks(ctx context.Context, vendorID string, activeOnly bool, limit int) ([]VendorRisk, error) {
	query := `
		SELECT id, vendor_id, risk_level, COALESCE(risk_category, ''), COALESCE(description, ''),
			severity, status, created_at
		FROM vendor_risks WHERE vendor_id = ?`
	args := []interface{}{vendorID}
	if activeOnly {
		query += ` AND status = ?`
		args = append(args, string(RiskActive))
	}
	query += ` ORDER BY severity DESC, rowid ASC` + limitClause(limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query risks: %w", err)
	}
	defer rows.Close()

	out := []VendorRisk{}
	for rows.Next() {
		var k VendorRisk
		if err := rows.Scan(&k.ID, &k.VendorID, &k.RiskLevel, &k.RiskCategory, &k.Description,
			&k.Severity, &k.Status, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan risk: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *Repository) CreateVendor(ctx context.Context, in VendorInput) (*Vendor, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidVendor)
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidVendor, *in.Status)
	}

	now := r.now()
	v := Vendor{
		ID:        newID(),
		Status:    VendorPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&v)

	if err := insertVendor(ctx, r.db, v); err != nil {
		return nil, err
	}
	return &v, nil
}

func insertVendor(ctx context.Context, ex execer, v Vendor) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO vendors (id, name, website, description, email, phone, address,
			company_size, industry, founded, status, is_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Website, v.Description, v.Email, v.Phone, v.Address,
		v.CompanySize, v.Industry, v.Founded, string(v.Status), v.IsVerified, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

func (in VendorInput) apply(v *Vendor) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&v.Name, in.Name)
	set(&v.Website, in.Website)
	set(&v.Description, in.Description)
	set(&v.Email, in.Email)
	set(&v.Phone, in.Phone)
	set(&v.Address, in.Address)
	set(&v.CompanySize, in.CompanySize)
	set(&v.Industry, in.Industry)
	set(&v.Founded, in.Founded)
	if in.Status != nil {
		v.Status = *in.Status
	}
	if in.IsVerified != nil {
		v.IsVerified = *in.IsVerified
	}
}

// UpdateVendor applies the non-nil fields of in to an existing vendor.
func (r *Repository) UpdateVendor(ctx context.Context, id string, in VendorInput) (*Vendor, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be blank", ErrInvalidVendor)
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidVendor, *in.Status)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	v, err := scanVendor(tx.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}

	in.apply(&v)
	v.UpdatedAt = r.now()

	_, err = tx.ExecContext(ctx, `
		UPDATE vendors SET name = ?, website = ?, description = ?, email = ?, phone = ?,
			address = ?, company_size = ?, industry = ?, founded = ?, status = ?,
			is_verified = ?, updated_at = ?
		WHERE id = ?`,
		v.Name, v.Website, v.Description, v.Email, v.Phone,
		v.Address, v.CompanySize, v.Industry, v.Founded, string(v.Status),
		v.IsVerified, v.UpdatedAt, v.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update vendor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vendor update: %w", err)
	}
	return &v, nil
}

func (r *Repository) DeleteVendor(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vendors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadVendorRecords returns the rows that feed a score: every performance
// record and review, the capability features and only the ACTIVE risks.
func (r *Repository) LoadVendorRecords(ctx context.Context, id string) (*VendorDetail, error) {
	v, err := scanVendor(r.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}

	d, err := r.attach(ctx, v, relationLimits{activeRisksOnly: true})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const scoreColumns = `id, vendor_id, total_score, reliability_score, cost_score, capability_score,
	performance_score, reputation_score, risk_score, ml_prediction_score, confidence,
	breakdown, ranking_factors, COALESCE(model_version, ''), created_at`

func (r *Repository) SaveScore(ctx context.Context, s *VendorScore) error {
	if s.ID == "" {
		s.ID = newID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}

	stmt, err := r.db.GetPreparedStatement(stmtInsertScore)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx,
		s.ID, s.VendorID, s.TotalScore, s.ReliabilityScore, s.CostScore, s.CapabilityScore,
		s.PerformanceScore, s.ReputationScore, s.RiskScore, s.MLPredictionScore, s.Confidence,
		nullJSON(s.Breakdown), nullJSON(s.RankingFactors), s.ModelVersion, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save score: %w", err)
	}
	return nil
}

func (r *Repository) LatestScore(ctx context.Context, vendorID string) (*VendorScore, error) {
	stmt, err := r.db.GetPreparedStatement(stmtLatestScore)
	if err != nil {
		return nil, err
	}

	var s VendorScore
	var breakdown, factors sql.NullString
	err = stmt.QueryRowContext(ctx, vendorID).Scan(
		&s.ID, &s.VendorID, &s.TotalScore, &s.ReliabilityScore, &s.CostScore, &s.CapabilityScore,
		&s.PerformanceScore, &s.ReputationScore, &s.RiskScore, &s.MLPredictionScore, &s.Confidence,
		&breakdown, &factors, &s.ModelVersion, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest score: %w", err)
	}
	s.Breakdown = rawJSON(breakdown)
	s.RankingFactors = rawJSON(factors)
	return &s, nil
}

func (r *Repository) CreateAuditLog(ctx context.Context, entry *AuditLog) error {
	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}

	stmt, err := r.db.GetPreparedStatement(stmtInsertAuditLog)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx, entry.ID, nullString(entry.UserID), nullString(entry.VendorID),
		entry.Action, entry.Entity, nullString(entry.EntityID), nullJSON(entry.Details), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns audit entries newest first, joined with the vendor
// name where the vendor still exists.
func (r *Repository) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditLog, error) {
	var where []string
	var args []interface{}
	if filter.UserID != "" {
		where = append(where, "a.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.VendorID != "" {
		where = append(where, "a.vendor_id = ?")
		args = append(args, filter.VendorID)
	}
	if filter.Action != "" {
		where = append(where, "a.action = ?")
		args = append(args, filter.Action)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	query := `SELECT a.id, a.user_id, a.vendor_id, COALESCE(v.name, ''), a.action, a.entity,
			a.entity_id, a.details, a.created_at
		FROM audit_logs a LEFT JOIN vendors v ON v.id = a.vendor_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY a.created_at DESC, a.rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		var l AuditLog
		var userID, vendorID, entityID, details sql.NullString
		if err := rows.Scan(&l.ID, &userID, &vendorID, &l.VendorName, &l.Action, &l.Entity,
			&entityID, &details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		l.UserID = userID.String
		l.VendorID = vendorID.String
		l.EntityID = entityID.String
		l.Details = rawJSON(details)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(m json.RawMessage) sql.NullString {
	if len(m) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(m), Valid: true}
}

func rawJSON(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.RawMessage(s.String)
}
