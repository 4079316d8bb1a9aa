package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Roles name the two destination channels a ground can stream to.
const (
	RoleAcademy = "academy"
	RoleCompany = "company"
)

// Ground is a venue belonging to an academy. Each ground remembers at most one
// reusable ingestion stream id per destination channel; empty means not yet created.
type Ground struct {
	ID              string
	AcademyID       string
	Title           string
	AcademyStreamID string
	CompanyStreamID string
}

// StreamIDForRole returns the remembered stream id for the given channel role.
func (g *Ground) StreamIDForRole(role string) (string, error) {
	switch role {
	case RoleAcademy:
		return g.AcademyStreamID, nil
	case RoleCompany:
		return g.CompanyStreamID, nil
	default:
		return "", fmt.Errorf("unknown channel role %q", role)
	}
}

func streamColumn(role string) (string, error) {
	switch role {
	case RoleAcademy:
		return "academy_stream_id", nil
	case RoleCompany:
		return "company_stream_id", nil
	default:
		return "", fmt.Errorf("unknown channel role %q", role)
	}
}

// ErrGroundNotFound reports a missing ground row.
var ErrGroundNotFound = sql.ErrNoRows

// GetGround loads one ground by id.
func GetGround(ctx context.Context, dbx *sql.DB, id string) (*Ground, error) {
	row := dbx.QueryRowContext(ctx, `SELECT id, academy_id, title, COALESCE(academy_stream_id,''), COALESCE(company_stream_id,'')
		FROM grounds WHERE id=$1`, id)
	g := &Ground{}
	if err := row.Scan(&g.ID, &g.AcademyID, &g.Title, &g.AcademyStreamID, &g.CompanyStreamID); err != nil {
		return nil, err
	}
	return g, nil
}

// UpsertAcademy creates or renames an academy.
func UpsertAcademy(ctx context.Context, dbx *sql.DB, id, name string) error {
	_, err := dbx.ExecContext(ctx, `INSERT INTO academies (id, name, created_at) VALUES ($1,$2,NOW())
		ON CONFLICT(id) DO UPDATE SET name=EXCLUDED.name, updated_at=NOW()`, id, name)
	return err
}

// UpsertGround creates or retitles a ground. Stream id fields are never touched
// here; they are owned by RememberStreamID.
func UpsertGround(ctx context.Context, dbx *sql.DB, id, academyID, title string) error {
	_, err := dbx.ExecContext(ctx, `INSERT INTO grounds (id, academy_id, title, created_at) VALUES ($1,$2,$3,NOW())
		ON CONFLICT(id) DO UPDATE SET academy_id=EXCLUDED.academy_id, title=EXCLUDED.title, updated_at=NOW()`, id, academyID, title)
	return err
}

// RememberStreamID records a newly created stream id on the ground's role
// column. The first successful write wins: a remembered id is never
// overwritten, and concurrent creators for the same (ground, role) converge on
// whichever id landed first. Returns the winning id.
func RememberStreamID(ctx context.Context, dbx *sql.DB, groundID, role, streamID string) (string, error) {
	col, err := streamColumn(role)
	if err != nil {
		return "", err
	}
	// The column name comes from a fixed two-value switch, not caller input.
	q := fmt.Sprintf(`UPDATE grounds SET %s=$1, updated_at=NOW() WHERE id=$2 AND (%s IS NULL OR %s='')`, col, col, col)
	res, err := dbx.ExecContext(ctx, q, streamID, groundID)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return streamID, nil
	}
	// Lost the race (or id already set): read back the winner.
	g, err := GetGround(ctx, dbx, groundID)
	if err != nil {
		return "", fmt.Errorf("reread ground after contended stream write: %w", err)
	}
	winner, err := g.StreamIDForRole(role)
	if err != nil {
		return "", err
	}
	if winner == "" {
		return "", fmt.Errorf("stream id write for ground %s role %s affected no rows and none is set", groundID, role)
	}
	return winner, nil
}

// SetKV upserts a kv row, used for job heartbeats and runtime status.
func SetKV(ctx context.Context, dbx *sql.DB, key, value string) error {
	_, err := dbx.ExecContext(ctx, `INSERT INTO kv (key,value,updated_at) VALUES ($1,$2,NOW())
		ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`, key, value)
	return err
}

// GetKV returns the kv value for key, or empty string when absent.
func GetKV(ctx context.Context, dbx *sql.DB, key string) (string, error) {
	var v string
	err := dbx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}
