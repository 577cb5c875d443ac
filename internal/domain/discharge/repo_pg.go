package discharge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
	"github.com/MadScie254/hospitalmanagement/internal/platform/db"
)

const (
	openEpisodeConstraint = "episodes_one_open_per_patient"
	episodeBillConstraint = "discharge_details_episode_key"
)

// -- Episode Repository --

type episodeRepoPG struct {
	pool *pgxpool.Pool
}

func NewEpisodeRepo(pool *pgxpool.Pool) EpisodeRepository {
	return &episodeRepoPG{pool: pool}
}

func (r *episodeRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const episodeCols = `id, patient_id, status, admitted_on, discharged_on, created_at, updated_at`

func (r *episodeRepoPG) Create(ctx context.Context, e *Episode) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = EpisodeAdmitted
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO episodes (id, patient_id, status, admitted_on, discharged_on)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, string(e.Status), e.AdmittedOn.Time(), calendar.TimePtr(e.DischargedOn),
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if db.IsUniqueViolation(err, openEpisodeConstraint) {
		return fmt.Errorf("patient %s already admitted: %w", e.PatientID, apperr.ErrInvalidStateTransition)
	}
	return err
}

func (r *episodeRepoPG) Latest(ctx context.Context, patientID uuid.UUID) (*Episode, error) {
	return r.latest(ctx, patientID, "")
}

func (r *episodeRepoPG) LatestForUpdate(ctx context.Context, patientID uuid.UUID) (*Episode, error) {
	return r.latest(ctx, patientID, " FOR UPDATE")
}

func (r *episodeRepoPG) latest(ctx context.Context, patientID uuid.UUID, lock string) (*Episode, error) {
	e, err := scanEpisode(r.conn(ctx).QueryRow(ctx, `
		SELECT `+episodeCols+` FROM episodes
		WHERE patient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`+lock, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("episode of patient %s: %w", patientID, apperr.ErrNotFound)
	}
	return e, err
}

func (r *episodeRepoPG) MarkDischarged(ctx context.Context, id uuid.UUID, admittedOn, dischargedOn calendar.Date) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE episodes
		SET status = 'discharged', admitted_on = $2, discharged_on = $3, updated_at = $4
		WHERE id = $1 AND status = 'admitted'`,
		id, admittedOn.Time(), dischargedOn.Time(), time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanEpisode(row pgx.Row) (*Episode, error) {
	var e Episode
	var status string
	var admitted time.Time
	var discharged *time.Time
	if err := row.Scan(&e.ID, &e.PatientID, &status, &admitted, &discharged, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Status = EpisodeStatus(status)
	e.AdmittedOn = calendar.FromTime(admitted)
	e.DischargedOn = calendar.Ptr(discharged)
	return &e, nil
}

// -- Discharge Repository --

type dischargeRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &dischargeRepoPG{pool: pool}
}

func (r *dischargeRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const detailsCols = `id, patient_id, episode_id, doctor_id, discharged_by, admission_date, discharge_date,
	days_spent, room_charge, medicine_cost, doctor_fee, other_charge, total, created_at`

func (r *dischargeRepoPG) Create(ctx context.Context, d *Details) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO discharge_details (
			id, patient_id, episode_id, doctor_id, discharged_by, admission_date, discharge_date,
			days_spent, room_charge, medicine_cost, doctor_fee, other_charge, total
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`,
		d.ID, d.PatientID, d.EpisodeID, d.DoctorID, d.DischargedBy, d.AdmissionDate.Time(), d.DischargeDate.Time(),
		d.DaysSpent, d.RoomCharge, d.MedicineCost, d.DoctorFee, d.OtherCharge, d.Total,
	).Scan(&d.CreatedAt)
	if db.IsUniqueViolation(err, episodeBillConstraint) {
		return fmt.Errorf("episode %s already billed: %w", d.EpisodeID, apperr.ErrDuplicateDischarge)
	}
	return err
}

func (r *dischargeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Details, error) {
	d, err := scanDetails(r.conn(ctx).QueryRow(ctx, `SELECT `+detailsCols+` FROM discharge_details WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("discharge %s: %w", id, apperr.ErrNotFound)
	}
	return d, err
}

func (r *dischargeRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Details, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM discharge_details WHERE patient_id = $1`, patientID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+detailsCols+` FROM discharge_details
		WHERE patient_id = $1
		ORDER BY discharge_date DESC, created_at DESC
		LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectDetails(rows, total)
}

func (r *dischargeRepoPG) List(ctx context.Context, limit, offset int) ([]*Details, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+detailsCols+` FROM discharge_details
		ORDER BY discharge_date DESC, created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectDetails(rows, total)
}

func (r *dischargeRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM discharge_details`).Scan(&n)
	return n, err
}

func collectDetails(rows pgx.Rows, total int) ([]*Details, int, error) {
	var items []*Details
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func scanDetails(row pgx.Row) (*Details, error) {
	var d Details
	var admitted, discharged time.Time
	err := row.Scan(&d.ID, &d.PatientID, &d.EpisodeID, &d.DoctorID, &d.DischargedBy, &admitted, &discharged,
		&d.DaysSpent, &d.RoomCharge, &d.MedicineCost, &d.DoctorFee, &d.OtherCharge, &d.Total, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.AdmissionDate = calendar.FromTime(admitted)
	d.DischargeDate = calendar.FromTime(discharged)
	return &d, nil
}
