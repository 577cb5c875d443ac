package profile

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

// -- Doctor Repository --

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepo(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const doctorCols = `id, account_id, first_name, last_name, department, mobile, address,
	approval_status, created_at, updated_at`

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, account_id, first_name, last_name, department, mobile, address, approval_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		d.ID, d.AccountID, d.FirstName, d.LastName, d.Department, d.Mobile, d.Address, string(d.Status),
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("doctor %s: %w", id, apperr.ErrNotFound)
	}
	return d, err
}

func (r *doctorRepoPG) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE account_id = $1`, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("doctor for account %s: %w", accountID, apperr.ErrNotFound)
	}
	return d, err
}

func (r *doctorRepoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctors WHERE ($1::text = '' OR approval_status = $1::text)`, string(status),
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+doctorCols+` FROM doctors
		WHERE ($1::text = '' OR approval_status = $1::text)
		ORDER BY last_name, first_name, id
		LIMIT $2 OFFSET $3`,
		string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var doctors []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	return doctors, total, rows.Err()
}

func (r *doctorRepoPG) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET approval_status = $3, updated_at = $4
		WHERE id = $1 AND approval_status = $2`,
		id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *doctorRepoPG) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return countByStatus(ctx, r.conn(ctx), "doctors")
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var status string
	err := row.Scan(&d.ID, &d.AccountID, &d.FirstName, &d.LastName, &d.Department, &d.Mobile, &d.Address,
		&status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Status = Status(status)
	return &d, nil
}

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const patientCols = `id, account_id, first_name, last_name, assigned_doctor_id, blood_group, date_of_birth,
	emergency_contact, mobile, address, symptoms, approval_status, created_at, updated_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (
			id, account_id, first_name, last_name, assigned_doctor_id, blood_group, date_of_birth,
			emergency_contact, mobile, address, symptoms, approval_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		p.ID, p.AccountID, p.FirstName, p.LastName, p.AssignedDoctorID, p.BloodGroup, calendar.TimePtr(p.DateOfBirth),
		p.EmergencyContact, p.Mobile, p.Address, p.Symptoms, string(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, apperr.ErrNotFound)
	}
	return p, err
}

func (r *patientRepoPG) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE account_id = $1`, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("patient for account %s: %w", accountID, apperr.ErrNotFound)
	}
	return p, err
}

func (r *patientRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, apperr.ErrNotFound)
	}
	return p, err
}

func (r *patientRepoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE ($1::text = '' OR approval_status = $1::text)`, string(status),
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE ($1::text = '' OR approval_status = $1::text)
		ORDER BY last_name, first_name, id
		LIMIT $2 OFFSET $3`,
		string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func (r *patientRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, status Status, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM patients
		WHERE assigned_doctor_id = $1 AND ($2::text = '' OR approval_status = $2::text)`,
		doctorID, string(status),
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE assigned_doctor_id = $1 AND ($2::text = '' OR approval_status = $2::text)
		ORDER BY last_name, first_name, id
		LIMIT $3 OFFSET $4`,
		doctorID, string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func (r *patientRepoPG) SetAssignedDoctor(ctx context.Context, id, doctorID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET assigned_doctor_id = $2, updated_at = $3 WHERE id = $1`,
		id, doctorID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *patientRepoPG) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET approval_status = $3, updated_at = $4
		WHERE id = $1 AND approval_status = $2`,
		id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *patientRepoPG) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return countByStatus(ctx, r.conn(ctx), "patients")
}

func collectPatients(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var status string
	var dob *time.Time
	err := row.Scan(&p.ID, &p.AccountID, &p.FirstName, &p.LastName, &p.AssignedDoctorID, &p.BloodGroup, &dob,
		&p.EmergencyContact, &p.Mobile, &p.Address, &p.Symptoms, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = Status(status)
	p.DateOfBirth = calendar.Ptr(dob)
	return &p, nil
}

// table is one of the two fixed profile table names, never user input.
func countByStatus(ctx context.Context, q db.Querier, table string) (map[Status]int, error) {
	rows, err := q.Query(ctx, `SELECT approval_status, COUNT(*) FROM `+table+` GROUP BY approval_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[Status]int{StatusPending: 0, StatusApproved: 0, StatusRejected: 0}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}
