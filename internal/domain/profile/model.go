package profile

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MadScie254/hospitalmanagement/internal/domain/account"
	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
)

// Status is the approval state of a doctor or patient registration.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown approval status %q: %w", s, apperr.ErrValidation)
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

var Departments = []string{
	"Cardiologist",
	"Dermatologists",
	"Emergency Medicine Specialists",
	"Allergists/Immunologists",
	"Anesthesiologists",
	"Colon and Rectal Surgeons",
	"Endocrinologists",
	"Gastroenterologists",
	"Neurologists",
	"Oncologists",
	"Ophthalmologists",
	"Orthopedic Surgeons",
	"Pediatricians",
	"Psychiatrists",
	"Radiologists",
	"Urologists",
}

const DefaultDepartment = "Cardiologist"

var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

func ValidDepartment(d string) bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

func ValidBloodGroup(g string) bool {
	if g == "" {
		return true
	}
	for _, known := range BloodGroups {
		if g == known {
			return true
		}
	}
	return false
}

func ValidatePhone(field, phone string) error {
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("%s must look like +999999999 with 9 to 15 digits: %w", field, apperr.ErrValidation)
	}
	return nil
}

type Doctor struct {
	ID         uuid.UUID `db:"id" json:"id"`
	AccountID  uuid.UUID `db:"account_id" json:"account_id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Department string    `db:"department" json:"department"`
	Mobile     string    `db:"mobile" json:"mobile"`
	Address    string    `db:"address" json:"address"`
	Status     Status    `db:"approval_status" json:"approval_status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

func (d *Doctor) Name() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

func (d *Doctor) Approved() bool { return d.Status == StatusApproved }

type Patient struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	AccountID        uuid.UUID      `db:"account_id" json:"account_id"`
	FirstName        string         `db:"first_name" json:"first_name"`
	LastName         string         `db:"last_name" json:"last_name"`
	AssignedDoctorID *uuid.UUID     `db:"assigned_doctor_id" json:"assigned_doctor_id,omitempty"`
	BloodGroup       string         `db:"blood_group" json:"blood_group,omitempty"`
	DateOfBirth      *calendar.Date `db:"date_of_birth" json:"date_of_birth,omitempty"`
	EmergencyContact string         `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Mobile           string         `db:"mobile" json:"mobile"`
	Address          string         `db:"address" json:"address"`
	Symptoms         string         `db:"symptoms" json:"symptoms"`
	Status           Status         `db:"approval_status" json:"approval_status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

func (p *Patient) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) Approved() bool { return p.Status == StatusApproved }

// Age in whole years on the given day, nil when the birth date is unknown.
func (p *Patient) Age(today calendar.Date) *int {
	if p.DateOfBirth == nil || p.DateOfBirth.IsZero() {
		return nil
	}
	dob, now := p.DateOfBirth.Time(), today.Time()
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return &age
}

type RegisterDoctorRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Department string `json:"department"`
	Mobile     string `json:"mobile"`
	Address    string `json:"address"`
}

func (r *RegisterDoctorRequest) Validate() error {
	if err := validateName(r.FirstName, r.LastName); err != nil {
		return err
	}
	if r.Department == "" {
		r.Department = DefaultDepartment
	}
	if !ValidDepartment(r.Department) {
		return fmt.Errorf("unknown department %q: %w", r.Department, apperr.ErrValidation)
	}
	if err := ValidatePhone("mobile", r.Mobile); err != nil {
		return err
	}
	if len(r.Address) > 255 {
		return fmt.Errorf("address is too long: %w", apperr.ErrValidation)
	}
	return nil
}

type RegisterPatientRequest struct {
	Username         string         `json:"username"`
	Password         string         `json:"password"`
	FirstName        string         `json:"first_name"`
	LastName         string         `json:"last_name"`
	AssignedDoctorID *uuid.UUID     `json:"assigned_doctor_id"`
	BloodGroup       string         `json:"blood_group"`
	DateOfBirth      *calendar.Date `json:"date_of_birth"`
	EmergencyContact string         `json:"emergency_contact"`
	Mobile           string         `json:"mobile"`
	Address          string         `json:"address"`
	Symptoms         string         `json:"symptoms"`
}

func (r *RegisterPatientRequest) Validate(today calendar.Date) error {
	if err := validateName(r.FirstName, r.LastName); err != nil {
		return err
	}
	if err := ValidatePhone("mobile", r.Mobile); err != nil {
		return err
	}
	if r.EmergencyContact != "" {
		if err := ValidatePhone("emergency_contact", r.EmergencyContact); err != nil {
			return err
		}
	}
	if !ValidBloodGroup(r.BloodGroup) {
		return fmt.Errorf("unknown blood group %q: %w", r.BloodGroup, apperr.ErrValidation)
	}
	if r.DateOfBirth != nil && r.DateOfBirth.After(today) {
		return fmt.Errorf("date of birth %s is in the future: %w", r.DateOfBirth, apperr.ErrInvalidDate)
	}
	if strings.TrimSpace(r.Symptoms) == "" {
		return fmt.Errorf("symptoms are required: %w", apperr.ErrValidation)
	}
	if len(r.Symptoms) > 255 || len(r.Address) > 255 {
		return fmt.Errorf("symptoms and address are limited to 255 characters: %w", apperr.ErrValidation)
	}
	return nil
}

type RegisterAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AssignDoctorRequest struct {
	DoctorID uuid.UUID `json:"doctor_id"`
}

// Me is the caller's account with whichever profile it owns.
type Me struct {
	Account *account.Account `json:"account"`
	Doctor  *Doctor          `json:"doctor,omitempty"`
	Patient *Patient         `json:"patient,omitempty"`
	Age     *int             `json:"age,omitempty"`
}

func validateName(first, last string) error {
	if strings.TrimSpace(first) == "" || strings.TrimSpace(last) == "" {
		return fmt.Errorf("first_name and last_name are required: %w", apperr.ErrValidation)
	}
	if len(first) > 100 || len(last) > 100 {
		return fmt.Errorf("names are limited to 100 characters: %w", apperr.ErrValidation)
	}
	return nil
}
