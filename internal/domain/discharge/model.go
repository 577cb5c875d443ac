package discharge

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
)

type EpisodeStatus string

const (
	EpisodeAdmitted   EpisodeStatus = "admitted"
	EpisodeDischarged EpisodeStatus = "discharged"
)

// Episode is one admission of a patient, closed by a discharge.
type Episode struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	PatientID    uuid.UUID      `db:"patient_id" json:"patient_id"`
	Status       EpisodeStatus  `db:"status" json:"status"`
	AdmittedOn   calendar.Date  `db:"admitted_on" json:"admitted_on"`
	DischargedOn *calendar.Date `db:"discharged_on" json:"discharged_on,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// maxCharge is the largest value a NUMERIC(10,2) column holds.
var maxCharge = decimal.RequireFromString("99999999.99")

// Charges are the itemized amounts of a bill.
type Charges struct {
	Room      decimal.Decimal `json:"room"`
	Medicine  decimal.Decimal `json:"medicine"`
	DoctorFee decimal.Decimal `json:"doctor_fee"`
	Other     decimal.Decimal `json:"other"`
}

func (c Charges) Total() decimal.Decimal {
	return c.Room.Add(c.Medicine).Add(c.DoctorFee).Add(c.Other)
}

// Validate requires every amount and the total to be non-negative, in cents
// and within column range.
func (c Charges) Validate() error {
	items := []struct {
		name  string
		value decimal.Decimal
	}{
		{"room", c.Room},
		{"medicine", c.Medicine},
		{"doctor_fee", c.DoctorFee},
		{"other", c.Other},
		{"total", c.Total()},
	}
	for _, it := range items {
		if it.value.IsNegative() {
			return fmt.Errorf("%s charge must not be negative: %w", it.name, apperr.ErrValidation)
		}
		if !it.value.Equal(it.value.Round(2)) {
			return fmt.Errorf("%s charge has more than two decimal places: %w", it.name, apperr.ErrValidation)
		}
		if it.value.GreaterThan(maxCharge) {
			return fmt.Errorf("%s charge exceeds %s: %w", it.name, maxCharge, apperr.ErrValidation)
		}
	}
	return nil
}

// Details is the bill that closes an episode.
type Details struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	PatientID     uuid.UUID       `db:"patient_id" json:"patient_id"`
	EpisodeID     uuid.UUID       `db:"episode_id" json:"episode_id"`
	DoctorID      *uuid.UUID      `db:"doctor_id" json:"doctor_id,omitempty"`
	DischargedBy  uuid.UUID       `db:"discharged_by" json:"discharged_by"`
	AdmissionDate calendar.Date   `db:"admission_date" json:"admission_date"`
	DischargeDate calendar.Date   `db:"discharge_date" json:"discharge_date"`
	DaysSpent     int             `db:"days_spent" json:"days_spent"`
	RoomCharge    decimal.Decimal `db:"room_charge" json:"room_charge"`
	MedicineCost  decimal.Decimal `db:"medicine_cost" json:"medicine_cost"`
	DoctorFee     decimal.Decimal `db:"doctor_fee" json:"doctor_fee"`
	OtherCharge   decimal.Decimal `db:"other_charge" json:"other_charge"`
	Total         decimal.Decimal `db:"total" json:"total"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// DischargeRequest closes the patient's open episode. AdmissionDate may be
// left empty when an episode is open; it then defaults to the episode's
// admission day.
type DischargeRequest struct {
	PatientID     uuid.UUID     `json:"patient_id"`
	AdmissionDate calendar.Date `json:"admission_date"`
	DischargeDate calendar.Date `json:"discharge_date"`
	Charges       Charges       `json:"charges"`
}
