package medication

import "time"

// Frequency is the administration frequency code. PRN and ONCE schedules
// are caller-driven; the scheduler generates no times for them.
type Frequency string

const (
	Once  Frequency = "ONCE"
	Daily Frequency = "DAILY"
	BID   Frequency = "BID"
	TID   Frequency = "TID"
	QID   Frequency = "QID"
	PRN   Frequency = "PRN"
)

// Route is the administration route.
type Route string

const (
	Oral       Route = "ORAL"
	Injection  Route = "INJECTION"
	Topical    Route = "TOPICAL"
	Inhalation Route = "INHALATION"
)

// RecordStatus is the medication record lifecycle state.
type RecordStatus string

const (
	Active       RecordStatus = "ACTIVE"
	Completed    RecordStatus = "COMPLETED"
	Discontinued RecordStatus = "DISCONTINUED"
)

// ReminderStatus is the reminder lifecycle state.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "PENDING"
	ReminderCompleted ReminderStatus = "COMPLETED"
	ReminderMissed    ReminderStatus = "MISSED"
	ReminderCancelled ReminderStatus = "CANCELLED"
)

// Record is one medication prescribed to a patient.
type Record struct {
	ID             int64        `json:"id"`
	PatientID      int64        `json:"patientId"`
	MedicationName string       `json:"medicationName"`
	Dosage         string       `json:"dosage"`
	Frequency      Frequency    `json:"frequency"`
	Route          Route        `json:"route"`
	StartDate      time.Time    `json:"startDate"`
	EndDate        *time.Time   `json:"endDate,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	AdministeredBy string       `json:"administeredBy,omitempty"`
	AdministeredAt time.Time    `json:"administeredAt"`
	Status         RecordStatus `json:"status"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

func (r *Record) SetID(id int64) { r.ID = id }

// Reminder is one scheduled administration notification, generated in bulk
// from the parent record's frequency and validity window.
type Reminder struct {
	ID                 int64          `json:"id"`
	PatientID          int64          `json:"patientId"`
	MedicationRecordID int64          `json:"medicationRecordId"`
	ReminderTime       time.Time      `json:"reminderTime"`
	Status             ReminderStatus `json:"status"`
	Notes              string         `json:"notes,omitempty"`
	MedicationName     string         `json:"medicationName,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
}

func (r *Reminder) SetID(id int64) { r.ID = id }

// MissedHook is notified after a reminder transitions to MISSED. The
// follow-up clinical action lives outside this package.
type MissedHook interface {
	MedicationMissed(reminder Reminder)
}
