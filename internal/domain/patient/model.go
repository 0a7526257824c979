package patient

import "time"

// Status is the patient admission state.
type Status string

const (
	Admitted    Status = "admitted"
	Discharged  Status = "discharged"
	Transferred Status = "transferred"
)

// Gender of a patient.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Patient occupies at most one bed. BedID and RoomID mirror the owning
// bed's PatientID pointer and are only written by the bed assign/release
// operations, never directly.
type Patient struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Gender        Gender    `json:"gender"`
	Age           int       `json:"age"`
	IDCard        string    `json:"idCard,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	AdmissionDate time.Time `json:"admissionDate"`
	Diagnosis     string    `json:"diagnosis,omitempty"`
	Status        Status    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	BedID         *int64    `json:"bedId,omitempty"`
	RoomID        *int64    `json:"roomId,omitempty"`
	ContactName   string    `json:"contactName,omitempty"`
	ContactPhone  string    `json:"contactPhone,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p *Patient) SetID(id int64) { p.ID = id }

// MedicalRecordType classifies a medical record entry.
type MedicalRecordType string

const (
	RecordAdmission MedicalRecordType = "admission"
	RecordProgress  MedicalRecordType = "progress"
	RecordDischarge MedicalRecordType = "discharge"
)

// MedicalRecord is one chart entry for a patient.
type MedicalRecord struct {
	ID        int64             `json:"id"`
	PatientID int64             `json:"patientId"`
	DoctorID  int64             `json:"doctorId"`
	Type      MedicalRecordType `json:"type"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func (m *MedicalRecord) SetID(id int64) { m.ID = id }

// VitalSigns is one observation set for a patient.
type VitalSigns struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"patientId"`
	RecorderID  int64     `json:"recorderId"`
	Temperature float64   `json:"temperature"`
	Pulse       int       `json:"pulse"`
	Respiration int       `json:"respiration"`
	SystolicBP  int       `json:"systolicBp"`
	DiastolicBP int       `json:"diastolicBp"`
	SpO2        int       `json:"spo2,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

func (v *VitalSigns) SetID(id int64) { v.ID = id }

// NursingType classifies a nursing intervention.
type NursingType string

const (
	NursingGeneral  NursingType = "general"
	NursingTurnOver NursingType = "turn_over"
	NursingWound    NursingType = "wound_care"
)

// NursingRecord is one nursing intervention for a patient.
type NursingRecord struct {
	ID          int64       `json:"id"`
	PatientID   int64       `json:"patientId"`
	NurseID     int64       `json:"nurseId"`
	Type        NursingType `json:"type"`
	Description string      `json:"description"`
	PerformedAt time.Time   `json:"performedAt"`
}

func (n *NursingRecord) SetID(id int64) { n.ID = id }

// Update enumerates the directly mutable patient fields. BedID, RoomID and
// Status move through dedicated operations.
type Update struct {
	Name         *string `json:"name,omitempty"`
	Age          *int    `json:"age,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Diagnosis    *string `json:"diagnosis,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	ContactName  *string `json:"contactName,omitempty"`
	ContactPhone *string `json:"contactPhone,omitempty"`
}

// Filter composes the patient query predicates.
type Filter struct {
	Status  Status
	Gender  Gender
	RoomID  int64
	MinAge  int
	MaxAge  int
	Keyword string
}
