package order

import "time"

// Type distinguishes standing orders from one-shot orders.
type Type string

const (
	LongTerm  Type = "long_term"
	Temporary Type = "temporary"
)

// Status is the order lifecycle state. Legal transitions:
// pending -> approved | rejected, approved -> executing | stopped,
// executing -> completed | stopped.
type Status string

const (
	Pending   Status = "pending"
	Approved  Status = "approved"
	Executing Status = "executing"
	Completed Status = "completed"
	Stopped   Status = "stopped"
	Rejected  Status = "rejected"
)

// Abnormal flags an execution outcome.
type Abnormal string

const (
	Normal     Abnormal = "normal"
	AbnormalEx Abnormal = "abnormal"
)

// Severity grades a reported exception. High severity stops the parent
// order.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Order is a doctor's instruction for one patient.
type Order struct {
	ID          int64      `json:"id"`
	PatientID   int64      `json:"patientId"`
	DoctorID    int64      `json:"doctorId"`
	DoctorName  string     `json:"doctorName,omitempty"`
	Type        Type       `json:"type"`
	Status      Status     `json:"status"`
	Content     string     `json:"content"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Frequency   string     `json:"frequency,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	ReviewerID  *int64     `json:"reviewerId,omitempty"`
	ReviewTime  *time.Time `json:"reviewTime,omitempty"`
	ReviewNotes string     `json:"reviewNotes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (o *Order) SetID(id int64) { o.ID = id }

// Execution is one administration of an order by a nurse.
type Execution struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"orderId"`
	NurseID       int64     `json:"nurseId"`
	ExecutionTime time.Time `json:"executionTime"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	Abnormal      Abnormal  `json:"abnormal"`
	AbnormalDesc  string    `json:"abnormalDesc,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (e *Execution) SetID(id int64) { e.ID = id }

// Filter composes the order query predicates.
type Filter struct {
	PatientID int64
	Type      Type
	Statuses  []Status
	Keyword   string
}
