package ward

import "time"

// WardStatus is the lifecycle state of a ward.
type WardStatus string

const (
	WardActive   WardStatus = "active"
	WardInactive WardStatus = "inactive"
)

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomDisabled    RoomStatus = "disabled"
)

// RoomType classifies a room.
type RoomType string

const (
	RoomNormal    RoomType = "normal"
	RoomIntensive RoomType = "intensive"
	RoomIsolation RoomType = "isolation"
)

// GenderRequirement restricts who a room admits.
type GenderRequirement string

const (
	GenderMale   GenderRequirement = "male"
	GenderFemale GenderRequirement = "female"
	GenderAny    GenderRequirement = "any"
)

// BedStatus is the bed lifecycle state. Transitions are gated by the
// service: occupied is only reachable through Assign and only leavable
// through Release.
type BedStatus string

const (
	BedAvailable    BedStatus = "available"
	BedOccupied     BedStatus = "occupied"
	BedMaintenance  BedStatus = "maintenance"
	BedCleaning     BedStatus = "cleaning"
	BedOutOfService BedStatus = "out_of_service"
)

// BedType classifies a bed.
type BedType string

const (
	BedNormal    BedType = "normal"
	BedIntensive BedType = "intensive"
	BedSpecial   BedType = "special"
)

// CleaningType classifies a cleaning pass.
type CleaningType string

const (
	CleaningRoutine   CleaningType = "routine"
	CleaningDeep      CleaningType = "deep"
	CleaningEmergency CleaningType = "emergency"
)

// StaffRole is a ward staff member's function.
type StaffRole string

const (
	StaffNurse   StaffRole = "nurse"
	StaffDoctor  StaffRole = "doctor"
	StaffManager StaffRole = "manager"
)

// Ward is a hospital ward. TotalRooms and TotalBeds are denormalized
// aggregates recomputed from the ward's rooms on every room mutation; they
// are never writable directly.
type Ward struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Department  string     `json:"department"`
	Floor       int        `json:"floor"`
	Building    string     `json:"building"`
	Description string     `json:"description,omitempty"`
	Status      WardStatus `json:"status"`
	TotalRooms  int        `json:"totalRooms"`
	TotalBeds   int        `json:"totalBeds"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (w *Ward) SetID(id int64) { w.ID = id }

// Room belongs to a ward. Capacity feeds the ward's TotalBeds aggregate.
type Room struct {
	ID            int64             `json:"id"`
	WardID        int64             `json:"wardId"`
	Code          string            `json:"code"`
	Name          string            `json:"name"`
	Type          RoomType          `json:"type"`
	Capacity      int               `json:"capacity"`
	Status        RoomStatus        `json:"status"`
	Gender        GenderRequirement `json:"gender"`
	HasOxygen     bool              `json:"hasOxygen"`
	HasToilet     bool              `json:"hasToilet"`
	LastCleanedAt time.Time         `json:"lastCleanedAt"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (r *Room) SetID(id int64) { r.ID = id }

// MaintenanceInfo describes why a bed is under maintenance.
type MaintenanceInfo struct {
	Reason            string `json:"reason"`
	EstimatedDuration int    `json:"estimatedDuration"`
}

// Bed belongs to a room and optionally holds one patient. PatientID is the
// authoritative pointer for occupancy; the patient's BedID/RoomID are kept
// consistent with it by Assign and Release, never independently.
type Bed struct {
	ID             int64            `json:"id"`
	RoomID         int64            `json:"roomId"`
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	Status         BedStatus        `json:"status"`
	Type           BedType          `json:"type"`
	PatientID      *int64           `json:"patientId,omitempty"`
	LastAssignedAt *time.Time       `json:"lastAssignedAt,omitempty"`
	LastReleasedAt *time.Time       `json:"lastReleasedAt,omitempty"`
	Maintenance    *MaintenanceInfo `json:"maintenanceInfo,omitempty"`
	CleaningNote   string           `json:"cleaningNote,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

func (b *Bed) SetID(id int64) { b.ID = id }

// RoomEquipment is a piece of equipment installed in a room.
type RoomEquipment struct {
	ID               int64      `json:"id"`
	RoomID           int64      `json:"roomId"`
	Name             string     `json:"name"`
	Code             string     `json:"code"`
	Status           string     `json:"status"`
	LastMaintainedAt *time.Time `json:"lastMaintainedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (e *RoomEquipment) SetID(id int64) { e.ID = id }

// CleaningRecord is one cleaning pass over a room.
type CleaningRecord struct {
	ID        int64        `json:"id"`
	RoomID    int64        `json:"roomId"`
	StaffID   int64        `json:"staffId"`
	CleanedAt time.Time    `json:"cleanedAt"`
	Type      CleaningType `json:"type"`
	Remarks   string       `json:"remarks,omitempty"`
}

func (c *CleaningRecord) SetID(id int64) { c.ID = id }

// WardStaff links a user to a ward.
type WardStaff struct {
	ID       int64     `json:"id"`
	WardID   int64     `json:"wardId"`
	UserID   int64     `json:"userId"`
	Role     StaffRole `json:"role"`
	Shift    string    `json:"shift,omitempty"`
	IsActive bool      `json:"isActive"`
}

func (s *WardStaff) SetID(id int64) { s.ID = id }

// BedAssignment is the append-only audit row written when a bed is assigned.
type BedAssignment struct {
	ID             int64     `json:"id"`
	BedID          int64     `json:"bedId"`
	PatientID      int64     `json:"patientId"`
	AdmissionDate  time.Time `json:"admissionDate"`
	AssignmentType string    `json:"assignmentType"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (a *BedAssignment) SetID(id int64) { a.ID = id }

// BedRelease is the append-only audit row written when a bed is released.
// PreviousPatientID is nil when no occupant was recorded.
type BedRelease struct {
	ID                int64     `json:"id"`
	BedID             int64     `json:"bedId"`
	ReleasedAt        time.Time `json:"releasedAt"`
	PreviousPatientID *int64    `json:"previousPatientId,omitempty"`
}

func (r *BedRelease) SetID(id int64) { r.ID = id }

// WardUpdate enumerates the directly mutable ward fields. The aggregate
// counters are deliberately absent.
type WardUpdate struct {
	Name        *string     `json:"name,omitempty"`
	Department  *string     `json:"department,omitempty"`
	Floor       *int        `json:"floor,omitempty"`
	Building    *string     `json:"building,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *WardStatus `json:"status,omitempty"`
}

// RoomUpdate enumerates the directly mutable room fields. A capacity change
// triggers a ward aggregate recompute.
type RoomUpdate struct {
	Name      *string            `json:"name,omitempty"`
	Type      *RoomType          `json:"type,omitempty"`
	Capacity  *int               `json:"capacity,omitempty"`
	Status    *RoomStatus        `json:"status,omitempty"`
	Gender    *GenderRequirement `json:"gender,omitempty"`
	HasOxygen *bool              `json:"hasOxygen,omitempty"`
	HasToilet *bool              `json:"hasToilet,omitempty"`
}

// BedUpdate enumerates the directly mutable bed fields. Status and
// PatientID are absent: occupancy moves only through Assign and Release,
// and non-occupancy status moves through UpdateBedStatus.
type BedUpdate struct {
	Name *string  `json:"name,omitempty"`
	Code *string  `json:"code,omitempty"`
	Type *BedType `json:"type,omitempty"`
}

// WardFilter composes the ward query predicates.
type WardFilter struct {
	Status     WardStatus
	Department string
	Floor      int
	Building   string
	Keyword    string
}

// RoomFilter composes the room query predicates. Rooms are always scoped to
// one ward.
type RoomFilter struct {
	Type      RoomType
	Status    RoomStatus
	Gender    GenderRequirement
	HasOxygen *bool
	HasToilet *bool
	Keyword   string
}

// AssignRequest carries the bed assignment parameters.
type AssignRequest struct {
	PatientID      int64     `json:"patientId"`
	AdmissionDate  time.Time `json:"admissionDate"`
	AssignmentType string    `json:"assignmentType"`
	Note           string    `json:"note,omitempty"`
}
