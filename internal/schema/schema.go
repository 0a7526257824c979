// Package schema is the single declaration of every entity table and its
// secondary indexes. Repositories reference tables through these constants;
// the store is opened once with All() at startup.
package schema

import "github.com/wardkit/wardkit/internal/platform/store"

// Table names.
const (
	Users               = "users"
	Sessions            = "sessions"
	Roles               = "roles"
	Permissions         = "permissions"
	OperationLogs       = "operationLogs"
	Wards               = "wards"
	Rooms               = "rooms"
	Beds                = "beds"
	Patients            = "patients"
	RoomEquipment       = "roomEquipment"
	CleaningRecords     = "cleaningRecords"
	WardStaff           = "wardStaff"
	BedAssignments      = "bedAssignments"
	BedReleases         = "bedReleases"
	MedicalRecords      = "medicalRecords"
	VitalSigns          = "vitalSigns"
	NursingRecords      = "nursingRecords"
	MedicationRecords   = "medicationRecords"
	MedicationReminders = "medicationReminders"
	Orders              = "orders"
	OrderExecutions     = "orderExecutions"
)

// All returns every table declaration. Index lists mirror the fields the
// repositories query by equality or range.
func All() []store.Schema {
	return []store.Schema{
		{Name: Users, Indexes: []string{"username", "status"}},
		{Name: Sessions, Indexes: []string{"userId", "token", "expiresAt"}},
		{Name: Roles, Indexes: []string{"code", "status"}},
		{Name: Permissions, Indexes: []string{"code", "type", "resource"}},
		{Name: OperationLogs, Indexes: []string{"userId", "action", "createdAt"}},

		{Name: Wards, Indexes: []string{"code", "department", "status"}},
		{Name: Rooms, Indexes: []string{"wardId", "code", "status"}},
		{Name: Beds, Indexes: []string{"roomId", "code", "status"}},
		{Name: Patients, Indexes: []string{"bedId", "roomId", "name", "gender", "age"}},
		{Name: RoomEquipment, Indexes: []string{"roomId", "code", "status"}},
		{Name: CleaningRecords, Indexes: []string{"roomId", "staffId", "cleanedAt"}},
		{Name: WardStaff, Indexes: []string{"wardId", "userId", "role", "isActive"}},
		{Name: BedAssignments, Indexes: []string{"bedId", "patientId", "admissionDate", "assignmentType", "note"}},
		{Name: BedReleases, Indexes: []string{"bedId", "releasedAt", "previousPatientId"}},

		{Name: MedicalRecords, Indexes: []string{"patientId", "createdAt"}},
		{Name: VitalSigns, Indexes: []string{"patientId", "recordedAt"}},
		{Name: NursingRecords, Indexes: []string{"patientId", "performedAt"}},
		{Name: MedicationRecords, Indexes: []string{"patientId", "administeredAt"}},
		{Name: MedicationReminders, Indexes: []string{"patientId", "medicationRecordId", "reminderTime", "status"}},
		{Name: Orders, Indexes: []string{"patientId", "type", "status", "createdAt"}},
		{Name: OrderExecutions, Indexes: []string{"orderId", "executedAt", "status", "abnormal", "executionTime"}},
	}
}
