package enummeta

// Defaults returns the registry for the built-in status enums. Labels and
// colors mirror what the ward client renders.
func Defaults() *Registry {
	return New(map[string]map[string]Meta{
		"bedStatus": {
			"available":      {Value: "available", Label: "Available", Color: "green", Sort: 1},
			"occupied":       {Value: "occupied", Label: "Occupied", Color: "red", Sort: 2},
			"cleaning":       {Value: "cleaning", Label: "Cleaning", Color: "orange", Sort: 3},
			"maintenance":    {Value: "maintenance", Label: "Maintenance", Color: "gray", Sort: 4},
			"out_of_service": {Value: "out_of_service", Label: "Out of Service", Color: "gray", Tone: "muted", Sort: 5},
		},
		"roomStatus": {
			"available":   {Value: "available", Label: "Available", Color: "green", Sort: 1},
			"full":        {Value: "full", Label: "Full", Color: "red", Sort: 2},
			"maintenance": {Value: "maintenance", Label: "Maintenance", Color: "gray", Sort: 3},
		},
		"patientStatus": {
			"admitted":    {Value: "admitted", Label: "Admitted", Color: "blue", Sort: 1},
			"discharged":  {Value: "discharged", Label: "Discharged", Color: "gray", Sort: 2},
			"transferred": {Value: "transferred", Label: "Transferred", Color: "orange", Sort: 3},
		},
		"orderStatus": {
			"pending":   {Value: "pending", Label: "Pending Review", Color: "orange", Sort: 1},
			"approved":  {Value: "approved", Label: "Approved", Color: "blue", Sort: 2},
			"executing": {Value: "executing", Label: "Executing", Color: "cyan", Sort: 3},
			"completed": {Value: "completed", Label: "Completed", Color: "green", Sort: 4},
			"stopped":   {Value: "stopped", Label: "Stopped", Color: "red", Sort: 5},
			"rejected":  {Value: "rejected", Label: "Rejected", Color: "red", Tone: "muted", Sort: 6},
		},
		"reminderStatus": {
			"PENDING":   {Value: "PENDING", Label: "Pending", Color: "orange", Sort: 1},
			"COMPLETED": {Value: "COMPLETED", Label: "Completed", Color: "green", Sort: 2},
			"MISSED":    {Value: "MISSED", Label: "Missed", Color: "red", Sort: 3},
			"CANCELLED": {Value: "CANCELLED", Label: "Cancelled", Color: "gray", Sort: 4},
		},
		"userStatus": {
			"pending":  {Value: "pending", Label: "Pending", Color: "orange", Sort: 1},
			"active":   {Value: "active", Label: "Active", Color: "green", Sort: 2},
			"disabled": {Value: "disabled", Label: "Disabled", Color: "gray", Sort: 3},
			"locked":   {Value: "locked", Label: "Locked", Color: "red", Sort: 4},
		},
	})
}
