package attendance

// Record is one day's attendance entry as reported by the backend.
type Record struct {
	ID           string  `json:"_id,omitempty"`
	Present      bool    `json:"present"`
	CheckInTime  *string `json:"checkInTime,omitempty"`
	CheckOutTime *string `json:"checkOutTime,omitempty"`
}

// CheckedOut reports whether a checkout time has been recorded.
func (r Record) CheckedOut() bool {
	return r.CheckOutTime != nil && *r.CheckOutTime != ""
}

// TrackingWanted reports whether the day's records show the user checked
// in and not yet checked out. Only the first record is consulted.
func TrackingWanted(records []Record) bool {
	if len(records) == 0 {
		return false
	}
	first := records[0]
	return first.Present && !first.CheckedOut()
}
