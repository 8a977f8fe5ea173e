package location

import "time"

// LatestResponse is one user's row in the live locations listing
type LatestResponse struct {
	UserID     string    `json:"userId"`
	Lat        float64   `json:"lat"`
	Long       float64   `json:"long"`
	ReceivedAt time.Time `json:"receivedAt"`
	IsOnline   bool      `json:"isOnline"`
}

// SnapshotResponse lists who is online and where everyone was last seen
type SnapshotResponse struct {
	Online []string         `json:"online"`
	Latest []LatestResponse `json:"latest"`
}

// NewSnapshot joins the latest samples with the online set
func NewSnapshot(samples []Sample, online []string) SnapshotResponse {
	isOnline := make(map[string]bool, len(online))
	for _, id := range online {
		isOnline[id] = true
	}

	latest := make([]LatestResponse, 0, len(samples))
	for _, s := range samples {
		latest = append(latest, LatestResponse{
			UserID:     s.UserID,
			Lat:        s.Lat,
			Long:       s.Long,
			ReceivedAt: s.ReceivedAt,
			IsOnline:   isOnline[s.UserID],
		})
	}
	if online == nil {
		online = []string{}
	}
	return SnapshotResponse{Online: online, Latest: latest}
}
