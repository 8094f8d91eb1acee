package model

// SystemAlert flags two same-owner archive entries committed implausibly close
// together.
type SystemAlert struct {
	ID           string `json:"id"`
	SnoPair      string `json:"sno_pair"`
	Company      string `json:"company"`
	Phone        string `json:"phone"`
	Status       Status `json:"status"`
	Username     string `json:"username"`
	DeltaSeconds int    `json:"delta_seconds"`
	Timestamp    string `json:"timestamp"`
	Acknowledged bool   `json:"acknowledged"`
	Rating       string `json:"rating"`
	Website      string `json:"website"`
	Summary      string `json:"summary"`
}
