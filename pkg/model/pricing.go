package model

// Breakdown is the itemised price of a stay in major currency units.
type Breakdown struct {
	Nights      int     `json:"nights"`
	Groups      int     `json:"groups"`
	PerNight    float64 `json:"per_night"`
	Subtotal    float64 `json:"subtotal"`
	ServiceFee  float64 `json:"service_fee"`
	CleaningFee float64 `json:"cleaning_fee"`
	Total       float64 `json:"total"`
}

// MinorUnits returns Total in the smallest currency unit (paise, cents).
func (b Breakdown) MinorUnits() int64 {
	return int64(b.Total*100 + 0.5)
}
