package model

// PaymentOrder is the opaque handle returned by the payment gateway. An empty
// ID means the gateway runs in demo mode.
type PaymentOrder struct {
	ID       string `json:"id,omitempty"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"key_id,omitempty"`
}

type Checkout struct {
	Booking   *Booking      `json:"booking"`
	Listing   *Listing      `json:"listing"`
	Breakdown Breakdown     `json:"breakdown"`
	Order     *PaymentOrder `json:"order"`
}
