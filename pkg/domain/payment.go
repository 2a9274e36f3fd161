package domain

// PaymentOrder is the server-issued checkout order for a paid plan.
// The client hands these values to the hosted checkout and never computes
// or verifies anything about the payment itself.
type PaymentOrder struct {
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	KeyID    string  `json:"keyId"`
}

// PaymentProof is the checkout's completion callback payload, forwarded
// verbatim to the verification endpoint.
type PaymentProof struct {
	OrderID   string `json:"razorpayOrderId"`
	PaymentID string `json:"razorpayPaymentId"`
	Signature string `json:"razorpaySignature"`
	PlanID    string `json:"planId"`
}
