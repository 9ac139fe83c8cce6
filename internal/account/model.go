package account

// Account is a locally held XRP Ledger account. Address is its identity;
// an Account is never modified once added.
type Account struct {
	Address string `json:"address"`
	Seed    string `json:"seed"`
	Label   string `json:"label,omitempty"`
}
