package xrpl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DropsPerXRP is the number of drops in one XRP.
const DropsPerXRP = 1_000_000

var dropsPerXRP = decimal.NewFromInt(DropsPerXRP)

// Amount is a ledger amount: a string of drops for XRP, or an object for
// an issued currency.
type Amount struct {
	Drops  string
	Issued *IssuedAmount
}

// IssuedAmount is a non-XRP amount.
type IssuedAmount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer,omitempty"`
	Value    string `json:"value"`
}

// XRP builds a native Amount from a drops string.
func XRP(drops string) Amount { return Amount{Drops: drops} }

// IsNative reports whether the amount is denominated in XRP.
func (a Amount) IsNative() bool {
	return a.Issued == nil && a.Drops != ""
}

// IsZero reports whether the amount was absent from the payload.
func (a Amount) IsZero() bool {
	return a.Issued == nil && a.Drops == ""
}

// XRP converts a native amount to XRP.
func (a Amount) XRP() (decimal.Decimal, error) {
	if !a.IsNative() {
		return decimal.Zero, errors.New("amount is not denominated in XRP")
	}
	return DropsToXRP(a.Drops)
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Amount{}
		return nil
	}
	if b[0] == '"' {
		var drops string
		if err := json.Unmarshal(b, &drops); err != nil {
			return err
		}
		*a = Amount{Drops: drops}
		return nil
	}
	var issued IssuedAmount
	if err := json.Unmarshal(b, &issued); err != nil {
		return fmt.Errorf("decode issued amount: %w", err)
	}
	*a = Amount{Issued: &issued}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Issued != nil {
		return json.Marshal(a.Issued)
	}
	return json.Marshal(a.Drops)
}

// String renders the amount for display, e.g. "12.5 XRP" or "3 USD".
func (a Amount) String() string {
	if a.Issued != nil {
		return a.Issued.Value + " " + a.Issued.Currency
	}
	xrp, err := DropsToXRP(a.Drops)
	if err != nil {
		return a.Drops + " drops"
	}
	return xrp.String() + " XRP"
}

// DropsToXRP converts an integer drops string to XRP.
func DropsToXRP(drops string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(drops)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid drops %q: %w", drops, err)
	}
	if !d.IsInteger() {
		return decimal.Zero, fmt.Errorf("invalid drops %q: fractional drops", drops)
	}
	return d.Div(dropsPerXRP), nil
}

// XRPToDrops converts an XRP amount to a drops string. More than six
// decimal places cannot be represented and is rejected.
func XRPToDrops(xrp decimal.Decimal) (string, error) {
	if xrp.IsNegative() {
		return "", fmt.Errorf("negative amount %s", xrp)
	}
	drops := xrp.Mul(dropsPerXRP)
	if !drops.IsInteger() {
		return "", fmt.Errorf("amount %s has more than 6 decimal places", xrp)
	}
	return drops.StringFixed(0), nil
}
