package order

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Snapshot is the typed view of the raw order payload captured at ingestion.
// Shopify order payloads are not schema-guaranteed, so every accessor
// tolerates missing fields and returns empty/zero values instead of failing.
type Snapshot struct {
	Customer   Customer   `json:"customer"`
	LineItems  []LineItem `json:"line_items"`
	TotalPrice Price      `json:"total_price"`
	Currency   string     `json:"currency"`
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type LineItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    Price  `json:"price"`
}

// Price accepts both the string amounts Shopify normally sends ("59.90")
// and bare JSON numbers. Unrecognized values decode to the empty price.
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = Price(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*p = Price(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	*p = ""
	return nil
}

// Float parses the amount; unparseable or missing prices yield 0.
func (p Price) Float() float64 {
	if p == "" {
		return 0
	}
	v, err := strconv.ParseFloat(string(p), 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseSnapshot decodes a raw order payload. It fails only on malformed
// JSON; absent fields are left at their zero values.
func ParseSnapshot(raw []byte) (Snapshot, error) {
	var s Snapshot
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// CustomerName joins first and last name, trimming the separator when
// either part is absent.
func (s Snapshot) CustomerName() string {
	return strings.TrimSpace(s.Customer.FirstName + " " + s.Customer.LastName)
}

func (s Snapshot) CustomerEmail() string {
	return s.Customer.Email
}

// Items never returns nil so downstream consumers can range without checks.
func (s Snapshot) Items() []LineItem {
	if s.LineItems == nil {
		return []LineItem{}
	}
	return s.LineItems
}

// Total is the payload's total_price as a float, 0 when absent.
func (s Snapshot) Total() float64 {
	return s.TotalPrice.Float()
}
