package models

import (
	"fmt"
	"strings"
)

// Category is the purpose tag of a transfer.
type Category string

const (
	CategoryTransfer  Category = "TRANSFER"
	CategoryRecharge  Category = "RECHARGE"
	CategoryBill      Category = "BILL"
	CategoryCommodity Category = "COMMODITY"
)

// Sink is a fixed, non-account destination.
type Sink struct {
	PaymentID string
	Name      string
}

var sinks = map[Category]Sink{
	CategoryRecharge:  {PaymentID: "recharge@bills", Name: "Mobile Recharge"},
	CategoryBill:      {PaymentID: "electricity@bills", Name: "Electricity Bill"},
	CategoryCommodity: {PaymentID: "gold@dummybank", Name: "Digital Gold Vault"},
}

// ParseCategory accepts any letter case; empty means TRANSFER and GOLD is an
// alias for COMMODITY.
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(CategoryTransfer):
		return CategoryTransfer, nil
	case string(CategoryRecharge):
		return CategoryRecharge, nil
	case string(CategoryBill):
		return CategoryBill, nil
	case string(CategoryCommodity), "GOLD":
		return CategoryCommodity, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Sink returns the service sink for non-transfer categories.
func (c Category) Sink() (Sink, bool) {
	s, ok := sinks[c]
	return s, ok
}

// IsTransfer reports whether the destination is a real account.
func (c Category) IsTransfer() bool { return c == CategoryTransfer }
