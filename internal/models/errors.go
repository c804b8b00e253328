package models

import "errors"

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateEntry    = errors.New("ledger entry already exists")
	ErrTransferNotFound  = errors.New("transfer not found")
	ErrEntryNotFound     = errors.New("ledger entry not found")
)
