package domain

import "errors"

var (
	ErrItemNotFound       = errors.New("item not found")
	ErrInsufficientStock  = errors.New("insufficient stock available")
	ErrNoAdjustmentNeeded = errors.New("new quantity is the same as the current quantity")
	ErrDuplicateBarcode   = errors.New("an item with this barcode already exists")
)
