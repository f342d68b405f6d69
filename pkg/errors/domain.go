package errors

import "fmt"

// StockShortage is attached to INSUFFICIENT_STOCK errors.
type StockShortage struct {
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

// OverPick is attached to OVER_PICK errors.
type OverPick struct {
	WaveItemID     int64 `json:"wave_item_id"`
	TotalQuantity  int   `json:"total_quantity"`
	PickedQuantity int   `json:"picked_quantity"`
	Attempted      int   `json:"attempted"`
}

// WaveComposition is attached to INVALID_WAVE_COMPOSITION errors.
type WaveComposition struct {
	OrderIDs []int64 `json:"order_ids,omitempty"`
	Reason   string  `json:"reason"`
}

func InsufficientStock(productID int64, requested, available int) *Error {
	msg := fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", productID, requested, available)
	return New(CodeInsufficientStock, msg).WithDetails(StockShortage{
		ProductID: productID,
		Requested: requested,
		Available: available,
	})
}

func OverPicked(itemID int64, total, picked, attempted int) *Error {
	msg := fmt.Sprintf("wave item %d: requested %d, already picked %d, attempted %d", itemID, total, picked, attempted)
	return New(CodeOverPick, msg).WithDetails(OverPick{
		WaveItemID:     itemID,
		TotalQuantity:  total,
		PickedQuantity: picked,
		Attempted:      attempted,
	})
}

func InvalidWaveComposition(reason string, orderIDs ...int64) *Error {
	return New(CodeInvalidWaveComposition, reason).WithDetails(WaveComposition{
		OrderIDs: orderIDs,
		Reason:   reason,
	})
}

func TenantMismatch(entity string, id int64) *Error {
	return New(CodeTenantMismatch, fmt.Sprintf("%s %d belongs to another tenant", entity, id))
}

func ConsistencyViolation(format string, args ...any) *Error {
	return New(CodeConsistencyViolation, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether the error is marked retryable by its code metadata.
func IsRetryable(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return MetadataFor(typed.Code()).Retryable
}
