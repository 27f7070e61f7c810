package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusRefunded  = "REFUNDED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusPartial   = "PARTIAL"
	PaymentStatusFailed    = "FAILED"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentTypeCash     = "CASH"
	PaymentTypeCard     = "CARD"
	PaymentTypeGiftCard = "GIFT_CARD"
)

const (
	ModifierTypeDiscount  = "DISCOUNT"
	ModifierTypeSurcharge = "SURCHARGE"
	ModifierTypeTax       = "TAX"
	ModifierTypeTip       = "TIP"
)
