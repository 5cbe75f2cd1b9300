package domain

// ProductType identifies the instrument variant a trade is placed with.
type ProductType string

const (
	ProductSpot          ProductType = "spot"
	ProductCFDLong       ProductType = "cfd_long"
	ProductCFDShort      ProductType = "cfd_short"
	ProductKnockoutLong  ProductType = "knockout_long"
	ProductKnockoutShort ProductType = "knockout_short"
)

// ProductTypes lists every supported product type in a stable order.
func ProductTypes() []ProductType {
	return []ProductType{ProductSpot, ProductCFDLong, ProductCFDShort, ProductKnockoutLong, ProductKnockoutShort}
}

// IsValid reports whether the product type is one of the supported variants.
func (p ProductType) IsValid() bool {
	switch p {
	case ProductSpot, ProductCFDLong, ProductCFDShort, ProductKnockoutLong, ProductKnockoutShort:
		return true
	}
	return false
}

// IsShort reports whether the product type profits from falling prices.
func (p ProductType) IsShort() bool {
	return p == ProductCFDShort || p == ProductKnockoutShort
}

// IsLeveraged reports whether the product type carries a leverage factor.
func (p ProductType) IsLeveraged() bool {
	return p != ProductSpot
}

// IsKnockout reports whether the product type is a knockout certificate.
// Knockouts carry no overnight financing cost in this model.
func (p ProductType) IsKnockout() bool {
	return p == ProductKnockoutLong || p == ProductKnockoutShort
}

// IsCFD reports whether the product type is a contract for difference.
func (p ProductType) IsCFD() bool {
	return p == ProductCFDLong || p == ProductCFDShort
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusPlanned TradeStatus = "planned"
	StatusOpen    TradeStatus = "open"
	StatusClosed  TradeStatus = "closed"
)

// IsValid reports whether the status is a known lifecycle state.
func (s TradeStatus) IsValid() bool {
	switch s {
	case StatusPlanned, StatusOpen, StatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a status change is allowed.
// The lifecycle is monotonic: planned to open to closed, or planned straight to closed,
// never backward.
func (s TradeStatus) CanTransitionTo(next TradeStatus) bool {
	switch s {
	case StatusPlanned:
		return next == StatusOpen || next == StatusClosed
	case StatusOpen:
		return next == StatusClosed
	}
	return false
}
