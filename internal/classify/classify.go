// Package classify fills in the default unit, load amount and piece count
// for an arrival based on its vehicle type.
package classify

import "dock-stats-backend/internal/model"

// Piece multipliers: a pallet carries 344 pieces, a basket 172.
const (
	PiecesPerPallet = 344
	PiecesPerBasket = 172
)

// Units for load amounts.
const (
	UnitPallet = "pallet"
	UnitBasket = "basket"
)

// Default 53ft load when the caller supplies neither load nor pieces.
const default53ftLoad = 24

// Result is the fully populated (unit, load, pieces) triple for a record.
type Result struct {
	Unit       string
	LoadAmount int
	Pieces     int
}

// Apply resolves unit, load amount and pieces for the given vehicle type.
// loadAmount and pieces are nil when the caller did not supply them; values
// that failed to parse upstream are passed as nil too. Apply is pure and
// never fails.
//
// Fixed-load types (26ft, Car, Van) override whatever the caller supplied.
// 53ft derives pieces from the supplied load, or the load from the supplied
// pieces, and falls back to a 24-pallet default. Unknown types pass through
// untouched.
func Apply(vehicleType, unit string, loadAmount, pieces *int) Result {
	switch vehicleType {
	case model.VehicleType26ft:
		return Result{Unit: UnitPallet, LoadAmount: 12, Pieces: 12 * PiecesPerPallet}
	case model.VehicleTypeCar:
		return Result{Unit: UnitBasket, LoadAmount: 1, Pieces: 1 * PiecesPerBasket}
	case model.VehicleTypeVan:
		return Result{Unit: UnitBasket, LoadAmount: 9, Pieces: 9 * PiecesPerBasket}
	case model.VehicleType53ft:
		return apply53ft(unit, loadAmount, pieces)
	default:
		return Result{Unit: unit, LoadAmount: intOrZero(loadAmount), Pieces: intOrZero(pieces)}
	}
}

func apply53ft(unit string, loadAmount, pieces *int) Result {
	r := Result{Unit: unit}
	if r.Unit == "" {
		r.Unit = UnitPallet
	}

	switch {
	case loadAmount != nil && *loadAmount > 0:
		r.LoadAmount = *loadAmount
		r.Pieces = *loadAmount * PiecesPerPallet
	case pieces != nil && *pieces > 0:
		r.Pieces = *pieces
		r.LoadAmount = *pieces / PiecesPerPallet
	default:
		r.LoadAmount = default53ftLoad
		r.Pieces = default53ftLoad * PiecesPerPallet
	}
	return r
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
