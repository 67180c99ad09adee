package pricing

import "math"

// payoutCoefficient is the divisor applied near the end of the chain to
// compensate for the marketplace's payout discount.
const payoutCoefficient = 0.623

// Input holds the cost components of one price calculation. Defaults() gives
// the operating values; only the purchase price and the optional per-product
// markup vary per item.
type Input struct {
	PurchaseRub   float64
	OtherCosts    float64
	TaxRate       float64
	ProfitRate    float64
	DeliveryFixed float64
	PVZShipFixed  float64
	PayoutRate    float64
	AcquiringRate float64
	MarkupPercent float64
}

func Defaults(purchaseRub float64) Input {
	return Input{
		PurchaseRub:   purchaseRub,
		OtherCosts:    120,
		TaxRate:       0.07,
		ProfitRate:    0.15,
		DeliveryFixed: 25,
		PVZShipFixed:  25,
		PayoutRate:    0.05,
		AcquiringRate: 0.015,
	}
}

// Dimensions are the physical size of the product card as the marketplace
// reports it: millimeters and grams, with depth already mapped to length.
type Dimensions struct {
	LengthMM int
	WidthMM  int
	HeightMM int
	WeightG  int
}

// Result carries the final integer price and the per-step trace that lets an
// operator audit exactly how a number came to be.
type Result struct {
	FinalPriceRub int
	Steps         map[string]float64
}

// VolumeLiters converts the card dimensions to liters, floored at 0.001 so a
// card with a missing dimension never produces a zero volume.
func VolumeLiters(d Dimensions) float64 {
	v := float64(d.LengthMM) * float64(d.WidthMM) * float64(d.HeightMM) / 1_000_000.0
	return math.Max(v, 0.001)
}

// roundLiters applies the marketplace volume rounding: always up, minimum 1.
func roundLiters(volumeL float64) int {
	return int(math.Max(1, math.Ceil(volumeL)))
}

// LogisticsRub returns the volume-tiered logistics tariff. The tariff table
// applies only to goods priced from 301 rubles; below that the charge is
// zero. Tiers: fixed rates up to 3 liters, then a per-liter increment up to
// 190, a cheaper increment up to 1000, and a hard cap above that.
func LogisticsRub(priceBeforeLogistics, volumeL float64) float64 {
	if priceBeforeLogistics < 301 {
		return 0
	}
	liters := roundLiters(volumeL)
	switch {
	case liters <= 1:
		return 81.34
	case liters <= 2:
		return 99.64
	case liters <= 3:
		return 117.94
	case liters <= 190:
		return 117.94 + float64(liters-3)*23.39
	case liters <= 1000:
		base190 := 117.94 + float64(190-3)*23.39
		return base190 + float64(liters-190)*6.1
	default:
		return 9432.87
	}
}

// Calculate runs the full pricing chain for one product: fixed costs, tax,
// profit, optional markup, delivery, logistics, payout, sales commission,
// acquiring, the payout divisor and the final 1.5 pre-discount multiplier.
// commissionPercent is the marketplace's FBS sales commission for the card.
func Calculate(in Input, dims Dimensions, commissionPercent float64) Result {
	steps := make(map[string]float64)

	volumeL := VolumeLiters(dims)
	steps["volume_l_raw"] = volumeL
	steps["volume_l_rounded"] = float64(roundLiters(volumeL))

	price := in.PurchaseRub
	steps["purchase"] = price

	price += in.OtherCosts
	steps["plus_other_costs"] = price

	price *= 1 + in.TaxRate
	steps["after_tax"] = price

	price *= 1 + in.ProfitRate
	steps["after_profit"] = price

	if in.MarkupPercent != 0 {
		price *= 1 + in.MarkupPercent/100
		steps["after_markup"] = price
	}

	price += in.DeliveryFixed
	steps["plus_delivery"] = price

	logistics := LogisticsRub(price, volumeL)
	steps["logistics"] = logistics
	price += logistics
	steps["plus_logistics"] = price

	price += in.PVZShipFixed
	steps["plus_pvz"] = price

	price *= 1 + in.PayoutRate
	steps["after_payout"] = price

	steps["commission_percent"] = commissionPercent
	price *= 1 + commissionPercent/100
	steps["after_commission"] = price

	price *= 1 + in.AcquiringRate
	steps["after_acquiring"] = price

	price /= payoutCoefficient
	steps["after_payout_coef"] = price

	// Listed at +50% so the storefront can show a permanent discount.
	price *= 1.5
	steps["after_display_markup"] = price

	final := int(math.Round(price))
	steps["final"] = float64(final)

	return Result{FinalPriceRub: final, Steps: steps}
}
