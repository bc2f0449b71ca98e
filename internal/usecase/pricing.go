package usecase

import (
	"fmt"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
)

var (
	sixty   = decimal.NewFromInt(60)
	hundred = decimal.NewFromInt(100)
)

// SlotMinutes returns the slot length in minutes. End must be strictly
// after start on the same day.
func SlotMinutes(slot entity.TimeSlot) (int, error) {
	start, err := utils.ParseHHMM(slot.Start)
	if err != nil {
		return 0, err
	}
	end, err := utils.ParseHHMM(slot.End)
	if err != nil {
		return 0, err
	}
	if end <= start {
		return 0, fmt.Errorf("end time %s must be after start time %s", slot.End, slot.Start)
	}
	return end - start, nil
}

// CalculateBookingAmount is duration-in-hours x hourly rate, rounded to
// 2 decimal places.
func CalculateBookingAmount(slot entity.TimeSlot, hourlyRate float64) (float64, error) {
	minutes, err := SlotMinutes(slot)
	if err != nil {
		return 0, err
	}

	amount := decimal.NewFromInt(int64(minutes)).
		Mul(decimal.NewFromFloat(hourlyRate)).
		Div(sixty).
		Round(2)

	return amount.InexactFloat64(), nil
}

// CalculatePlatformFee splits amount into (platformFee, netAmount).
// feePercentage is clamped to [0, 100] and the fee never exceeds amount.
func CalculatePlatformFee(amount, feePercentage float64) (float64, float64) {
	if amount < 0 {
		amount = 0
	}
	pct := clampPercentage(feePercentage)

	total := decimal.NewFromFloat(amount)
	fee := total.Mul(decimal.NewFromFloat(pct)).Div(hundred).Round(2)
	if fee.GreaterThan(total) {
		fee = total
	}
	net := total.Sub(fee)

	return fee.InexactFloat64(), net.InexactFloat64()
}

func clampPercentage(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

// slotsOverlap reports whether [a.Start, a.End) intersects [b.Start, b.End).
func slotsOverlap(a, b entity.TimeSlot) bool {
	aStart, err1 := utils.ParseHHMM(a.Start)
	aEnd, err2 := utils.ParseHHMM(a.End)
	bStart, err3 := utils.ParseHHMM(b.Start)
	bEnd, err4 := utils.ParseHHMM(b.End)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return aStart < bEnd && bStart < aEnd
}
