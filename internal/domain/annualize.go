package domain

import (
	"errors"
	"math"
)

// ErrNoUsableData signals that an extraction held no consumption data at
// all: no row total, no summary block, no month buckets. Callers fall back
// to another candidate or the regional default; a zero-usage estimate is
// never fabricated.
var ErrNoUsableData = errors.New("no usable consumption data")

// Annualize turns an extraction into a single annual kWh estimate. The
// first applicable method wins:
//
//  1. direct sum of row-level measurements, no extrapolation at all
//  2. single-period summary scaled to 365 days
//  3. month-bucket series scaled to 12 months
func Annualize(ex Extraction, h Heuristics) (AnnualEstimate, error) {
	var (
		annual int
		method EstimateMethod
	)

	switch {
	case ex.HasDirect:
		annual = int(math.Round(ex.DirectTotal))
		method = MethodDirectSum
	case ex.Summary != nil && ex.Summary.Days > 0:
		annual = int(math.Round(ex.Summary.KWh / float64(ex.Summary.Days) * 365))
		method = MethodSummaryExtrapolation
	case len(ex.Series.Entries) > 0:
		buckets := float64(len(ex.Series.Entries))
		annual = int(math.Round(ex.Series.Total() / buckets * 12))
		method = MethodPartialExtrapolation
	default:
		return AnnualEstimate{}, ErrNoUsableData
	}

	quality := QualityForDays(ex.DaysCovered, h)
	if method == MethodSummaryExtrapolation && quality == QualityExcellent {
		// A one-period extrapolation never grades excellent, whatever the
		// claimed period length.
		quality = QualityGood
	}

	return AnnualEstimate{
		AnnualKWh:   annual,
		DaysCovered: ex.DaysCovered,
		Quality:     quality,
		Method:      method,
	}, nil
}

// QualityForDays grades calendar coverage against the fixed thresholds.
func QualityForDays(days int, h Heuristics) DataQuality {
	switch {
	case days >= h.ExcellentDays:
		return QualityExcellent
	case days >= h.GoodDays:
		return QualityGood
	default:
		return QualityFair
	}
}
