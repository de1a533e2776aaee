package services

import (
	"errors"
	"fmt"
	"math"

	"realestate-comps/models"
	"realestate-comps/regression"
)

// ErrBadEstimate means the model produced a price that cannot be labeled.
var ErrBadEstimate = errors.New("model produced a non-positive estimate")

// ValuationOptions hold the confidence band and the fairness thresholds.
type ValuationOptions struct {
	Band                 float64
	OverpricedThreshold  float64
	UnderpricedThreshold float64
}

// DefaultValuationOptions returns a ±8% band with 1.10 / 0.90 thresholds.
func DefaultValuationOptions() ValuationOptions {
	return ValuationOptions{Band: 0.08, OverpricedThreshold: 1.10, UnderpricedThreshold: 0.90}
}

// Classify labels an actual/estimate ratio. Both thresholds are strict.
func (o ValuationOptions) Classify(ratio float64) models.PriceLabel {
	switch {
	case ratio > o.OverpricedThreshold:
		return models.LabelOverpriced
	case ratio < o.UnderpricedThreshold:
		return models.LabelUnderpriced
	default:
		return models.LabelFair
	}
}

// EstimatePrice predicts the price of targetID, bands it and labels the asking
// price. The scaler is optional; a nil model yields ErrModelUnavailable.
func EstimatePrice(dataset []models.Listing, targetID string, model regression.Regressor,
	scaler regression.Scaler, opts ValuationOptions) (models.Estimate, error) {
	t := indexOf(dataset, targetID)
	if t < 0 {
		return models.Estimate{}, fmt.Errorf("estimate for %q: %w", targetID, models.ErrNotFound)
	}
	if model == nil {
		return models.Estimate{}, fmt.Errorf("estimate for %q: %w", targetID, models.ErrModelUnavailable)
	}

	x := [][]float64{FeatureVectorOf(&dataset[t], FeatureMedians(dataset))}
	if scaler != nil {
		scaled, err := scaler.Transform(x)
		if err != nil {
			return models.Estimate{}, fmt.Errorf("estimate for %q: scale: %w", targetID, err)
		}
		x = scaled
	}
	pred, err := model.Predict(x)
	if err != nil {
		return models.Estimate{}, fmt.Errorf("estimate for %q: predict: %w", targetID, err)
	}
	if len(pred) != 1 {
		return models.Estimate{}, fmt.Errorf("estimate for %q: model returned %d predictions", targetID, len(pred))
	}

	estimate := math.Expm1(pred[0])
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) || estimate <= 0 {
		return models.Estimate{}, fmt.Errorf("estimate for %q: %w (%v)", targetID, ErrBadEstimate, estimate)
	}

	return models.Estimate{
		ListingID:      targetID,
		EstimatedPrice: round2(estimate),
		RangeLow:       round2(estimate * (1 - opts.Band)),
		RangeHigh:      round2(estimate * (1 + opts.Band)),
		Label:          opts.Classify(dataset[t].Price / estimate),
	}, nil
}
