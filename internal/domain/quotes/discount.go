package quotes

import (
	"strings"

	"printq/internal/core/apperror"
)

// DiscountType classifies why a price was reduced.
type DiscountType string

const (
	DiscountSeasonal     DiscountType = "seasonal"
	DiscountLateDelivery DiscountType = "late-delivery"
	DiscountSenior       DiscountType = "senior"
	DiscountSpecialCase  DiscountType = "special-case"
)

// Season is the campaign a seasonal discount belongs to.
type Season string

const (
	SeasonChristmas   Season = "christmas"
	SeasonWomensDay   Season = "womens-day"
	SeasonFathersDay  Season = "fathers-day"
	SeasonMothersDay  Season = "mothers-day"
	SeasonSummer      Season = "summer"
	SeasonBlackFriday Season = "black-friday"
	SeasonOther       Season = "other"
)

var validSeasons = map[Season]struct{}{
	SeasonChristmas:   {},
	SeasonWomensDay:   {},
	SeasonFathersDay:  {},
	SeasonMothersDay:  {},
	SeasonSummer:      {},
	SeasonBlackFriday: {},
	SeasonOther:       {},
}

var validDiscountTypes = map[DiscountType]struct{}{
	DiscountSeasonal:     {},
	DiscountLateDelivery: {},
	DiscountSenior:       {},
	DiscountSpecialCase:  {},
}

// specialCaseReasonMin is the minimum reason length for a special-case
// discount; a bare word is not an audit trail.
const specialCaseReasonMin = 8

// Discount is a requested price reduction. Pct is a percentage in (0, 100),
// not a fraction.
type Discount struct {
	Type   DiscountType `db:"discount_type" json:"type"`
	Pct    float64      `db:"discount_pct" json:"pct"`
	Reason string       `db:"discount_reason" json:"reason"`
	Season *Season      `db:"discount_season" json:"season,omitempty"`
}

// Requested reports whether the payload asks for any discount at all. Any
// populated field counts, so a half-filled request fails validation instead
// of being silently ignored.
func (d *Discount) Requested() bool {
	if d == nil {
		return false
	}
	return d.Type != "" || d.Pct > 0 || strings.TrimSpace(d.Reason) != "" || d.Season != nil
}

// Validate enforces the discount rules. Call only when Requested.
func (d *Discount) Validate() error {
	if d.Type == "" {
		return apperror.NewValidation("discount type is required")
	}
	if _, ok := validDiscountTypes[d.Type]; !ok {
		return apperror.NewValidation("unknown discount type").
			WithDetail("type", string(d.Type))
	}
	if d.Pct <= 0 || d.Pct >= 100 {
		return apperror.NewValidation("discount pct must be between 0 and 100 exclusive").
			WithDetail("pct", d.Pct)
	}

	reason := strings.TrimSpace(d.Reason)
	if reason == "" {
		return apperror.NewValidation("discount reason is required")
	}

	switch d.Type {
	case DiscountSeasonal:
		if d.Season == nil {
			return apperror.NewValidation("seasonal discount requires a season")
		}
		if _, ok := validSeasons[*d.Season]; !ok {
			return apperror.NewValidation("unknown discount season").
				WithDetail("season", string(*d.Season))
		}
	case DiscountSpecialCase:
		if len(reason) < specialCaseReasonMin {
			return apperror.NewValidation("special-case discount requires a detailed reason").
				WithDetail("minLength", specialCaseReasonMin)
		}
	}

	d.Reason = reason
	return nil
}
