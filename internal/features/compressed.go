package features

import "token-risk-lab/internal/domain"

// CompressedFeatures groups the 29 scalars by category for debugging and
// category-level importance aggregation.
type CompressedFeatures struct {
	Market   []float32 `json:"market"`   // 5
	Holders  []float32 `json:"holders"`  // 6
	Security []float32 `json:"security"` // 4
	Bundle   []float32 `json:"bundle"`   // 5
	Trading  []float32 `json:"trading"`  // 4
	Time     []float32 `json:"time"`     // 2
	Creator  []float32 `json:"creator"`  // 3
}

// Compress splits v into its seven categories.
func Compress(v Vector) CompressedFeatures {
	var c CompressedFeatures
	for _, r := range CategoryRanges {
		part := make([]float32, r.End-r.Start)
		copy(part, v[r.Start:r.End])
		switch r.Category {
		case domain.CategoryMarket:
			c.Market = part
		case domain.CategoryHolders:
			c.Holders = part
		case domain.CategorySecurity:
			c.Security = part
		case domain.CategoryBundle:
			c.Bundle = part
		case domain.CategoryTrading:
			c.Trading = part
		case domain.CategoryTime:
			c.Time = part
		case domain.CategoryCreator:
			c.Creator = part
		}
	}
	return c
}

// Flatten reassembles the vector in index order.
func (c CompressedFeatures) Flatten() Vector {
	var v Vector
	i := 0
	for _, part := range [][]float32{c.Market, c.Holders, c.Security, c.Bundle, c.Trading, c.Time, c.Creator} {
		for _, x := range part {
			if i < Count {
				v[i] = x
			}
			i++
		}
	}
	return v
}

// ByCategory returns the mapping category -> values.
func (c CompressedFeatures) ByCategory() map[domain.Category][]float32 {
	return map[domain.Category][]float32{
		domain.CategoryMarket:   c.Market,
		domain.CategoryHolders:  c.Holders,
		domain.CategorySecurity: c.Security,
		domain.CategoryBundle:   c.Bundle,
		domain.CategoryTrading:  c.Trading,
		domain.CategoryTime:     c.Time,
		domain.CategoryCreator:  c.Creator,
	}
}
