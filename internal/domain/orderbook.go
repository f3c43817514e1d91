package domain

// PriceLevel is a single price+size entry in an order book side.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderBook is a Polymarket order book for one token, maintained by the
// order-book push feed (spec.md §4.3, §4.4).
type OrderBook struct {
	TokenID string
	Bids    []PriceLevel // sorted descending by Price
	Asks    []PriceLevel // sorted ascending by Price
}

// BestBid returns the highest bid price, or 0 if the book has no bids.
func (b *OrderBook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 if the book has no asks.
func (b *OrderBook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// Spread returns BestAsk - BestBid, or 0 if either side is empty.
func (b *OrderBook) Spread() float64 {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return 0
	}
	return b.BestAsk() - b.BestBid()
}

// Mid returns the midpoint of the best bid and ask, or 0 if either side is empty.
func (b *OrderBook) Mid() float64 {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return 0
	}
	return (b.BestBid() + b.BestAsk()) / 2
}

// OrderSide selects which side of the book Fillable walks: "buy" walks the
// asks, "sell" walks the bids.
type OrderSide string

const (
	BookSideBuy  OrderSide = "buy"
	BookSideSell OrderSide = "sell"
)

// Fillable walks the relevant side of the book, accumulating size at each
// level until either the level price breaks limitPrice or the remaining
// budget is exhausted; the last level contributes the fraction
// remaining_budget/price (spec.md §4.3). Returns the total contracts
// fillable and their total cost.
func (b *OrderBook) Fillable(side OrderSide, limitPrice float64, budget float64) (contracts float64, cost float64) {
	var levels []PriceLevel
	switch side {
	case BookSideBuy:
		levels = b.Asks
	case BookSideSell:
		levels = b.Bids
	default:
		return 0, 0
	}

	remaining := budget
	for _, lvl := range levels {
		if side == BookSideBuy && lvl.Price > limitPrice {
			break
		}
		if side == BookSideSell && lvl.Price < limitPrice {
			break
		}
		levelCost := lvl.Price * lvl.Size
		if levelCost <= remaining {
			contracts += lvl.Size
			cost += levelCost
			remaining -= levelCost
			continue
		}
		// Last level: contribute the fraction remaining budget can afford.
		if lvl.Price > 0 {
			frac := remaining / lvl.Price
			contracts += frac
			cost += remaining
		}
		remaining = 0
		break
	}

	return contracts, cost
}
