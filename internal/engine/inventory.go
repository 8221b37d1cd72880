package engine

import (
	"math"
	"sort"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

// BatchInventory holds one (store, SKU) inventory as an ordered collection
// of expiry-dated batches split between shelf and backroom, plus the
// in-transit orders expected to arrive during the horizon.
//
// Batches are kept sorted ascending by days until expiry so every
// withdrawal and transfer consumes first-expiry-first-out. Shelf and
// backroom totals are always derived from the batches, never stored.
type BatchInventory struct {
	batches   []domain.Batch
	inTransit []domain.InTransitOrder
}

// NewBatchInventory builds an inventory from a snapshot. Batch quantities
// must be non-negative; zero-quantity batches are dropped on load.
func NewBatchInventory(snapshot domain.InventorySnapshot) (*BatchInventory, error) {
	inv := &BatchInventory{
		batches:   make([]domain.Batch, 0, len(snapshot.Batches)),
		inTransit: make([]domain.InTransitOrder, 0, len(snapshot.InTransit)),
	}

	for _, b := range snapshot.Batches {
		if b.Quantity < 0 {
			return nil, &domain.InvalidParameterError{Field: "batch.quantity", Reason: "must be non-negative"}
		}
		if b.Quantity == 0 {
			continue
		}
		loc := b.Location
		if loc != domain.LocationShelf {
			loc = domain.LocationBackroom
		}
		inv.add(domain.Batch{Quantity: b.Quantity, DaysUntilExpiry: b.DaysUntilExpiry, Location: loc})
	}

	for _, o := range snapshot.InTransit {
		if o.Quantity < 0 {
			return nil, &domain.InvalidParameterError{Field: "in_transit.quantity", Reason: "must be non-negative"}
		}
		if o.Quantity == 0 {
			continue
		}
		inv.inTransit = append(inv.inTransit, o)
	}

	return inv, nil
}

// add merges a batch into the sorted collection, coalescing with an
// existing batch of the same expiry and location.
func (inv *BatchInventory) add(b domain.Batch) {
	for i := range inv.batches {
		if inv.batches[i].DaysUntilExpiry == b.DaysUntilExpiry && inv.batches[i].Location == b.Location {
			inv.batches[i].Quantity += b.Quantity
			return
		}
	}
	inv.batches = append(inv.batches, b)
	sort.SliceStable(inv.batches, func(i, j int) bool {
		return inv.batches[i].DaysUntilExpiry < inv.batches[j].DaysUntilExpiry
	})
}

// prune removes zero-quantity batches while preserving order.
func (inv *BatchInventory) prune() {
	kept := inv.batches[:0]
	for _, b := range inv.batches {
		if b.Quantity > 0 {
			kept = append(kept, b)
		}
	}
	inv.batches = kept
}

// QtyAt returns the total quantity at the given location.
func (inv *BatchInventory) QtyAt(loc domain.Location) float64 {
	total := 0.0
	for _, b := range inv.batches {
		if b.Location == loc {
			total += b.Quantity
		}
	}
	return total
}

// ShelfQty returns the total shelf quantity.
func (inv *BatchInventory) ShelfQty() float64 { return inv.QtyAt(domain.LocationShelf) }

// BackroomQty returns the total backroom quantity.
func (inv *BatchInventory) BackroomQty() float64 { return inv.QtyAt(domain.LocationBackroom) }

// AgeOneDay decrements the remaining shelf life of every batch by one day,
// sweeps batches that have gone past expiry out of the inventory and
// returns the swept quantity as waste. It must run exactly once per
// simulated day, before any refill or order logic for that day.
func (inv *BatchInventory) AgeOneDay() float64 {
	waste := 0.0
	kept := inv.batches[:0]
	for _, b := range inv.batches {
		b.DaysUntilExpiry--
		if b.DaysUntilExpiry < 0 {
			waste += b.Quantity
			continue
		}
		kept = append(kept, b)
	}
	inv.batches = kept
	return waste
}

// ReceiveArrival inserts a new backroom batch, used both for in-transit
// deliveries landing at the store and for simulation seeding.
func (inv *BatchInventory) ReceiveArrival(quantity float64, expiryDaysRemaining int) error {
	if quantity < 0 {
		return &domain.InvalidParameterError{Field: "quantity", Reason: "must be non-negative"}
	}
	if quantity == 0 {
		return nil
	}
	inv.add(domain.Batch{
		Quantity:        quantity,
		DaysUntilExpiry: expiryDaysRemaining,
		Location:        domain.LocationBackroom,
	})
	return nil
}

// Withdraw removes quantity from the given location, consuming batches in
// ascending days-until-expiry order. Callers must check availability
// first; exceeding it returns InsufficientStockError with no state change.
func (inv *BatchInventory) Withdraw(loc domain.Location, quantity float64) error {
	if quantity < 0 {
		return &domain.InvalidParameterError{Field: "quantity", Reason: "must be non-negative"}
	}
	available := inv.QtyAt(loc)
	if quantity > available {
		return &domain.InsufficientStockError{Location: loc, Requested: quantity, Available: available}
	}

	remaining := quantity
	for i := range inv.batches {
		if remaining <= 0 {
			break
		}
		if inv.batches[i].Location != loc {
			continue
		}
		take := inv.batches[i].Quantity
		if take > remaining {
			take = remaining
		}
		inv.batches[i].Quantity -= take
		remaining -= take
	}
	inv.prune()
	return nil
}

// Transfer moves quantity from backroom to shelf in FEFO order, so the
// earliest-expiring units get shelf priority where sales happen. Exceeding
// the backroom quantity returns InsufficientStockError.
func (inv *BatchInventory) Transfer(quantity float64) error {
	if quantity < 0 {
		return &domain.InvalidParameterError{Field: "quantity", Reason: "must be non-negative"}
	}
	available := inv.BackroomQty()
	if quantity > available {
		return &domain.InsufficientStockError{Location: domain.LocationBackroom, Requested: quantity, Available: available}
	}

	type move struct {
		qty  float64
		days int
	}
	var moves []move

	remaining := quantity
	for i := range inv.batches {
		if remaining <= 0 {
			break
		}
		if inv.batches[i].Location != domain.LocationBackroom {
			continue
		}
		take := inv.batches[i].Quantity
		if take > remaining {
			take = remaining
		}
		inv.batches[i].Quantity -= take
		remaining -= take
		moves = append(moves, move{qty: take, days: inv.batches[i].DaysUntilExpiry})
	}
	inv.prune()

	for _, m := range moves {
		inv.add(domain.Batch{Quantity: m.qty, DaysUntilExpiry: m.days, Location: domain.LocationShelf})
	}
	return nil
}

// ExpiryBuckets partitions on-hand quantity into the 1-3, 4-7 and 8+ day
// reporting buckets. Batches already at or past expiry are reported
// separately, never as sellable stock. Pure read.
func (inv *BatchInventory) ExpiryBuckets() domain.ExpiryBuckets {
	var buckets domain.ExpiryBuckets
	for _, b := range inv.batches {
		switch {
		case b.DaysUntilExpiry <= 0:
			buckets.Expired += b.Quantity
		case b.DaysUntilExpiry <= 3:
			buckets.OneToThreeDays += b.Quantity
		case b.DaysUntilExpiry <= 7:
			buckets.FourToSevenDays += b.Quantity
		default:
			buckets.EightPlusDays += b.Quantity
		}
	}
	return buckets
}

// ExpiringWithin returns the on-hand quantity expiring within the given
// number of days.
func (inv *BatchInventory) ExpiringWithin(days int) float64 {
	total := 0.0
	for _, b := range inv.batches {
		if b.DaysUntilExpiry <= days {
			total += b.Quantity
		}
	}
	return total
}

// UnsellableBeforeExpiry returns the on-hand quantity that cannot sell
// before it expires at the given mean daily demand. Demand is absorbed in
// FEFO order, so each batch only counts the selling capacity left before
// its own expiry.
func (inv *BatchInventory) UnsellableBeforeExpiry(meanDemand float64) float64 {
	if meanDemand <= 0 {
		total := 0.0
		for _, b := range inv.batches {
			total += b.Quantity
		}
		return total
	}

	sold := 0.0
	unsellable := 0.0
	for _, b := range inv.batches {
		capacity := meanDemand*float64(b.DaysUntilExpiry) - sold
		if capacity < 0 {
			capacity = 0
		}
		sellable := math.Min(b.Quantity, capacity)
		sold += sellable
		unsellable += b.Quantity - sellable
	}
	return unsellable
}

// EarliestExpiry returns the smallest remaining shelf life across all
// batches. The second return is false when the inventory is empty.
func (inv *BatchInventory) EarliestExpiry() (int, bool) {
	if len(inv.batches) == 0 {
		return 0, false
	}
	return inv.batches[0].DaysUntilExpiry, true
}

// Batches returns a copy of the batch collection in FEFO order.
func (inv *BatchInventory) Batches() []domain.Batch {
	out := make([]domain.Batch, len(inv.batches))
	copy(out, inv.batches)
	return out
}

// AppendInTransit records a newly placed order arriving on the given day
// offset. The order is not available for refill until it arrives.
func (inv *BatchInventory) AppendInTransit(quantity float64, arrivalDayOffset int) {
	if quantity <= 0 {
		return
	}
	inv.inTransit = append(inv.inTransit, domain.InTransitOrder{
		Quantity:         quantity,
		ArrivalDayOffset: arrivalDayOffset,
	})
}

// InTransitTotal sums all outstanding in-transit quantity.
func (inv *BatchInventory) InTransitTotal() float64 {
	total := 0.0
	for _, o := range inv.inTransit {
		total += o.Quantity
	}
	return total
}

// ReceiveDueArrivals moves every in-transit order with the given arrival
// day into the backroom with a fresh shelf life and returns the received
// quantity.
func (inv *BatchInventory) ReceiveDueArrivals(day int, shelfLifeDays int) float64 {
	received := 0.0
	kept := inv.inTransit[:0]
	for _, o := range inv.inTransit {
		if o.ArrivalDayOffset == day {
			inv.add(domain.Batch{
				Quantity:        o.Quantity,
				DaysUntilExpiry: shelfLifeDays,
				Location:        domain.LocationBackroom,
			})
			received += o.Quantity
			continue
		}
		kept = append(kept, o)
	}
	inv.inTransit = kept
	return received
}
