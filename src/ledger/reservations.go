package ledger

import (
	"context"
	"fmt"

	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
)

// ReservationService tracks shares earmarked against open option
// contracts so the lot ledger cannot sell covered shares out from
// under a written call. Reservations are a separate ledger rather than
// a field on the lot: one lot can back several contracts at once, and
// each is released independently of sales.
type ReservationService struct {
	store store.Store
	locks *SecurityLocks
}

// NewReservationService creates a reservation service sharing the lot
// service's per-security locks.
func NewReservationService(st store.Store, locks *SecurityLocks) *ReservationService {
	return &ReservationService{store: st, locks: locks}
}

// Reserve earmarks shares for an option, walking lots in the same FIFO
// order as sales but consuming only what is not already reserved. All
// rows are inserted atomically; on ErrInsufficientShares nothing is
// reserved.
func (s *ReservationService) Reserve(ctx context.Context, optionID, stockID int64, quantity int) ([]models.Reservation, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, quantity)
	}

	mu := s.locks.forStock(stockID)
	mu.Lock()
	defer mu.Unlock()

	avail, err := availabilityFor(ctx, s.store, stockID)
	if err != nil {
		return nil, err
	}
	if avail.AvailableShares < quantity {
		return nil, fmt.Errorf("%w: available %d, requested %d",
			ErrInsufficientShares, avail.AvailableShares, quantity)
	}

	remaining := quantity
	var reservations []models.Reservation
	for _, lot := range avail.Lots {
		if remaining <= 0 {
			break
		}
		if lot.AvailableForSale <= 0 {
			continue
		}
		take := min(remaining, lot.AvailableForSale)
		reservations = append(reservations, models.Reservation{
			OptionID:         optionID,
			LotID:            lot.LotID,
			ReservedQuantity: take,
			LotNumber:        lot.LotNumber,
		})
		remaining -= take
	}
	if remaining > 0 {
		return nil, fmt.Errorf("%w: reservation walk short by %d shares for stock %d",
			ErrInconsistent, remaining, stockID)
	}

	if err := s.store.InsertReservations(ctx, reservations); err != nil {
		return nil, fmt.Errorf("commit reservations: %w", err)
	}
	return reservations, nil
}

// Release deletes every reservation held by one option. Called by the
// option lifecycle when a contract is closed, expires, or is assigned;
// the lot ledger never releases reservations on its own.
func (s *ReservationService) Release(ctx context.Context, optionID int64) error {
	return s.store.DeleteReservationsByOption(ctx, optionID)
}

// CheckAvailability reports how many shares of a stock could be sold
// right now and whether a sale of quantity would go through, with a
// per-lot breakdown. Read-only.
func (s *ReservationService) CheckAvailability(ctx context.Context, stockID int64, quantity int) (*models.Availability, error) {
	mu := s.locks.forStock(stockID)
	mu.Lock()
	defer mu.Unlock()

	avail, err := availabilityFor(ctx, s.store, stockID)
	if err != nil {
		return nil, err
	}
	avail.CanSell = avail.AvailableShares >= quantity
	return avail, nil
}

// availabilityFor computes the per-lot sellable breakdown: remaining
// shares minus existing reservations, in FIFO order. Shared by sales,
// reservations and the pre-flight check so the three always agree.
func availabilityFor(ctx context.Context, st store.Store, stockID int64) (*models.Availability, error) {
	lots, err := st.OpenLotsFIFO(ctx, stockID)
	if err != nil {
		return nil, err
	}
	reserved, err := st.ReservedByLot(ctx, stockID)
	if err != nil {
		return nil, err
	}

	avail := &models.Availability{}
	for _, lot := range lots {
		r := reserved[lot.ID]
		free := lot.RemainingQuantity - r
		if free < 0 {
			free = 0
		}
		avail.Lots = append(avail.Lots, models.LotAvailability{
			LotID:             lot.ID,
			LotNumber:         lot.LotNumber,
			RemainingQuantity: lot.RemainingQuantity,
			ReservedQuantity:  r,
			AvailableForSale:  free,
		})
		avail.AvailableShares += free
	}
	return avail, nil
}
