package lifecycle

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/roomstate"
	"boarding-house-backend/internal/store"
)

// CreateRoom registers a new available room.
func (s *Service) CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomResult, error) {
	if !roomstate.ValidPrice(req.MonthlyPrice) {
		return nil, apperr.Invalid(apperr.InvalidPrice, "monthly price must be positive, got %s", req.MonthlyPrice)
	}
	room := &model.Room{
		RoomNumber:   strings.TrimSpace(req.RoomNumber),
		RoomName:     req.RoomName,
		MonthlyPrice: req.MonthlyPrice,
		Status:       model.RoomAvailable,
	}
	err := s.run(ctx, func(u *txn) error {
		if err := u.tx.Rooms().Create(ctx, room); err != nil {
			return err
		}
		return u.record(ctx, room, model.RoomEvent{Event: EventRoomCreated, Actor: req.Actor.ID})
	})
	if err != nil {
		return nil, err
	}
	return &RoomResult{Room: room}, nil
}

// ReserveRoom places a time-boxed hold on an available room.
func (s *Service) ReserveRoom(ctx context.Context, req ReserveRoomRequest) (*RoomResult, error) {
	var room *model.Room
	err := s.run(ctx, func(u *txn) error {
		var err error
		if room, err = u.loadRoom(ctx, req.RoomID); err != nil {
			return err
		}
		from := room.Status
		if err := roomstate.Reserve(room, req.Actor, req.Hours, req.Reason, u.now, s.limits); err != nil {
			return err
		}
		if err := u.tx.Rooms().Save(ctx, room); err != nil {
			return err
		}
		return u.record(ctx, room, model.RoomEvent{
			Event:      EventReserved,
			FromStatus: string(from),
			Actor:      req.Actor.ID,
			Reason:     req.Reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return &RoomResult{Room: room}, nil
}

// CancelReservation releases a hold held by the caller (or any hold, for admins).
func (s *Service) CancelReservation(ctx context.Context, req CancelReservationRequest) (*RoomResult, error) {
	var room *model.Room
	err := s.run(ctx, func(u *txn) error {
		var err error
		if room, err = u.loadRoom(ctx, req.RoomID); err != nil {
			return err
		}
		holder := room.ReservedBy
		if err := roomstate.CancelReservation(room, req.Actor); err != nil {
			return err
		}
		if err := u.tx.Rooms().Save(ctx, room); err != nil {
			return err
		}
		return u.record(ctx, room, model.RoomEvent{
			Event:      EventReservationCancelled,
			FromStatus: string(model.RoomReserved),
			Actor:      req.Actor.ID,
			Reason:     "held by " + holder,
		})
	})
	if err != nil {
		return nil, err
	}
	return &RoomResult{Room: room}, nil
}

// ArchiveRoom retires a room nobody holds.
func (s *Service) ArchiveRoom(ctx context.Context, req RoomChangeRequest) (*RoomResult, error) {
	return s.changeRoom(ctx, req, EventArchived, func(u *txn, room *model.Room, holders int) error {
		return roomstate.Archive(room, req.Reason, holders, u.now)
	})
}

// UnarchiveRoom returns an archived room to service.
func (s *Service) UnarchiveRoom(ctx context.Context, req RoomChangeRequest) (*RoomResult, error) {
	return s.changeRoom(ctx, req, EventUnarchived, func(_ *txn, room *model.Room, holders int) error {
		return roomstate.Unarchive(room, holders)
	})
}

// SetMaintenance takes an available room out of service.
func (s *Service) SetMaintenance(ctx context.Context, req RoomChangeRequest) (*RoomResult, error) {
	return s.changeRoom(ctx, req, EventMaintenance, func(_ *txn, room *model.Room, holders int) error {
		return roomstate.SetMaintenance(room, holders)
	})
}

// SetAvailable returns a room under maintenance to service.
func (s *Service) SetAvailable(ctx context.Context, req RoomChangeRequest) (*RoomResult, error) {
	return s.changeRoom(ctx, req, EventAvailable, func(_ *txn, room *model.Room, holders int) error {
		return roomstate.SetAvailable(room, holders)
	})
}

func (s *Service) changeRoom(ctx context.Context, req RoomChangeRequest, event string, apply func(u *txn, room *model.Room, holders int) error) (*RoomResult, error) {
	var room *model.Room
	err := s.run(ctx, func(u *txn) error {
		var err error
		if room, err = u.loadRoom(ctx, req.RoomID); err != nil {
			return err
		}
		holders, err := u.tx.Tenancies().CountHolders(ctx, room.ID, 0)
		if err != nil {
			return err
		}
		from := room.Status
		if err := apply(u, room, holders); err != nil {
			return err
		}
		if err := u.tx.Rooms().Save(ctx, room); err != nil {
			return err
		}
		return u.record(ctx, room, model.RoomEvent{
			Event:      event,
			FromStatus: string(from),
			Actor:      req.Actor.ID,
			Reason:     req.Reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return &RoomResult{Room: room}, nil
}

// GetRoom reads a room, persisting the expiry of a lapsed reservation.
func (s *Service) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	room, err := s.store.Rooms().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !roomstate.Expired(room, s.clock.Now()) {
		return room, nil
	}
	var fresh *model.Room
	err = s.run(ctx, func(u *txn) error {
		var err error
		fresh, err = u.loadRoom(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// ListRooms lists rooms after expiring lapsed reservations.
func (s *Service) ListRooms(ctx context.Context, f store.RoomFilter) ([]model.Room, error) {
	if err := s.ExpireReservations(ctx); err != nil {
		return nil, err
	}
	return s.store.Rooms().List(ctx, f)
}

// ExpireReservations releases every lapsed reservation and returns the
// first infrastructure error. A room changed concurrently is skipped.
func (s *Service) ExpireReservations(ctx context.Context) error {
	reserved, err := s.store.Rooms().List(ctx, store.RoomFilter{Status: model.RoomReserved})
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for i := range reserved {
		if !roomstate.Expired(&reserved[i], now) {
			continue
		}
		id := reserved[i].ID
		err := s.run(ctx, func(u *txn) error {
			_, err := u.loadRoom(ctx, id)
			return err
		})
		if err != nil && apperr.KindOf(err) == "" {
			return err
		}
		if err != nil {
			s.log.Debug("skipped reservation expiry", zap.Int64("room_id", id), zap.Error(err))
		}
	}
	return nil
}

// RoomHistory returns the newest events of a room.
func (s *Service) RoomHistory(ctx context.Context, roomID int64, limit int) ([]model.RoomEvent, error) {
	if _, err := s.store.Rooms().Get(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.Events().ListByRoom(ctx, roomID, limit)
}
