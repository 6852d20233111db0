package model

import "time"

// RoomEvent is the append-only log of committed room/tenancy transitions.
type RoomEvent struct {
	ID         int64  `gorm:"primaryKey"`
	RoomID     int64  `gorm:"not null;index:idx_room_events_room_time,priority:1"`
	TenancyID  *int64 `gorm:"index"`
	TenantRef  string `gorm:"size:128;index"`
	Event      string `gorm:"size:32;not null"`
	FromStatus string `gorm:"size:16"`
	ToStatus   string `gorm:"size:16"`
	Actor      string `gorm:"size:128"`
	Reason     string `gorm:"size:255"`
	// OccurredAt is the commit time of the transition.
	OccurredAt time.Time `gorm:"not null;index:idx_room_events_room_time,priority:2"`
}
