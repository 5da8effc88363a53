package domain

import "time"

// Car belongs to exactly one group. DriverID is set while a member is
// driving and cleared when the car is parked at a position.
type Car struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"index;not null" json:"group_id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	DriverID  *uint     `gorm:"index" json:"driver_id,omitempty"`
	Driver    *User     `json:"driver,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
