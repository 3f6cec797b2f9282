package catalog

import (
	"time"

	"github.com/google/uuid"
)

type Building struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Province   string `json:"province"`
	Region     string `json:"region"`
	Phone      string `json:"phone"`
}

// Ward is a department of a building. Specialty matches Doctor.Specialty.
type Ward struct {
	ID         int64  `json:"id"`
	BuildingID int64  `json:"building_id"`
	Sector     string `json:"sector"`
	Specialty  string `json:"specialty"`
}

// Ambulatory is a consultation room inside a ward.
type Ambulatory struct {
	ID         int64 `json:"id"`
	RoomNumber int   `json:"room_number"`
	WardID     int64 `json:"ward_id"`
}

type Doctor struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Specialty string    `json:"specialty"`
	CreatedAt time.Time `json:"created_at"`
}

type Patient struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Location is the resolved place of an ambulatory, used to render
// confirmation messages.
type Location struct {
	Ambulatory Ambulatory
	Ward       Ward
	Building   Building
}

// BuildingImport is one building with its wards and rooms, as loaded by the
// seed command.
type BuildingImport struct {
	Building Building
	Wards    []WardImport
}

type WardImport struct {
	Sector    string
	Specialty string
	Rooms     []int
}
