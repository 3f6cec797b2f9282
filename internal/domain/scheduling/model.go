package scheduling

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/booking/pkg/pagination"
)

// TimeOfDay is a wall-clock time as minutes since midnight.
type TimeOfDay int

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Agenda is a doctor's recurring schedule for one weekday, bound to a room.
type Agenda struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	Weekday         string    `json:"weekday"`
	RoomID          int64     `json:"room_id"`
	WorkStart       TimeOfDay `json:"work_start"`
	BreakStart      TimeOfDay `json:"break_start"`
	BreakEnd        TimeOfDay `json:"break_end"`
	WorkEnd         TimeOfDay `json:"work_end"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SlotTimes is the list of slot start times the agenda produces on each of its days.
func (a *Agenda) SlotTimes() ([]TimeOfDay, error) {
	return GenerateSlotTimes(a.WorkStart, a.BreakStart, a.BreakEnd, a.WorkEnd, a.DurationMinutes)
}

// TimeSlot is one bookable appointment start for a doctor on a date.
type TimeSlot struct {
	ID        uuid.UUID `json:"id"`
	Day       time.Time `json:"-"`
	Weekday   string    `json:"weekday"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	SlotTime  TimeOfDay `json:"slot_time"`
	Available bool      `json:"available"`
}

func (s TimeSlot) MarshalJSON() ([]byte, error) {
	type alias TimeSlot
	return json.Marshal(struct {
		alias
		Day string `json:"day"`
	}{alias: alias(s), Day: s.Day.Format(DateLayout)})
}

// AgendaRequest is the raw input of CreateOrUpdateAgenda. Times are "HH:MM"
// strings and Duration is an "HH:MM" length.
type AgendaRequest struct {
	DoctorID   uuid.UUID `json:"doctor_id"`
	Weekday    string    `json:"weekday"`
	BuildingID int64     `json:"building_id"`
	WorkStart  string    `json:"work_start"`
	BreakStart string    `json:"break_start"`
	BreakEnd   string    `json:"break_end"`
	WorkEnd    string    `json:"work_end"`
	Duration   string    `json:"duration"`
	IsUpdate   bool      `json:"-"`
}

// SlotQuery selects available slots of one doctor. Day, when set, wins over
// the From/To range; both bounds of the range are inclusive.
type SlotQuery struct {
	DoctorID uuid.UUID
	Day      *time.Time
	From     *time.Time
	To       *time.Time
	Sort     []pagination.SortField
	Page     pagination.Params
}

// SlotSortFields whitelists the public sort names for SlotQuery.
var SlotSortFields = map[string]string{
	"day":       "day",
	"slot_time": "slot_time",
}
