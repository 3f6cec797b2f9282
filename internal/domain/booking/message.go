package booking

import (
	"fmt"
	"time"

	"github.com/ehr/booking/internal/domain/catalog"
	"github.com/ehr/booking/internal/domain/scheduling"
)

const rejectionMessage = "Your booking has been rejected. Please contact us for more information."

func confirmationMessage(day time.Time, at scheduling.TimeOfDay, loc *catalog.Location) string {
	return fmt.Sprintf("Your booking has been confirmed. See you on %s at %s\nAmbulatory: %d\nWard: %s (sector: %s)\nBuilding: %s",
		day.Format(scheduling.DateLayout), at,
		loc.Ambulatory.RoomNumber,
		loc.Ward.Specialty, loc.Ward.Sector,
		loc.Building.Name)
}
