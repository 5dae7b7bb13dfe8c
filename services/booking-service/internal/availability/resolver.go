package availability

import "github.com/fracto-health/fracto/services/booking-service/internal/model"

// Taken returns the slot labels held by blocking appointments. Labels keep the
// casing they were stored with; duplicates are collapsed.
func Taken(appts []model.Appointment) []string {
	seen := make(map[string]struct{}, len(appts))
	taken := make([]string, 0, len(appts))
	for _, a := range appts {
		if !a.Status.IsBlocking() {
			continue
		}
		key := model.SlotKey(a.TimeSlot)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		taken = append(taken, a.TimeSlot)
	}
	return taken
}

// FreeFromTaken returns the candidates not in taken, in candidate order.
// Labels compare case-insensitively.
func FreeFromTaken(candidates, taken []string) []string {
	blocked := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		blocked[model.SlotKey(s)] = struct{}{}
	}
	free := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := blocked[model.SlotKey(c)]; ok {
			continue
		}
		free = append(free, c)
	}
	return free
}

// Free returns the candidates not held by a Pending, Booked or Completed
// appointment. Cancelled appointments never block.
func Free(candidates []string, appts []model.Appointment) []string {
	return FreeFromTaken(candidates, Taken(appts))
}
