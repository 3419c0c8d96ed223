package booking

import (
	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
	"github.com/BruksfildServices01/clinic-scheduler/internal/timezone"
)

type SlotReason string

const (
	SlotAvailable           SlotReason = ""
	ReasonNoSchedule        SlotReason = "NO_SCHEDULE"
	ReasonOutsideWorkingHrs SlotReason = "OUTSIDE_WORKING_HOURS"
	ReasonSlotTaken         SlotReason = "SLOT_TAKEN"
)

type SlotQuery struct {
	DoctorID  uint
	BranchID  uint
	Date      string
	StartTime string
	EndTime   string
	Online    bool
}

type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Overlaps é o teste de intervalo semiaberto: a.start < b.end && a.end > b.start.
// Horários HH:MM com zero à esquerda comparam corretamente como string.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && aEnd > bStart
}

// CoversWindow verifica se o expediente cobre a janela, sem invadir a pausa.
func CoversWindow(wh *models.WorkingHours, start, end string) bool {
	if wh == nil || !wh.Published || wh.StartTime == "" || wh.EndTime == "" {
		return false
	}
	if start < wh.StartTime || end > wh.EndTime {
		return false
	}
	if wh.BreakStart != "" && wh.BreakEnd != "" && Overlaps(start, end, wh.BreakStart, wh.BreakEnd) {
		return false
	}
	return true
}

// Evaluate aplica as regras de disponibilidade sobre os dados já carregados.
// schedules: expedientes publicados do médico na filial/data.
// sameDay: todas as reservas do médico na data (qualquer status).
func Evaluate(q SlotQuery, schedules []models.WorkingHours, sameDay []models.Booking) SlotReason {
	if len(schedules) == 0 {
		return ReasonNoSchedule
	}

	covered := false
	for i := range schedules {
		if CoversWindow(&schedules[i], q.StartTime, q.EndTime) {
			covered = true
			break
		}
	}
	if !covered {
		return ReasonOutsideWorkingHrs
	}

	for _, b := range sameDay {
		st := Status(b.Status)
		if st.IsActive() && Overlaps(b.StartTime, b.EndTime, q.StartTime, q.EndTime) {
			return ReasonSlotTaken
		}
		// reserva online exige o horário de início totalmente livre
		if q.Online && st != StatusOnlineExpired && b.StartTime == q.StartTime {
			return ReasonSlotTaken
		}
	}

	return SlotAvailable
}

// FreeSlots lista os horários de início livres com a duração pedida.
func FreeSlots(schedules []models.WorkingHours, sameDay []models.Booking, durationMin int, online bool) []TimeSlot {
	slots := []TimeSlot{}
	if durationMin <= 0 {
		return slots
	}

	for _, wh := range schedules {
		if !wh.Published {
			continue
		}
		dayStart, err1 := timezone.Minutes(wh.StartTime)
		dayEnd, err2 := timezone.Minutes(wh.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}

		for cur := dayStart; cur+durationMin <= dayEnd; cur += durationMin {
			q := SlotQuery{
				StartTime: timezone.FormatMinutes(cur),
				EndTime:   timezone.FormatMinutes(cur + durationMin),
				Online:    online,
			}
			if Evaluate(q, []models.WorkingHours{wh}, sameDay) == SlotAvailable {
				slots = append(slots, TimeSlot{Start: q.StartTime, End: q.EndTime})
			}
		}
	}

	return slots
}
