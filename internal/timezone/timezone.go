package timezone

import "time"

const DefaultTimezone = "Asia/Ulaanbaatar"

const (
	DateLayout = "2006-01-02"
	HMLayout   = "15:04"
)

func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

func Location(tz string) *time.Location {
	if IsValid(tz) {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}

	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseDate valida uma data YYYY-MM-DD no timezone da clínica.
func ParseDate(date string, tz string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, Location(tz))
}

// ParseHM valida um horário HH:MM (24h).
func ParseHM(hm string) (time.Time, error) {
	if len(hm) != 5 {
		return time.Time{}, &time.ParseError{Layout: HMLayout, Value: hm}
	}
	return time.Parse(HMLayout, hm)
}

// Minutes converte HH:MM em minutos desde a meia-noite.
func Minutes(hm string) (int, error) {
	t, err := ParseHM(hm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinutes é o inverso de Minutes.
func FormatMinutes(m int) string {
	return time.Date(2000, 1, 1, m/60, m%60, 0, 0, time.UTC).Format(HMLayout)
}
