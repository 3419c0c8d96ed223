package handlers

import (
	"strconv"
	"time"

	"github.com/BruksfildServices01/clinic-scheduler/internal/models"
	"github.com/BruksfildServices01/clinic-scheduler/internal/timezone"
)

// --------------------------------------------------
// Timezone centralizado por filial
// --------------------------------------------------

func locationFromBranch(branch *models.Branch) *time.Location {
	if branch != nil {
		return timezone.Location(branch.Timezone)
	}
	return timezone.Location(timezone.DefaultTimezone)
}

func todayInBranch(branch *models.Branch) string {
	return time.Now().In(locationFromBranch(branch)).Format(timezone.DateLayout)
}

func parseUintParam(raw string) (uint, bool) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
