package leave

import (
	"leaveflow/internal/domain/balance"
	"leaveflow/internal/domain/calendar"
	"leaveflow/internal/platform/apperror"
)

// requestDuration returns days for regular leave and hours for short leave.
// An explicit duration wins over anything computed from the dates.
func requestDuration(in ApplyInput, counter WorkingDayCounter) (float64, error) {
	if in.Duration != nil {
		if *in.Duration <= 0 {
			return 0, apperror.Wrapf(ErrInvalidRequest, "duration must be positive")
		}
		return *in.Duration, nil
	}

	switch in.Type {
	case balance.TypeShort:
		from, err := calendar.ParseClock(in.StartDate, in.TimeRange.Start)
		if err != nil {
			return 0, err
		}
		to, err := calendar.ParseClock(in.EndDate, in.TimeRange.End)
		if err != nil {
			return 0, err
		}
		return calendar.HoursBetween(from, to), nil
	default:
		if counter == nil {
			return calendar.CalculateDays(in.StartDate, in.EndDate)
		}
		return counter.WorkingDays(in.StartDate, in.EndDate)
	}
}
