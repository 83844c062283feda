package calendar

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leaveflow/internal/platform/apperror"
	"leaveflow/internal/platform/logger"
)

type Holiday struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Calendar holds the weekend days and named holidays that regular leave
// durations skip.
type Calendar struct {
	mu       sync.RWMutex
	weekend  map[time.Weekday]bool
	holidays map[string]Holiday
	byDate   map[string]string
	logger   *zap.Logger
}

func New(weekendDays []int, l *zap.Logger) (*Calendar, error) {
	c := &Calendar{
		weekend:  make(map[time.Weekday]bool),
		holidays: make(map[string]Holiday),
		byDate:   make(map[string]string),
		logger:   logger.Named(l, "calendar"),
	}
	for _, day := range weekendDays {
		if day < 0 || day > 6 {
			return nil, apperror.Wrapf(ErrInvalidWeekday, "got %d", day)
		}
		c.weekend[time.Weekday(day)] = true
	}
	return c, nil
}

func (c *Calendar) AddHoliday(date time.Time, name string) (Holiday, error) {
	name = strings.TrimSpace(name)
	if date.IsZero() || name == "" {
		return Holiday{}, ErrInvalidHoliday
	}
	date = DateOnly(date)
	key := date.Format(dateLayout)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byDate[key]; exists {
		return Holiday{}, apperror.Wrapf(ErrHolidayExists, "date %s", key)
	}
	h := Holiday{ID: uuid.NewString(), Date: date, Name: name}
	c.holidays[h.ID] = h
	c.byDate[key] = h.ID
	c.logger.Info("holiday added", zap.String("holiday_id", h.ID), zap.String("date", key), zap.String("name", name))
	return h, nil
}

func (c *Calendar) DeleteHoliday(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.holidays[id]
	if !ok {
		return apperror.Wrapf(ErrHolidayNotFound, "id %s", id)
	}
	delete(c.holidays, id)
	delete(c.byDate, h.Date.Format(dateLayout))
	c.logger.Info("holiday deleted", zap.String("holiday_id", id))
	return nil
}

// ToggleWeekendDay flips whether weekday counts as a weekend day and returns
// the resulting weekend set.
func (c *Calendar) ToggleWeekendDay(weekday int) ([]int, error) {
	if weekday < 0 || weekday > 6 {
		return nil, apperror.Wrapf(ErrInvalidWeekday, "got %d", weekday)
	}
	c.mu.Lock()
	day := time.Weekday(weekday)
	if c.weekend[day] {
		delete(c.weekend, day)
	} else {
		c.weekend[day] = true
	}
	out := c.weekendLocked()
	c.mu.Unlock()

	c.logger.Info("weekend days changed", zap.Ints("weekend_days", out))
	return out, nil
}

func (c *Calendar) WeekendDays() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weekendLocked()
}

func (c *Calendar) weekendLocked() []int {
	out := make([]int, 0, len(c.weekend))
	for day := range c.weekend {
		out = append(out, int(day))
	}
	sort.Ints(out)
	return out
}

// Holidays returns all holidays ordered by date.
func (c *Calendar) Holidays() []Holiday {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Holiday, 0, len(c.holidays))
	for _, h := range c.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (c *Calendar) IsWorkingDay(day time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isWorkingDayLocked(DateOnly(day))
}

func (c *Calendar) isWorkingDayLocked(day time.Time) bool {
	if c.weekend[day.Weekday()] {
		return false
	}
	_, holiday := c.byDate[day.Format(dateLayout)]
	return !holiday
}

// WorkingDays counts the days in [start, end] that are neither weekend days
// nor holidays.
func (c *Calendar) WorkingDays(start, end time.Time) (float64, error) {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return 0, ErrInvalidRange
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var days float64
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if c.isWorkingDayLocked(day) {
			days++
		}
	}
	return days, nil
}
