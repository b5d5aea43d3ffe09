package engine

import (
	"fmt"
	"time"

	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/utils"
)

// DayStatus classifies one calendar day across all habits.
type DayStatus int

const (
	// Future days carry no completion data.
	Future DayStatus = iota
	// Pending is today with nothing done yet.
	Pending
	// Missed is a past day with nothing done.
	Missed
	// Partial means at least one but not every habit was done.
	Partial
	// AllDone requires at least one habit; an empty habit list never qualifies.
	AllDone
)

func (s DayStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Missed:
		return "missed"
	case Partial:
		return "partial"
	case AllDone:
		return "all_done"
	default:
		return "future"
	}
}

func (s DayStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DayStatus) UnmarshalText(b []byte) error {
	for st := Future; st <= AllDone; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown day status %q", b)
}

type DayCell struct {
	Day       int       `json:"day"`
	Date      string    `json:"date"`
	Status    DayStatus `json:"status"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	IsToday   bool      `json:"isToday"`
}

// Month is a Monday-first grid: LeadingBlanks empty slots then one cell per day.
type Month struct {
	Year          int        `json:"year"`
	Month         time.Month `json:"month"`
	LeadingBlanks int        `json:"leadingBlanks"`
	Cells         []DayCell  `json:"cells"`
}

// Label renders the month header, e.g. "May 2024".
func (m Month) Label() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}

// ProjectMonth computes the calendar for year/month against today's key.
func ProjectMonth(habits []models.Habit, year int, month time.Month, today string) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	n := utils.DaysInMonth(year, month)
	m := Month{
		Year:          year,
		Month:         month,
		LeadingBlanks: utils.MondayOffset(first.Weekday()),
		Cells:         make([]DayCell, n),
	}
	for d := 1; d <= n; d++ {
		date := utils.DateKey(year, month, d)
		done, status := dayStatus(habits, date, today)
		m.Cells[d-1] = DayCell{
			Day:       d,
			Date:      date,
			Status:    status,
			Completed: done,
			Total:     len(habits),
			IsToday:   date == today,
		}
	}
	return m
}

// StatusOn classifies a single date.
func StatusOn(habits []models.Habit, date, today string) DayStatus {
	_, status := dayStatus(habits, date, today)
	return status
}

func dayStatus(habits []models.Habit, date, today string) (int, DayStatus) {
	cmp := utils.CompareDates(date, today)
	if cmp > 0 {
		return 0, Future
	}
	done := 0
	for _, h := range habits {
		if h.HasCompleted(date) {
			done++
		}
	}
	switch {
	case len(habits) > 0 && done == len(habits):
		return done, AllDone
	case done > 0:
		return done, Partial
	case cmp == 0:
		return done, Pending
	default:
		return done, Missed
	}
}
