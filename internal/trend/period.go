package trend

import (
	"fmt"
	"strconv"
	"time"

	"lifedash/internal/core"
)

// PeriodUnit is the calendar unit periods are measured in.
type PeriodUnit string

const (
	Month PeriodUnit = "month"
	Year  PeriodUnit = "year"
)

const (
	MinPeriodSize = 1
	MaxPeriodSize = 24
)

// labelSeparator joins the first and last unit of a multi-unit period label.
const labelSeparator = " – "

// period is one aggregation window [start, end).
type period struct {
	key   string
	label string
	start time.Time
	end   time.Time
}

// periodizer maps instants to fixed-size windows anchored at the start of
// the earliest record's month or year.
type periodizer struct {
	unit   PeriodUnit
	size   int
	anchor time.Time
}

func newPeriodizer(unit PeriodUnit, size int, first time.Time) periodizer {
	anchor := core.StartOfMonth(first)
	if unit == Year {
		anchor = core.StartOfYear(first)
	}
	return periodizer{unit: unit, size: size, anchor: anchor}
}

func (p periodizer) periodOf(t time.Time) period {
	if p.unit == Year {
		idx := floorDiv(t.Year()-p.anchor.Year(), p.size)
		startYear := p.anchor.Year() + idx*p.size
		start := time.Date(startYear, time.January, 1, 0, 0, 0, 0, p.anchor.Location())
		label := strconv.Itoa(startYear)
		if p.size > 1 {
			label = fmt.Sprintf("%d%s%d", startYear, labelSeparator, startYear+p.size-1)
		}
		return period{
			key:   strconv.Itoa(startYear),
			label: label,
			start: start,
			end:   start.AddDate(p.size, 0, 0),
		}
	}

	idx := floorDiv(core.MonthsBetween(p.anchor, t), p.size)
	start := p.anchor.AddDate(0, idx*p.size, 0)
	label := start.Format("Jan 2006")
	if p.size > 1 {
		label += labelSeparator + start.AddDate(0, p.size-1, 0).Format("Jan 2006")
	}
	return period{
		key:   start.Format("2006-01"),
		label: label,
		start: start,
		end:   start.AddDate(0, p.size, 0),
	}
}

// floorDiv rounds toward negative infinity so instants before the anchor
// still land in a well-defined window.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
