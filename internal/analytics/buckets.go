package analytics

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/aegisshield/case-dashboard/internal/models"
)

// Granularity is the width of one time bucket
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Chart windows offered by the dashboard, each drawn at a fixed granularity
const (
	PeriodDay     = "day"
	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodYear    = "year"
	DefaultPeriod = PeriodYear
)

const (
	hourBuckets  = 24
	dayBuckets   = 7
	weekBuckets  = 4
	monthBuckets = 12
)

var periodGranularity = map[string]Granularity{
	PeriodDay:   GranularityHour,
	PeriodWeek:  GranularityDay,
	PeriodMonth: GranularityWeek,
	PeriodYear:  GranularityMonth,
}

var shortMonths = [...]string{"Janv", "Févr", "Mars", "Avr", "Mai", "Juin", "Juil", "Août", "Sept", "Oct", "Nov", "Déc"}

// ParsePeriod maps a chart window name to its bucket granularity
func ParsePeriod(period string) (Granularity, error) {
	g, ok := periodGranularity[period]
	if !ok {
		return "", errors.Errorf("unsupported period %q", period)
	}
	return g, nil
}

// ChartData is a bucketed series per category, ready for a chart widget
type ChartData struct {
	Granularity Granularity `json:"granularity"`
	Labels      []string    `json:"labels"`
	Datasets    []Dataset   `json:"datasets"`
	Totals      []int       `json:"totals"`
	Metadata    ChartMeta   `json:"metadata"`
}

// Dataset is the per-bucket count for one category
type Dataset struct {
	CategoryID string `json:"category_id"`
	Label      string `json:"label"`
	Data       []int  `json:"data"`
	Total      int    `json:"total"`
}

// ChartMeta describes how the chart was computed
type ChartMeta struct {
	GeneratedAt time.Time `json:"generated_at"`
	TotalCount  int       `json:"total_count"`
	Excluded    int       `json:"excluded"`
}

// bucketIndexer returns the bucket of t, or -1 when t is outside the window
type bucketIndexer func(t time.Time) int

// Buckets counts records per category in fixed windows ending at now. Times
// are compared in now's location. Records outside the window, without a
// creation time or with an unknown category are left out of every series.
func Buckets(records []models.CaseRecord, categories []models.Category, granularity Granularity, now time.Time) ChartData {
	labels, index := layout(granularity, now)

	chart := ChartData{
		Granularity: granularity,
		Labels:      labels,
		Datasets:    make([]Dataset, len(categories)),
		Totals:      make([]int, len(labels)),
		Metadata:    ChartMeta{GeneratedAt: now},
	}

	series := make(map[string]int, len(categories))
	for i, c := range categories {
		chart.Datasets[i] = Dataset{CategoryID: c.ID, Label: c.Name, Data: make([]int, len(labels))}
		series[c.ID] = i
	}

	loc := now.Location()
	for i := range records {
		r := &records[i]
		s, ok := series[r.Category]
		if !ok || !r.HasCreatedAt() {
			chart.Metadata.Excluded++
			continue
		}
		b := index(r.CreatedAt.In(loc))
		if b < 0 {
			chart.Metadata.Excluded++
			continue
		}
		chart.Datasets[s].Data[b]++
		chart.Datasets[s].Total++
		chart.Totals[b]++
		chart.Metadata.TotalCount++
	}

	return chart
}

func layout(granularity Granularity, now time.Time) ([]string, bucketIndexer) {
	switch granularity {
	case GranularityHour:
		return hourly(now)
	case GranularityDay:
		return daily(now)
	case GranularityWeek:
		return weekly(now)
	default:
		return monthly(now)
	}
}

// hourly is the trailing 24 hours. Buckets are keyed by the instant the local
// hour started, so the repeated hour of a DST fall-back day gets two buckets.
func hourly(now time.Time) ([]string, bucketIndexer) {
	labels := make([]string, hourBuckets)
	positions := make(map[int64]int, hourBuckets)
	for i := 0; i < hourBuckets; i++ {
		t := now.Add(-time.Duration(hourBuckets-1-i) * time.Hour)
		labels[i] = fmt.Sprintf("%dh", t.Hour())
		positions[hourStart(t)] = i
	}

	return labels, func(t time.Time) int {
		if i, ok := positions[hourStart(t)]; ok {
			return i
		}
		return -1
	}
}

// hourStart is the unix second at which the wall-clock hour of t began
func hourStart(t time.Time) int64 {
	offset := time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	return t.Add(-offset).Unix()
}

// daily is the trailing 7 days. Matching uses day and month only, so a record
// from the same date in an earlier year lands in the same bucket.
func daily(now time.Time) ([]string, bucketIndexer) {
	type dayKey struct {
		m time.Month
		d int
	}
	key := func(t time.Time) dayKey { return dayKey{t.Month(), t.Day()} }

	labels := make([]string, dayBuckets)
	positions := make(map[dayKey]int, dayBuckets)
	for i := 0; i < dayBuckets; i++ {
		t := now.AddDate(0, 0, -(dayBuckets - 1 - i))
		labels[i] = fmt.Sprintf("%d/%d", t.Day(), int(t.Month()))
		positions[key(t)] = i
	}

	return labels, func(t time.Time) int {
		if i, ok := positions[key(t)]; ok {
			return i
		}
		return -1
	}
}

// weekly splits the current month into "Sem 1".."Sem 4" by ceil(day/7).
// Days 29 to 31 fall into a fifth week that is not charted.
func weekly(now time.Time) ([]string, bucketIndexer) {
	labels := make([]string, weekBuckets)
	for i := range labels {
		labels[i] = fmt.Sprintf("Sem %d", i+1)
	}

	return labels, func(t time.Time) int {
		if t.Year() != now.Year() || t.Month() != now.Month() {
			return -1
		}
		week := (t.Day() + 6) / 7
		if week > weekBuckets {
			return -1
		}
		return week - 1
	}
}

// monthly is the trailing 12 months ending with the current one
func monthly(now time.Time) ([]string, bucketIndexer) {
	type monthKey struct {
		y int
		m time.Month
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	labels := make([]string, monthBuckets)
	positions := make(map[monthKey]int, monthBuckets)
	for i := 0; i < monthBuckets; i++ {
		t := first.AddDate(0, -(monthBuckets - 1 - i), 0)
		labels[i] = MonthLabel(t)
		positions[monthKey{t.Year(), t.Month()}] = i
	}

	return labels, func(t time.Time) int {
		if i, ok := positions[monthKey{t.Year(), t.Month()}]; ok {
			return i
		}
		return -1
	}
}

// MonthLabel renders a month as its French short name and two-digit year
func MonthLabel(t time.Time) string {
	return fmt.Sprintf("%s %02d", shortMonths[t.Month()-1], t.Year()%100)
}
