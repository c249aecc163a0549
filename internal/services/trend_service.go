package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lifedash/internal/cache"
	"lifedash/internal/core"
	applog "lifedash/internal/log"
	"lifedash/internal/records"
	"lifedash/internal/trend"
)

// ErrInvalidQuery wraps trend and overview parameters that fail validation.
var ErrInvalidQuery = errors.New("invalid query")

// TrendQuery asks for one aggregated series.
type TrendQuery struct {
	Kind    core.RecordKind
	Options trend.Options
	Filter  trend.Filter
}

// TrendReport is a series plus its per-group totals.
type TrendReport struct {
	trend.Result
	Totals      []core.GroupAmount `json:"totals"`
	RecordCount int                `json:"record_count"`
}

// OptionsReport lists what a dataset can be filtered by and the dates it
// spans. From and To are empty when no record has a valid date.
type OptionsReport struct {
	Kind core.RecordKind `json:"kind"`
	trend.FilterOptions
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type TrendServiceConfig struct {
	CacheSize int
	CacheTTL  time.Duration
	Location  *time.Location
}

// TrendService answers trend, option and overview queries. Datasets and
// reports are cached per kind; concurrent misses for the same key share one
// backend read.
type TrendService struct {
	reader   records.Reader
	loc      *time.Location
	datasets cache.Cache[core.Dataset]
	reports  cache.Cache[TrendReport]
	group    singleflight.Group

	// gens counts invalidations per kind. A load only fills the caches when
	// the generation it started under is still current.
	mu   sync.Mutex
	gens map[core.RecordKind]uint64
}

func NewTrendService(reader records.Reader, cfg TrendServiceConfig) *TrendService {
	if cfg.CacheSize < 1 {
		cfg.CacheSize = 128
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &TrendService{
		reader:   reader,
		loc:      cfg.Location,
		datasets: cache.NewLRUCache[core.Dataset](len(core.Kinds()), cfg.CacheTTL),
		reports:  cache.NewLRUCache[TrendReport](cfg.CacheSize, cfg.CacheTTL),
		gens:     make(map[core.RecordKind]uint64),
	}
}

// Location is the zone dates without an offset are read in.
func (s *TrendService) Location() *time.Location {
	return s.loc
}

// Cleaners exposes the caches for periodic expiry.
func (s *TrendService) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{s.datasets, s.reports}
}

// CacheStats reports the report cache counters.
func (s *TrendService) CacheStats() cache.Stats {
	return s.reports.Stats()
}

// Invalidate drops everything cached for kind.
func (s *TrendService) Invalidate(kind core.RecordKind) {
	s.mu.Lock()
	s.gens[kind]++
	s.mu.Unlock()

	s.datasets.Delete(kind.String())
	n := s.reports.DeletePrefix(kind.String() + "|")
	slog.Debug("Trend cache invalidated", applog.FieldKind, kind, "reports", n)
}

// Dataset returns the cached records of kind, loading them on a miss.
func (s *TrendService) Dataset(ctx context.Context, kind core.RecordKind) (core.Dataset, error) {
	if !kind.Valid() {
		return core.Dataset{}, fmt.Errorf("%w: %q", core.ErrUnknownKind, kind)
	}
	key := kind.String()
	if ds, ok := s.datasets.Get(key); ok {
		return ds, nil
	}
	gen := s.generation(kind)
	v, err, _ := s.group.Do(flightKey("dataset", key, gen), func() (any, error) {
		ds, err := records.Load(ctx, s.reader, kind)
		if err != nil {
			return core.Dataset{}, err
		}
		if s.generation(kind) == gen {
			s.datasets.Set(key, ds)
		}
		return ds, nil
	})
	if err != nil {
		return core.Dataset{}, err
	}
	return v.(core.Dataset), nil
}

// Trend filters and aggregates one dataset.
func (s *TrendService) Trend(ctx context.Context, q TrendQuery) (TrendReport, error) {
	if err := q.Options.Validate(); err != nil {
		return TrendReport{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	q.Options.Location = s.loc
	q.Filter = q.Filter.Normalized()

	key := trendKey(q)
	if report, ok := s.reports.Get(key); ok {
		slog.DebugContext(ctx, "Trend served from cache", applog.FieldKind, q.Kind, applog.FieldCacheHit, true)
		return report, nil
	}

	gen := s.generation(q.Kind)
	v, err, _ := s.group.Do(flightKey("report", key, gen), func() (any, error) {
		ds, err := s.Dataset(ctx, q.Kind)
		if err != nil {
			return TrendReport{}, err
		}
		filtered := q.Filter.Apply(ds, s.loc)
		res := trend.Aggregate(filtered, q.Options)
		report := TrendReport{Result: res, Totals: trend.Totals(res), RecordCount: filtered.Len()}
		if s.generation(q.Kind) == gen {
			s.reports.Set(key, report)
		}

		fields := applog.NewFields().
			WithTrend(q.Kind.String(), q.Options.PeriodSize, string(q.Options.PeriodUnit), string(q.Options.ViewMode), len(res.Rows), len(res.Groups)).
			WithOperation(applog.OpAggregate)
		slog.DebugContext(ctx, "Trend aggregated", fields.ToSlice()...)
		return report, nil
	})
	if err != nil {
		return TrendReport{}, err
	}
	return v.(TrendReport), nil
}

// FilterOptions lists the selectable values and the date span of kind.
func (s *TrendService) FilterOptions(ctx context.Context, kind core.RecordKind) (OptionsReport, error) {
	ds, err := s.Dataset(ctx, kind)
	if err != nil {
		return OptionsReport{}, err
	}
	out := OptionsReport{Kind: kind, FilterOptions: trend.OptionsFor(ds)}
	if first, last, ok := trend.DateRange(ds, s.loc); ok {
		out.From = core.FormatDate(first)
		out.To = core.FormatDate(last)
	}
	return out, nil
}

// Overview summarizes kind for one window.
func (s *TrendService) Overview(ctx context.Context, kind core.RecordKind, q trend.OverviewQuery) (trend.Overview, error) {
	if err := q.Validate(); err != nil {
		return trend.Overview{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	ds, err := s.Dataset(ctx, kind)
	if err != nil {
		return trend.Overview{}, err
	}
	q.Location = s.loc
	return trend.BuildOverview(ds, q), nil
}

func (s *TrendService) generation(kind core.RecordKind) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[kind]
}

// flightKey scopes a singleflight call to one generation so callers that
// arrive after an invalidation start a fresh load.
func flightKey(prefix, key string, gen uint64) string {
	return prefix + ":" + strconv.FormatUint(gen, 10) + ":" + key
}

// trendKey renders a query in a canonical form. It starts with the kind so
// Invalidate can drop every report of a dataset by prefix.
func trendKey(q TrendQuery) string {
	var b strings.Builder
	b.WriteString(q.Kind.String())
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(q.Options.PeriodSize))
	b.WriteByte('|')
	b.WriteString(string(q.Options.PeriodUnit))
	b.WriteByte('|')
	b.WriteString(string(q.Options.ViewMode))
	if q.Filter.HasDateRange() {
		b.WriteString("|from=" + q.Filter.From.UTC().Format(time.RFC3339Nano) + "|to=" + q.Filter.To.UTC().Format(time.RFC3339Nano))
	}
	writeSelection(&b, "category", q.Filter.Categories)
	writeSelection(&b, "tag", q.Filter.Tags)
	writeSelection(&b, "account_type", q.Filter.AccountTypes)
	writeSelection(&b, "account_owner", q.Filter.AccountOwners)
	writeSelection(&b, "deduction_type", q.Filter.DeductionTypes)
	return b.String()
}

func writeSelection(b *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	b.WriteString("|" + name + "=" + strings.Join(sorted, "\x1f"))
}
