package report

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/BarkinBalci/action-event-service/internal/domain"
	"github.com/BarkinBalci/action-event-service/internal/dto"
	"github.com/BarkinBalci/action-event-service/internal/repository"
	"github.com/BarkinBalci/action-event-service/internal/service"
)

// Report modes
const (
	ModeChart     = "chart"
	ModeTable     = "table"
	ModeGroup     = "group"
	ModeSummary   = "summary"
	ModeTypes     = "types"
	ModeDashboard = "dashboard"
)

// DateLayout is the layout of the -from and -to flags
const DateLayout = "2006-01-02"

// ErrUsage marks invalid command line input
var ErrUsage = errors.New("usage")

// Options selects what the report prints
type Options struct {
	Mode   string
	PageID *int64
	Type   domain.EventType
	From   time.Time
	To     time.Time
}

// ParseOptions parses command line flags. Dates are calendar days in loc.
func ParseOptions(args []string, loc *time.Location, output io.Writer) (Options, error) {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		opts     Options
		pageID   int64
		typeName string
		from     string
		to       string
	)
	fs.StringVar(&opts.Mode, "mode", ModeDashboard, "chart, table, group, summary, types or dashboard")
	fs.Int64Var(&pageID, "page", 0, "restrict to one action page id")
	fs.StringVar(&typeName, "type", "", "restrict to one event type (views, emails, tweets, calls, signatures, congress_messages)")
	fs.StringVar(&from, "from", "", "first calendar day, "+DateLayout)
	fs.StringVar(&to, "to", "", "last calendar day, inclusive, "+DateLayout)

	if err := fs.Parse(args); err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	switch opts.Mode {
	case ModeChart, ModeTable, ModeGroup, ModeSummary, ModeTypes, ModeDashboard:
	default:
		return Options{}, fmt.Errorf("%w: unknown mode %q", ErrUsage, opts.Mode)
	}

	if pageID != 0 {
		opts.PageID = &pageID
	}

	if typeName != "" {
		eventType, ok := domain.ParseEventType(typeName)
		if !ok {
			return Options{}, fmt.Errorf("%w: unknown type %q", ErrUsage, typeName)
		}
		opts.Type = eventType
	}

	var err error
	if opts.From, err = parseDay(from, loc); err != nil {
		return Options{}, err
	}
	if opts.To, err = parseDay(to, loc); err != nil {
		return Options{}, err
	}
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.To.Before(opts.From) {
		return Options{}, fmt.Errorf("%w: -to %s is before -from %s", ErrUsage, to, from)
	}

	return opts, nil
}

func parseDay(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want %s", ErrUsage, value, DateLayout)
	}
	return day, nil
}

// Query builds the event filter selected by the options
func (o Options) Query() repository.Query {
	query := repository.NewQuery()
	if o.PageID != nil {
		query = query.OnPage(*o.PageID)
	}
	if o.Type != "" {
		query = query.OfType(o.Type)
	}

	switch {
	case !o.To.IsZero():
		query = query.InRange(o.From, o.To)
	case !o.From.IsZero():
		query.From = o.From
	}
	return query
}

// Dashboard is the combined report of one action page
type Dashboard struct {
	Types   []domain.EventType                    `json:"types"`
	Summary dto.SummaryResponse                   `json:"summary"`
	Table   service.Table                         `json:"table"`
	ByType  map[domain.EventType][]dto.ChartPoint `json:"by_type"`
}

// Reporter runs reports against the event service. One Reporter serves
// one report run, so its summary is computed at most once.
type Reporter struct {
	events    service.EventServicer
	summaries *service.SummaryCache
}

func NewReporter(events service.EventServicer) *Reporter {
	return &Reporter{
		events:    events,
		summaries: service.NewSummaryCache(events),
	}
}

// Run produces the JSON-ready result of the selected mode
func (r *Reporter) Run(ctx context.Context, opts Options) (any, error) {
	switch opts.Mode {
	case ModeChart:
		points, err := r.events.ChartData(ctx, opts.Query())
		if err != nil {
			return nil, err
		}
		return chartPoints(points), nil

	case ModeTable:
		return r.events.TableData(ctx, opts.Query())

	case ModeGroup:
		points, err := r.events.GroupByDate(ctx, opts.Query())
		if err != nil {
			return nil, err
		}
		return chartPoints(points), nil

	case ModeSummary:
		summary, err := r.summaries.Summary(ctx)
		if err != nil {
			return nil, err
		}
		return dto.SummaryResponse{View: summary.View, Action: summary.Action}, nil

	case ModeTypes:
		return r.events.ActionTypesForPage(ctx, opts.PageID)

	case ModeDashboard:
		return r.dashboard(ctx, opts)
	}

	return nil, fmt.Errorf("%w: unknown mode %q", ErrUsage, opts.Mode)
}

func (r *Reporter) dashboard(ctx context.Context, opts Options) (*Dashboard, error) {
	types, err := r.events.ActionTypesForPage(ctx, opts.PageID)
	if err != nil {
		return nil, err
	}

	summary, err := r.summaries.Summary(ctx)
	if err != nil {
		return nil, err
	}

	untyped := opts
	untyped.Type = ""
	table, err := r.events.TableData(ctx, untyped.Query())
	if err != nil {
		return nil, err
	}

	byType := make(map[domain.EventType][]dto.ChartPoint, len(types))
	for _, eventType := range types {
		typed := opts
		typed.Type = eventType
		points, err := r.events.GroupByDate(ctx, typed.Query())
		if err != nil {
			return nil, fmt.Errorf("failed to group %s: %w", eventType, err)
		}
		byType[eventType] = chartPoints(points)
	}

	return &Dashboard{
		Types:   types,
		Summary: dto.SummaryResponse{View: summary.View, Action: summary.Action},
		Table:   table,
		ByType:  byType,
	}, nil
}

func chartPoints(counts []service.DayCount) []dto.ChartPoint {
	points := make([]dto.ChartPoint, 0, len(counts))
	for _, count := range counts {
		points = append(points, dto.ChartPoint{
			Name:  count.Name,
			Day:   count.Label,
			Count: count.Count,
		})
	}
	return points
}
