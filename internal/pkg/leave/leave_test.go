package leave_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/config"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/leave"
)

type mockFetcher struct {
	FetchFunc func(timeMin, timeMax string) ([]calendar.Event, error)
}

func (m *mockFetcher) FetchAcrossCalendars(ctx context.Context, timeMin, timeMax string, maxResults int) ([]calendar.Event, error) {
	return m.FetchFunc(timeMin, timeMax)
}

func mustAggregator(t *testing.T, fetcher leave.Fetcher) *leave.Aggregator {
	t.Helper()

	settings, err := config.New("Europe/London", "primary")
	if err != nil {
		t.Fatal(err)
	}
	return &leave.Aggregator{Fetcher: fetcher, Settings: settings}
}

func span(summary, start, end string) calendar.Event {
	return calendar.Event{
		Summary: summary,
		Start:   &calendar.EventTime{Date: start},
		End:     &calendar.EventTime{Date: end},
	}
}

func TestUnitsForEvent(t *testing.T) {
	tests := []struct {
		name  string
		event calendar.Event
		want  float64
	}{
		{name: "two day span", event: span("Annual leave", "2025-06-02", "2025-06-04"), want: 2},
		{name: "single day", event: span("Annual leave", "2025-06-02", "2025-06-03"), want: 1},
		{name: "end not after start", event: span("Annual leave", "2025-06-02", "2025-06-02"), want: 1},
		{name: "half day in summary", event: span("Half-day leave", "2025-06-02", "2025-06-03"), want: 0.5},
		{name: "half day symbol in description", event: calendar.Event{
			Summary:     "Leave",
			Description: "½ pm",
			Start:       &calendar.EventTime{DateTime: "2025-06-02T13:00:00Z"},
		}, want: 0.5},
		{name: "half day holiday with timed start", event: calendar.Event{
			Summary: "Half day holiday",
			Start:   &calendar.EventTime{DateTime: "2025-06-02T09:00:00Z"},
			End:     &calendar.EventTime{DateTime: "2025-06-02T17:00:00Z"},
		}, want: 0.5},
		{name: "timed", event: calendar.Event{
			Summary: "Leave",
			Start:   &calendar.EventTime{DateTime: "2025-06-02T09:00:00Z"},
			End:     &calendar.EventTime{DateTime: "2025-06-02T17:00:00Z"},
		}, want: 1},
	}
	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			if got := leave.UnitsForEvent(tt.event); got != tt.want {
				t.Errorf("UnitsForEvent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_Tally(t *testing.T) {
	tests := []struct {
		name   string
		events []calendar.Event
		want   leave.Report
	}{
		{
			name:   "no leave",
			events: []calendar.Event{span("Dentist", "2025-06-02", "2025-06-03")},
			want:   leave.Report{Year: 2025, ByMonth: map[string]*leave.Month{}},
		},
		{
			name:   "multi day span",
			events: []calendar.Event{span("Annual Leave", "2025-06-02", "2025-06-04")},
			want: leave.Report{Year: 2025, TotalUnits: 2, ByMonth: map[string]*leave.Month{
				"2025-06": {Units: 2, Days: []int{2, 3}},
			}},
		},
		{
			name: "half day and span in the same month",
			events: []calendar.Event{
				span("Holiday", "2025-06-02", "2025-06-04"),
				{
					Summary: "Half day vacation",
					Start:   &calendar.EventTime{DateTime: "2025-06-10T13:00:00+01:00"},
					End:     &calendar.EventTime{DateTime: "2025-06-10T17:00:00+01:00"},
				},
			},
			want: leave.Report{Year: 2025, TotalUnits: 2.5, ByMonth: map[string]*leave.Month{
				"2025-06": {Units: 2.5, Days: []int{2, 3, 10}},
			}},
		},
		{
			name:   "span crossing months",
			events: []calendar.Event{span("Annual leave", "2025-04-30", "2025-05-02")},
			want: leave.Report{Year: 2025, TotalUnits: 2, ByMonth: map[string]*leave.Month{
				"2025-04": {Units: 1, Days: []int{30}},
				"2025-05": {Units: 1, Days: []int{1}},
			}},
		},
		{
			name:   "days outside the year are ignored",
			events: []calendar.Event{span("Annual leave", "2025-12-31", "2026-01-02")},
			want: leave.Report{Year: 2025, TotalUnits: 1, ByMonth: map[string]*leave.Month{
				"2025-12": {Units: 1, Days: []int{31}},
			}},
		},
		{
			name:   "span crossing the new year counts only days in the year",
			events: []calendar.Event{span("Annual leave", "2025-12-30", "2026-01-03")},
			want: leave.Report{Year: 2025, TotalUnits: 2, ByMonth: map[string]*leave.Month{
				"2025-12": {Units: 2, Days: []int{30, 31}},
			}},
		},
		{
			name: "unusable start is skipped",
			events: []calendar.Event{
				{Summary: "Annual leave", Start: &calendar.EventTime{Date: "someday"}},
				span("Annual leave", "2025-03-03", "2025-03-04"),
			},
			want: leave.Report{Year: 2025, TotalUnits: 1, ByMonth: map[string]*leave.Month{
				"2025-03": {Units: 1, Days: []int{3}},
			}},
		},
	}
	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			a := mustAggregator(t, nil)

			got := a.Tally(tt.events, 2025)

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Aggregator.Tally() = %+v, want %+v", got, tt.want)
			}

			again := a.Tally(tt.events, 2025)
			if !reflect.DeepEqual(got, again) {
				t.Errorf("Aggregator.Tally() is not repeatable: %+v then %+v", got, again)
			}
		})
	}
}

func TestAggregator_BuildReport(t *testing.T) {
	tests := []struct {
		name    string
		fetch   func(timeMin, timeMax string) ([]calendar.Event, error)
		want    float64
		wantErr bool
	}{
		{
			name: "queries the whole year",
			fetch: func(timeMin, timeMax string) ([]calendar.Event, error) {
				if timeMin != "2025-01-01T00:00:00Z" || timeMax != "2026-01-01T00:00:00Z" {
					return nil, errors.New("unexpected window " + timeMin + " " + timeMax)
				}
				return []calendar.Event{span("Annual leave", "2025-08-04", "2025-08-09")}, nil
			},
			want: 5,
		},
		{
			name: "fetch failure",
			fetch: func(timeMin, timeMax string) ([]calendar.Event, error) {
				return nil, errors.New("backend down")
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			a := mustAggregator(t, &mockFetcher{FetchFunc: tt.fetch})

			got, err := a.BuildReport(context.Background(), 2025)

			if (err != nil) != tt.wantErr {
				t.Errorf("Aggregator.BuildReport() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if got.TotalUnits != tt.want {
				t.Errorf("Aggregator.BuildReport() total = %v, want %v", got.TotalUnits, tt.want)
			}
		})
	}
}

func TestAggregator_BuildReport_Repeatable(t *testing.T) {
	events := []calendar.Event{
		span("Annual leave", "2025-06-02", "2025-06-04"),
		span("Holiday", "2025-12-30", "2026-01-03"),
		span("Dentist", "2025-06-10", "2025-06-11"),
	}
	calls := 0
	a := mustAggregator(t, &mockFetcher{FetchFunc: func(timeMin, timeMax string) ([]calendar.Event, error) {
		calls++
		return events, nil
	}})

	first, err := a.BuildReport(context.Background(), 2025)
	if err != nil {
		t.Fatalf("Aggregator.BuildReport() error = %v", err)
	}
	second, err := a.BuildReport(context.Background(), 2025)
	if err != nil {
		t.Fatalf("Aggregator.BuildReport() error = %v", err)
	}

	if calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}
	if first.TotalUnits != 4 || second.TotalUnits != first.TotalUnits {
		t.Errorf("Aggregator.BuildReport() totals = %v then %v, want 4 both times", first.TotalUnits, second.TotalUnits)
	}
	if !reflect.DeepEqual(first.ByMonth, second.ByMonth) {
		t.Errorf("Aggregator.BuildReport() months = %+v then %+v", first.ByMonth, second.ByMonth)
	}
}

func TestReport_MonthKeys(t *testing.T) {
	r := leave.Report{ByMonth: map[string]*leave.Month{"2025-11": {}, "2025-02": {}, "2025-06": {}}}

	want := []string{"2025-02", "2025-06", "2025-11"}
	if got := r.MonthKeys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Report.MonthKeys() = %v, want %v", got, want)
	}
}
