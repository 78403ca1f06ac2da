package gcal_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/gcal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *gcal.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := gcal.New(context.Background(), nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func serveFile(t *testing.T, w http.ResponseWriter, filePath string) {
	data := mustLoadJsonFile(t, filePath)
	defer data.Close()

	w.Header().Set("Content-Type", "application/json")
	if _, err := io.Copy(w, data); err != nil {
		t.Error(err)
	}
}

func TestClient_ListEvents(t *testing.T) {
	tests := []struct {
		name    string
		query   calendar.ListQuery
		handler func(t *testing.T) http.HandlerFunc
		want    calendar.EventPage
		wantErr bool
	}{
		{
			name: "success",
			query: calendar.ListQuery{
				CalendarID: "primary",
				TimeMin:    "2025-06-01T00:00:00Z",
				TimeMax:    "2025-07-01T00:00:00Z",
				PageToken:  "page-1",
				MaxResults: 250,
			},
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					if !strings.HasSuffix(r.URL.Path, "/calendars/primary/events") {
						t.Errorf("unexpected path %s", r.URL.Path)
					}

					q := r.URL.Query()
					for key, want := range map[string]string{
						"timeMin":      "2025-06-01T00:00:00Z",
						"timeMax":      "2025-07-01T00:00:00Z",
						"singleEvents": "true",
						"orderBy":      "startTime",
						"maxResults":   "250",
						"pageToken":    "page-1",
					} {
						if got := q.Get(key); got != want {
							t.Errorf("query %s = %q, want %q", key, got, want)
						}
					}

					serveFile(t, w, "testdata/events-page-1.json")
				}
			},
			want: calendar.EventPage{
				NextPageToken: "page-2",
				Items: []calendar.Event{
					{
						ID:       "evt-1",
						Summary:  "Dentist",
						Location: "High Street Dental",
						Start:    &calendar.EventTime{DateTime: "2025-06-02T09:00:00+01:00", TimeZone: "Europe/London"},
						End:      &calendar.EventTime{DateTime: "2025-06-02T09:30:00+01:00", TimeZone: "Europe/London"},
						ColorID:  "5",
						HTMLLink: "https://www.google.com/calendar/event?eid=evt-1",
					},
					{
						ID:          "evt-2",
						Summary:     "Annual leave",
						Description: "Spain",
						Start:       &calendar.EventTime{Date: "2025-06-03"},
						End:         &calendar.EventTime{Date: "2025-06-05"},
						ColorID:     "2",
						HTMLLink:    "https://www.google.com/calendar/event?eid=evt-2",
					},
				},
			},
		},
		{
			name:  "non 200 response status",
			query: calendar.ListQuery{CalendarID: "primary"},
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
				}
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler(t))

			got, err := client.ListEvents(context.Background(), tt.query)

			if (err != nil) != tt.wantErr {
				t.Errorf("Client.ListEvents() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Client.ListEvents() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClient_InsertEvent(t *testing.T) {
	var sent map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/calendars/primary/events") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Error(err)
		}
		serveFile(t, w, "testdata/inserted-event.json")
	})

	got, err := client.InsertEvent(context.Background(), "primary", calendar.Event{
		Summary: "Gym",
		Start:   &calendar.EventTime{DateTime: "2025-06-02T18:00:00", TimeZone: "Europe/London"},
		End:     &calendar.EventTime{DateTime: "2025-06-02T18:30:00", TimeZone: "Europe/London"},
		ColorID: "5",
	})
	if err != nil {
		t.Fatalf("Client.InsertEvent() error = %v", err)
	}

	if got.ID != "new-evt" || got.HTMLLink == "" {
		t.Errorf("Client.InsertEvent() = %+v", got)
	}

	start, _ := sent["start"].(map[string]any)
	if start["dateTime"] != "2025-06-02T18:00:00" || start["timeZone"] != "Europe/London" {
		t.Errorf("sent start = %v", sent["start"])
	}
	if sent["colorId"] != "5" || sent["summary"] != "Gym" {
		t.Errorf("sent body = %v", sent)
	}
}

func TestClient_ListCalendars(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/users/me/calendarList") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("minAccessRole"); got != "reader" {
			t.Errorf("minAccessRole = %q", got)
		}
		serveFile(t, w, "testdata/calendar-list.json")
	})

	got, err := client.ListCalendars(context.Background(), "reader", "")
	if err != nil {
		t.Fatalf("Client.ListCalendars() error = %v", err)
	}

	want := calendar.CalendarPage{Items: []calendar.Calendar{
		{ID: "primary-id", Summary: "me@example.com", AccessRole: "owner"},
		{ID: "uk#holiday@group.v.calendar.google.com", Summary: "Holidays in United Kingdom", AccessRole: "reader"},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Client.ListCalendars() = %+v, want %+v", got, want)
	}
}

func mustLoadJsonFile(t *testing.T, filePath string) *os.File {
	data, err := os.Open(filePath)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
