package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeZone   = "Europe/London"
	DefaultCalendarID = "primary"
	DefaultColor      = "5"

	// MaxPageSize is the largest page the calendar backend is asked for.
	MaxPageSize       = 250
	DefaultMaxResults = 3000
)

// Environment holds the variables the lambda is configured with.
type Environment struct {
	DefaultTZ    string `env:"DEFAULT_TZ" envDefault:"Europe/London"`
	CalendarID   string `env:"CALENDAR_ID" envDefault:"primary"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY,required"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	S3Bucket     string `env:"S3_BUCKET_NAME" envDefault:"gpt-assistant-static-web-app"`
	S3TokenKey   string `env:"S3_TOKEN_KEY" envDefault:"token/token_lambda.json"`
	TopicARN     string `env:"TOPIC_ARN"`
	KeywordsFile string `env:"KEYWORDS_FILE"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

func ParseEnvironment() (*Environment, error) {
	envVars := &Environment{}

	err := env.Parse(envVars)
	if err != nil {
		return nil, fmt.Errorf("error parsing environment variables %w", err)
	}

	return envVars, nil
}

// ColorRule maps a lowercase summary keyword to a calendar colour id.
type ColorRule struct {
	Keyword string `yaml:"keyword"`
	Color   string `yaml:"color"`
}

// Settings is the read-only configuration shared by the engine for the
// lifetime of the process. Build it once with New and pass it by value.
type Settings struct {
	TimeZone      string
	Location      *time.Location
	CalendarID    string
	ColorRules    []ColorRule
	DefaultColor  string
	LeaveTerms    []string
	SkipCalendars []string
	PageSize      int64
	MaxResults    int
}

// Keywords is the YAML shape of a keyword override file.
type Keywords struct {
	Colors        []ColorRule `yaml:"colors"`
	DefaultColor  string      `yaml:"default_color"`
	LeaveTerms    []string    `yaml:"leave_terms"`
	SkipCalendars []string    `yaml:"skip_calendars"`
}

// Leave rules precede work rules; the first matching keyword wins.
var defaultColorRules = []ColorRule{
	{Keyword: "annual leave", Color: "2"},
	{Keyword: "annual-leave", Color: "2"},
	{Keyword: "holiday", Color: "2"},
	{Keyword: "vacation", Color: "2"},
	{Keyword: "leave", Color: "2"},
	{Keyword: "work", Color: "5"},
	{Keyword: "shift", Color: "5"},
	{Keyword: "on call", Color: "5"},
	{Keyword: "on-call", Color: "5"},
	{Keyword: "cover", Color: "5"},
	{Keyword: "overtime", Color: "5"},
	{Keyword: "work related", Color: "5"},
	{Keyword: "work-related", Color: "5"},
}

var defaultLeaveTerms = []string{"annual leave", "holiday", "holidays", "vacation", "leave"}

var defaultSkipCalendars = []string{"holiday", "birthday"}

// New builds Settings for the given zone and calendar with the built-in keyword tables.
func New(timeZone, calendarID string) (Settings, error) {
	if timeZone == "" {
		timeZone = DefaultTimeZone
	}
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return Settings{}, fmt.Errorf("error loading time zone %q: %w", timeZone, err)
	}

	return Settings{
		TimeZone:      timeZone,
		Location:      loc,
		CalendarID:    calendarID,
		ColorRules:    append([]ColorRule(nil), defaultColorRules...),
		DefaultColor:  DefaultColor,
		LeaveTerms:    append([]string(nil), defaultLeaveTerms...),
		SkipCalendars: append([]string(nil), defaultSkipCalendars...),
		PageSize:      MaxPageSize,
		MaxResults:    DefaultMaxResults,
	}, nil
}

// FromEnvironment builds Settings from parsed environment variables, applying
// the keyword file when one is configured.
func FromEnvironment(envVars *Environment) (Settings, error) {
	settings, err := New(envVars.DefaultTZ, envVars.CalendarID)
	if err != nil {
		return Settings{}, err
	}

	if envVars.KeywordsFile == "" {
		return settings, nil
	}

	keywords, err := LoadKeywords(envVars.KeywordsFile)
	if err != nil {
		return Settings{}, err
	}

	return settings.WithKeywords(keywords), nil
}

func LoadKeywords(path string) (Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("error reading keywords file %s: %w", path, err)
	}

	keywords := Keywords{}

	err = yaml.Unmarshal(data, &keywords)
	if err != nil {
		return Keywords{}, fmt.Errorf("error unmarshalling keywords file %s: %w", path, err)
	}

	for _, rule := range keywords.Colors {
		if rule.Keyword == "" || rule.Color == "" {
			return Keywords{}, errors.New("error keywords file has a colour rule without keyword or color")
		}
	}

	return keywords, nil
}

// WithKeywords returns a copy of s with every non-empty table in k replacing the built-in one.
func (s Settings) WithKeywords(k Keywords) Settings {
	if len(k.Colors) > 0 {
		s.ColorRules = append([]ColorRule(nil), k.Colors...)
	}
	if k.DefaultColor != "" {
		s.DefaultColor = k.DefaultColor
	}
	if len(k.LeaveTerms) > 0 {
		s.LeaveTerms = append([]string(nil), k.LeaveTerms...)
	}
	if len(k.SkipCalendars) > 0 {
		s.SkipCalendars = append([]string(nil), k.SkipCalendars...)
	}
	return s
}
