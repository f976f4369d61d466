package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/bookingwidget/internal/internaltypes"
)

// Widget is the configuration of one widget mount. Caller-supplied values are
// merged over Defaults field by field; keys the widget does not know are kept
// in the Extra maps and passed through to the scheduling service or calendar.
type Widget struct {
	TargetEl string `yaml:"targetEl,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Email    string `yaml:"email,omitempty"`
	Avatar   string `yaml:"avatar,omitempty"`
	Calendar string `yaml:"calendar,omitempty"`
	APIToken string `yaml:"apiToken,omitempty"`

	Timekit      Timekit      `yaml:"timekitConfig,omitempty"`
	FindTime     FindTime     `yaml:"findTime,omitempty"`
	CreateEvent  CreateEvent  `yaml:"createEvent,omitempty"`
	UserTimezone UserTimezone `yaml:"userTimezone,omitempty"`
	FullCalendar FullCalendar `yaml:"fullCalendar,omitempty"`
	Localization Localization `yaml:"localization,omitempty"`
	Styling      Styling      `yaml:"styling,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

type Timekit struct {
	App        string         `yaml:"app,omitempty"`
	APIBaseURL string         `yaml:"apiBaseUrl,omitempty"`
	Extra      map[string]any `yaml:",inline"`
}

type FindTime struct {
	Emails []string       `yaml:"emails,omitempty"`
	Future string         `yaml:"future,omitempty"`
	Length string         `yaml:"length,omitempty"`
	Extra  map[string]any `yaml:",inline"`
}

type CreateEvent struct {
	What         string         `yaml:"what,omitempty"`
	Where        string         `yaml:"where,omitempty"`
	CalendarID   string         `yaml:"calendar_id,omitempty"`
	Participants []string       `yaml:"participants,omitempty"`
	Description  string         `yaml:"description,omitempty"`
	Invite       *bool          `yaml:"invite,omitempty"`
	MyRSVP       string         `yaml:"my_rsvp,omitempty"`
	Extra        map[string]any `yaml:",inline"`
}

type UserTimezone struct {
	Email string         `yaml:"email,omitempty"`
	Extra map[string]any `yaml:",inline"`
}

// FullCalendar holds calendar display overrides. DefaultView and Height win
// over the size policy when set.
type FullCalendar struct {
	DefaultView string            `yaml:"defaultView,omitempty"`
	Height      *int              `yaml:"height,omitempty"`
	Header      map[string]string `yaml:"header,omitempty"`
	ScrollTime  string            `yaml:"scrollTime,omitempty"`
	AllDaySlot  *bool             `yaml:"allDaySlot,omitempty"`
	Timezone    string            `yaml:"timezone,omitempty"`
	Extra       map[string]any    `yaml:",inline"`
}

type Localization struct {
	ShowTimezoneHelper *bool `yaml:"showTimezoneHelper,omitempty"`
}

// Styling toggles which stylesheet bundles the page links.
type Styling struct {
	FullCalendarCore  *bool `yaml:"fullCalendarCore,omitempty"`
	FullCalendarTheme *bool `yaml:"fullCalendarTheme,omitempty"`
	General           *bool `yaml:"general,omitempty"`
}

func Defaults() Widget {
	return Widget{
		TargetEl: "#bookingjs",
		Timekit:  Timekit{App: "bookingjs"},
		FindTime: FindTime{Future: "4 weeks", Length: "1 hour"},
		CreateEvent: CreateEvent{
			Where:  "Online",
			Invite: ptr(true),
			MyRSVP: "needsAction",
		},
		FullCalendar: FullCalendar{
			Header:     map[string]string{"left": "", "center": "", "right": "today, prev, next"},
			ScrollTime: "08:00:00",
			AllDaySlot: ptr(false),
			Timezone:   "local",
		},
		Localization: Localization{ShowTimezoneHelper: ptr(true)},
		Styling: Styling{
			FullCalendarCore:  ptr(true),
			FullCalendarTheme: ptr(true),
			General:           ptr(true),
		},
	}
}

func (w Widget) ShowTimezoneHelper() bool { return deref(w.Localization.ShowTimezoneHelper) }

func (s Styling) IncludeCore() bool    { return deref(s.FullCalendarCore) }
func (s Styling) IncludeTheme() bool   { return deref(s.FullCalendarTheme) }
func (s Styling) IncludeGeneral() bool { return deref(s.General) }

// Merge returns base with every field set in override applied on top. Base is
// not modified.
func Merge(base Widget, override *Widget) Widget {
	out := base
	out.Extra = mergeExtra(base.Extra, nil)
	out.Timekit.Extra = mergeExtra(base.Timekit.Extra, nil)
	out.FindTime.Extra = mergeExtra(base.FindTime.Extra, nil)
	out.CreateEvent.Extra = mergeExtra(base.CreateEvent.Extra, nil)
	out.UserTimezone.Extra = mergeExtra(base.UserTimezone.Extra, nil)
	out.FullCalendar.Extra = mergeExtra(base.FullCalendar.Extra, nil)
	out.FullCalendar.Header = mergeHeader(base.FullCalendar.Header, nil)
	if override == nil {
		return out
	}
	o := override

	mergeString(&out.TargetEl, o.TargetEl)
	mergeString(&out.Name, o.Name)
	mergeString(&out.Email, o.Email)
	mergeString(&out.Avatar, o.Avatar)
	mergeString(&out.Calendar, o.Calendar)
	mergeString(&out.APIToken, o.APIToken)
	out.Extra = mergeExtra(out.Extra, o.Extra)

	mergeString(&out.Timekit.App, o.Timekit.App)
	mergeString(&out.Timekit.APIBaseURL, o.Timekit.APIBaseURL)
	out.Timekit.Extra = mergeExtra(out.Timekit.Extra, o.Timekit.Extra)

	if o.FindTime.Emails != nil {
		out.FindTime.Emails = append([]string(nil), o.FindTime.Emails...)
	}
	mergeString(&out.FindTime.Future, o.FindTime.Future)
	mergeString(&out.FindTime.Length, o.FindTime.Length)
	out.FindTime.Extra = mergeExtra(out.FindTime.Extra, o.FindTime.Extra)

	ce := &out.CreateEvent
	mergeString(&ce.What, o.CreateEvent.What)
	mergeString(&ce.Where, o.CreateEvent.Where)
	mergeString(&ce.CalendarID, o.CreateEvent.CalendarID)
	mergeString(&ce.Description, o.CreateEvent.Description)
	mergeString(&ce.MyRSVP, o.CreateEvent.MyRSVP)
	if o.CreateEvent.Participants != nil {
		ce.Participants = append([]string(nil), o.CreateEvent.Participants...)
	}
	mergeBool(&ce.Invite, o.CreateEvent.Invite)
	ce.Extra = mergeExtra(ce.Extra, o.CreateEvent.Extra)

	mergeString(&out.UserTimezone.Email, o.UserTimezone.Email)
	out.UserTimezone.Extra = mergeExtra(out.UserTimezone.Extra, o.UserTimezone.Extra)

	fc := &out.FullCalendar
	mergeString(&fc.DefaultView, o.FullCalendar.DefaultView)
	if o.FullCalendar.Height != nil {
		h := *o.FullCalendar.Height
		fc.Height = &h
	}
	fc.Header = mergeHeader(fc.Header, o.FullCalendar.Header)
	mergeString(&fc.ScrollTime, o.FullCalendar.ScrollTime)
	mergeBool(&fc.AllDaySlot, o.FullCalendar.AllDaySlot)
	mergeString(&fc.Timezone, o.FullCalendar.Timezone)
	fc.Extra = mergeExtra(fc.Extra, o.FullCalendar.Extra)

	mergeBool(&out.Localization.ShowTimezoneHelper, o.Localization.ShowTimezoneHelper)
	mergeBool(&out.Styling.FullCalendarCore, o.Styling.FullCalendarCore)
	mergeBool(&out.Styling.FullCalendarTheme, o.Styling.FullCalendarTheme)
	mergeBool(&out.Styling.General, o.Styling.General)
	return out
}

// ForVisitor returns the part of a browser-supplied configuration that may be
// merged over base. While base holds the API token, the visitor keeps only
// presentation and localization fields; identity, calendar and scheduling
// query fields stay with the server.
func ForVisitor(base Widget, supplied *Widget) *Widget {
	if supplied == nil || base.APIToken == "" {
		return supplied
	}
	return &Widget{
		TargetEl:     supplied.TargetEl,
		Name:         supplied.Name,
		Avatar:       supplied.Avatar,
		FullCalendar: supplied.FullCalendar,
		Localization: supplied.Localization,
		Styling:      supplied.Styling,
	}
}

// ParseWidget decodes a caller-supplied configuration object (YAML or JSON).
// Anything other than a mapping is a configuration error.
func ParseWidget(raw []byte) (*Widget, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: no configuration was supplied", internaltypes.ErrConfiguration)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", internaltypes.ErrConfiguration, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: configuration must be an object", internaltypes.ErrConfiguration)
	}
	var w Widget
	if err := doc.Content[0].Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", internaltypes.ErrConfiguration, err)
	}
	return &w, nil
}

// LoadWidgetFile reads the server's base widget configuration. A missing file
// yields the defaults.
func LoadWidgetFile(path string) (Widget, error) {
	if path == "" {
		return Defaults(), nil
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Widget{}, fmt.Errorf("read widget config: %w", err)
	}
	w, err := ParseWidget(content)
	if err != nil {
		return Widget{}, fmt.Errorf("parse widget config %s: %w", path, err)
	}
	return Merge(Defaults(), w), nil
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeBool(dst **bool, src *bool) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func mergeExtra(dst, src map[string]any) map[string]any {
	if len(dst) == 0 && len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}

func mergeHeader(dst, src map[string]string) map[string]string {
	if dst == nil && src == nil {
		return nil
	}
	out := make(map[string]string, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func deref(b *bool) bool { return b != nil && *b }
