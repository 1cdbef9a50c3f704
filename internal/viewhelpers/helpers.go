// internal/viewhelpers/helpers.go
//
// Template helpers for rendering visit rows.  internal/view merges this map
// into every template set, so admin templates can call:
//
//	{{ opt .Visit.City }}          {{ datetime .Visit.CreatedAt }}
//	{{ page .Visit.URL }}          {{ deviceClass .Visit.DeviceType }}
//	{{ if isBot .Visit.DeviceType }}Robot!{{ end }}
package viewhelpers

import (
	"html/template"
	"time"

	"github.com/yanizio/visitlog/internal/ua"
	"github.com/yanizio/visitlog/internal/visit"
)

// Placeholder stands in for NULL columns.
const Placeholder = "-"

// DateTimeLayout is the admin table timestamp format.
const DateTimeLayout = "2006-01-02 15:04:05"

// FuncMap returns the visit display helpers.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"opt":         Opt,
		"datetime":    func(t time.Time) string { return t.Format(DateTimeLayout) },
		"page":        visit.PagePath,
		"deviceClass": DeviceClass,
		"isBot":       func(d ua.DeviceType) bool { return d == ua.DeviceBot },
	}
}

// Opt dereferences an optional column, using Placeholder for NULL or "".
func Opt(s *string) string {
	if s == nil || *s == "" {
		return Placeholder
	}
	return *s
}

// DeviceClass maps a device type to the badge CSS class used by the admin
// table, mirroring the colour coding of the dashboard.
func DeviceClass(d ua.DeviceType) string {
	switch d {
	case ua.DeviceMobile:
		return "badge-success"
	case ua.DeviceTablet:
		return "badge-info"
	case ua.DeviceDesktop:
		return "badge-primary"
	case ua.DeviceBot:
		return "badge-danger"
	default:
		return "badge-secondary"
	}
}
