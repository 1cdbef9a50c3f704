// internal/ua/ua.go
//
// User-Agent parsing and device classification.
//
// Context
// -------
// This wrapper isolates the third-party `github.com/avct/uasurfer` API so
// the rest of the codebase never sees its enums or structs.  The ingestion
// path needs exactly three things from a raw header: a coarse device type,
// a browser label, and a platform label.  If we ever swap parsers again,
// only this file changes.
//
// Device precedence
// -----------------
// Categories are checked in a fixed order and the first hit wins:
//
//	bot → mobile → tablet → desktop → unknown
//
// so a crawler that advertises a phone UA is still classified as a bot.
//
// Notes
// -----
// • Phones and wearables are "mobile".  TVs, consoles, and anything the
//   parser cannot place are "unknown".
// • Oxford commas, two spaces after periods.
package ua

import (
	"fmt"
	"regexp"
	"strings"

	surfer "github.com/avct/uasurfer"
)

// DeviceType is the coarse client classification stored on each visit.
type DeviceType string

const (
	DeviceBot     DeviceType = "bot"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
	DeviceUnknown DeviceType = "unknown"
)

// DeviceTypes lists every category in precedence order.
var DeviceTypes = []DeviceType{DeviceBot, DeviceMobile, DeviceTablet, DeviceDesktop, DeviceUnknown}

// Valid reports whether d is one of the known categories.
func (d DeviceType) Valid() bool {
	for _, k := range DeviceTypes {
		if d == k {
			return true
		}
	}
	return false
}

// botSignature catches crawlers and scripted clients that uasurfer does not
// name explicitly.
var botSignature = regexp.MustCompile(
	`(?i)(bot|crawl|spider|slurp|archiver|facebookexternalhit|headlesschrome|` +
		`curl/|wget/|python-requests|go-http-client|httpclient|okhttp|lighthouse)`)

// Info carries the UA attributes persisted with a visit.
//
// Example (Chrome on macOS):
//
//	BrowserName    "Chrome"
//	BrowserVersion "125"
//	OS             "macOS"
//	OSVersion      "10.15.7"
//	Device         "desktop"
type Info struct {
	BrowserName    string
	BrowserVersion string
	OS             string
	OSVersion      string
	Device         DeviceType
	Raw            string
}

// Parse converts a raw header into an Info struct.  An empty header yields
// DeviceUnknown with empty labels.
func Parse(raw string) Info {
	info := Info{Raw: raw, Device: DeviceUnknown}
	if strings.TrimSpace(raw) == "" {
		return info
	}

	u := surfer.Parse(raw)

	if u.Browser.Name != surfer.BrowserUnknown {
		info.BrowserName = strings.TrimPrefix(u.Browser.Name.String(), "Browser")
		info.BrowserVersion = versionToString(u.Browser.Version)
	}
	if u.OS.Name != surfer.OSUnknown {
		info.OS = osLabel(u.OS.Name)
		info.OSVersion = versionToString(u.OS.Version)
	}

	info.Device = classify(u, raw)
	return info
}

// Browser renders "Name Version", or just the name when the version is
// unknown.  Empty when the browser was not recognised.
func (i Info) Browser() string { return joinLabel(i.BrowserName, i.BrowserVersion) }

// Platform renders "OS Version" the same way Browser does.
func (i Info) Platform() string { return joinLabel(i.OS, i.OSVersion) }

// classify applies the fixed precedence order.
func classify(u *surfer.UserAgent, raw string) DeviceType {
	if isBot(u, raw) {
		return DeviceBot
	}
	switch u.DeviceType {
	case surfer.DevicePhone, surfer.DeviceWearable:
		return DeviceMobile
	case surfer.DeviceTablet:
		return DeviceTablet
	case surfer.DeviceComputer:
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

func isBot(u *surfer.UserAgent, raw string) bool {
	if u.IsBot() {
		return true
	}
	if strings.HasSuffix(u.Browser.Name.String(), "Bot") {
		return true
	}
	return botSignature.MatchString(raw)
}

// osLabel strips the enum prefix and renames the one family whose
// marketing name differs from the constant.
func osLabel(n surfer.OSName) string {
	name := strings.TrimPrefix(n.String(), "OS")
	if name == "MacOSX" {
		return "macOS"
	}
	return name
}

// versionToString renders a semantic version in dotted form while trimming
// trailing zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v surfer.Version) string {
	switch {
	case v.Major == 0 && v.Minor == 0 && v.Patch == 0:
		return ""
	case v.Patch != 0:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	case v.Minor != 0:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	default:
		return fmt.Sprintf("%d", v.Major)
	}
}

func joinLabel(name, version string) string {
	if name == "" {
		return ""
	}
	if version == "" {
		return name
	}
	return name + " " + version
}
