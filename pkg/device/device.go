// Package device parses user-agent strings into coarse human-readable labels
// for session listings. Labels are display-only and never feed auth decisions.
package device

import "strings"

// Unknown is returned for empty or unrecognizable user-agent strings.
const Unknown = "Unknown Device"

// Parse returns a "{OS/device} - {browser}" label via ordered substring
// matching. Mobile indicators are checked before desktop OS indicators, and
// Chrome is distinguished from Edge before the generic match.
func Parse(userAgent string) string {
	if userAgent == "" {
		return Unknown
	}
	ua := strings.ToLower(userAgent)

	browser := "Unknown Browser"
	switch {
	case strings.Contains(ua, "chrome") && !strings.Contains(ua, "edg"):
		browser = "Chrome"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		browser = "Safari"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	}

	device := "Unknown"
	if strings.Contains(ua, "mobile") {
		switch {
		case strings.Contains(ua, "iphone"):
			device = "iPhone"
		case strings.Contains(ua, "ipad"):
			device = "iPad"
		case strings.Contains(ua, "android"):
			device = "Android"
		default:
			device = "Mobile"
		}
	} else {
		switch {
		case strings.Contains(ua, "windows"):
			device = "Windows"
		case strings.Contains(ua, "mac"):
			device = "macOS"
		case strings.Contains(ua, "linux"):
			device = "Linux"
		case strings.Contains(ua, "ipad"):
			device = "iPad"
		case strings.Contains(ua, "iphone"):
			device = "iPhone"
		case strings.Contains(ua, "android"):
			device = "Android"
		}
	}

	return device + " - " + browser
}
