// Package useragent derives a short device/browser label from a raw
// User-Agent string for display in the subscriber list.
package useragent

import "strings"

const fallbackLen = 48

// DeviceLabel returns a label like "Android · Chrome". Unknown agents
// fall back to a truncated copy of the raw string.
func DeviceLabel(ua string) string {
	if ua == "" {
		return "Unknown"
	}

	var parts []string

	switch {
	case strings.Contains(ua, "Android"):
		parts = append(parts, "Android")
	case strings.Contains(ua, "iPhone"):
		parts = append(parts, "iPhone iOS")
	case strings.Contains(ua, "iPad"):
		parts = append(parts, "iPad iOS")
	case strings.Contains(ua, "Windows"):
		parts = append(parts, "Windows")
	case strings.Contains(ua, "Macintosh"), strings.Contains(ua, "Mac OS X"):
		parts = append(parts, "macOS")
	case strings.Contains(ua, "Linux"):
		parts = append(parts, "Linux")
	}

	switch {
	case strings.Contains(ua, " Edg/"), strings.Contains(ua, "EdgA/"):
		parts = append(parts, "Edge")
	case strings.Contains(ua, "Chrome/") && !strings.Contains(ua, "Chromium"):
		parts = append(parts, "Chrome")
	case strings.Contains(ua, "Firefox/"):
		parts = append(parts, "Firefox")
	case strings.Contains(ua, "Safari/") && !strings.Contains(ua, "Chrome"):
		parts = append(parts, "Safari")
	}

	if len(parts) == 0 {
		if len(ua) > fallbackLen {
			return ua[:fallbackLen]
		}
		return ua
	}
	return strings.Join(parts, " · ")
}
