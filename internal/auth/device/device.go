// Package device turns a raw User-Agent header into the short
// "browser on OS" label recorded in login audit lines.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknown = "Unknown Device"

// ParseUserAgent summarizes raw as "<browser> on <os>".
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return unknown
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser) + " on " + strings.TrimSpace(os)
}

// IsBot reports whether raw identifies a crawler or script.
func IsBot(raw string) bool {
	return raw != "" && useragent.New(raw).Bot()
}
