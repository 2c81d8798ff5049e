package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot wall a response hit.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockLinkedIn   BlockType = "linkedin_authwall"
	BlockJSShell    BlockType = "js_shell"
)

// DetectBlock reports whether a response is an anti-bot page rather than the
// site itself. Blocked pages fall through to the hosted scrapers.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	// LinkedIn answers unauthenticated bots with a non-standard 999.
	if resp.StatusCode == 999 {
		return true, BlockLinkedIn
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") {
		return true, BlockCloudflare
	}
	if strings.Contains(lower, "g-recaptcha") || strings.Contains(lower, "h-captcha") ||
		strings.Contains(lower, "complete the captcha") || strings.Contains(lower, "recaptcha to continue") {
		return true, BlockCaptcha
	}
	if strings.Contains(lower, "authwall") && strings.Contains(lower, "linkedin") {
		return true, BlockLinkedIn
	}

	if len(body) < 2000 && strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
		return true, BlockJSShell
	}

	return false, BlockNone
}
