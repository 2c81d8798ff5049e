// Package model defines the records passed between pipeline stages.
package model

import "strings"

// Unknown is written wherever a company or location cannot be resolved.
const Unknown = "Unknown"

// Website sentinels written by the website resolution stage in place of a URL.
const (
	WebsiteNotApplicable = "N/A"
	WebsiteOnlyJobLinks  = "Not Found (Only job/social links)"
	WebsiteNotFound      = "Not Found"
	WebsiteError         = "Error"
)

// JobListing is a single scraped job card.
type JobListing struct {
	Title    string `json:"title" csv:"title"`
	Company  string `json:"company" csv:"company"`
	Location string `json:"location" csv:"location"`
	Link     string `json:"link" csv:"link"`
}

// JobWithWebsite is a cleaned job listing with the resolved company website.
type JobWithWebsite struct {
	JobListing
	Website string `json:"website" csv:"website"`
}

// IsUnknown reports whether a company name is empty or the Unknown sentinel.
func IsUnknown(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, Unknown)
}

// IsWebsiteSentinel reports whether a website value is one of the resolution
// sentinels rather than a usable URL.
func IsWebsiteSentinel(website string) bool {
	switch strings.ToLower(strings.TrimSpace(website)) {
	case "", "n/a", "not found", "not found (only job/social links)", "error":
		return true
	}
	return false
}
