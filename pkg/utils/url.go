package utils

import (
	"net/url"
	"strings"
)

// IsAbsoluteURL reports whether str is an absolute http(s) url with a host
func IsAbsoluteURL(str string) bool {
	u, err := url.Parse(str)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// IsExternal reports whether str points outside of the site, including
// scheme relative and mailto style references
func IsExternal(str string) bool {
	if strings.HasPrefix(str, "//") {
		return true
	}
	u, err := url.Parse(str)
	return err == nil && u.Scheme != ""
}
