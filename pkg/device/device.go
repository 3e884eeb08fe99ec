// Package device classifies client user-agent strings.
package device

import "regexp"

var (
	androidRe = regexp.MustCompile(`(?i)android`)
	iosRe     = regexp.MustCompile(`(?i)iphone|ipad|ipod`)
)

// IsAndroid reports whether ua identifies an Android device.
func IsAndroid(ua string) bool {
	return androidRe.MatchString(ua)
}

// IsIOS reports whether ua identifies an iPhone, iPad or iPod.
func IsIOS(ua string) bool {
	return iosRe.MatchString(ua)
}

// IsMobile reports whether ua identifies a mobile device.
// Anything not recognised is treated as desktop.
func IsMobile(ua string) bool {
	return IsAndroid(ua) || IsIOS(ua)
}
