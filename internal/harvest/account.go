package harvest

import "regexp"

var accountURLPattern = regexp.MustCompile(`^https://.*\.colorfulpalette\.org/api/user/(\d+)/mysekai`)

// ExtractAccountID returns the numeric user segment of a mysekai API URL.
func ExtractAccountID(url string) (string, bool) {
	m := accountURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}
