package model

import "time"

// Token is a personal access token stored for one GitLab instance.
// InstanceURL is normalized without a trailing slash.
type Token struct {
	InstanceURL string
	Value       string
	UpdatedAt   time.Time
}
