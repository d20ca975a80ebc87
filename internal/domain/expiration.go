package domain

import "time"

// IsExpired decides whether a post is expired as of now. A recorded Expired
// status always wins; otherwise the post expires at exactly expirationTime.
func IsExpired(now, expirationTime time.Time, status Status) bool {
	if status == StatusExpired {
		return true
	}
	return !now.Before(expirationTime)
}
