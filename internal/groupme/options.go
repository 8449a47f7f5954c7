package groupme

import (
	"net/http"
	"time"
)

// Option alters the default configuration used during new Client construction
type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

// config defines fields used for configuring a Client instance
type config struct {
	baseURL    string
	powerupURL string
	httpClient *http.Client
	retryWait  time.Duration
}

// BaseURL overrides the GroupMe API base URL
func BaseURL(u string) Option {
	return optionFunc(func(c *config) {
		c.baseURL = u
	})
}

// PowerupURL overrides the powerup emoji index URL
func PowerupURL(u string) Option {
	return optionFunc(func(c *config) {
		c.powerupURL = u
	})
}

// HTTPClient sets the http.Client used for all outgoing requests, including emoji downloads
func HTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *config) {
		c.httpClient = hc
	})
}

// RetryWait sets how long the client sleeps before retrying a throttled request
func RetryWait(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.retryWait = d
	})
}
