package groupme

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/xid"
	"github.com/valyala/fastjson"
)

const (
	defaultBaseURL    = "https://api.groupme.com/v3/"
	defaultPowerupURL = "https://powerup.groupme.com/powerups"
	defaultRetryWait  = 1 * time.Second
)

// get performs a GET call against the GroupMe v3 API and returns the extracted
// "response" envelope field.
// The access token is passed as a query parameter next to params.
// A throttled request (429) is retried after the configured wait.
// A 304 is how the API reports an exhausted message history, so it is returned
// as a nil value which callers treat as an empty page.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*fastjson.Value, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)

	uri := c.cfg.baseURL + endpoint + "?" + params.Encode()
	id := xid.New().String()

	c.logger.Debugw("outgoing api request",
		"id", id,
		"endpoint", endpoint,
	)

	for {
		req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
		if err != nil {
			return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
		}

		resp, err := c.cfg.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("calling %s: %w", endpoint, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			c.logger.Warnw("request blocked due to high request frequency, waiting and retrying",
				"id", id,
				"endpoint", endpoint,
				"wait", c.cfg.retryWait,
			)

			select {
			case <-time.After(c.cfg.retryWait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode == http.StatusNotModified {
			resp.Body.Close()
			return nil, nil
		}

		body, err := ioutil.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s response body: %w", endpoint, err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("groupme api returned status %d on %s", resp.StatusCode, endpoint)
		}

		v, err := fastjson.ParseBytes(body)
		if err != nil {
			return nil, fmt.Errorf("malformed %s response: %w", endpoint, err)
		}

		c.logger.Debugw("api response received", "id", id, "endpoint", endpoint)

		return v.Get("response"), nil
	}
}

// getRaw fetches an arbitrary URL (powerup index, emoji archives) without the
// token parameter and returns the raw body
func (c *Client) getRaw(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	resp, err := c.cfg.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request to %s returned status %d", uri, resp.StatusCode)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response body: %w", uri, err)
	}

	return body, nil
}

// jsonString reads a fastjson value that the API renders either as a JSON
// string or as a bare number (ids show up both ways across endpoints)
func jsonString(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	if v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes())
	}
	return v.String()
}
