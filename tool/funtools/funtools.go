// Package funtools provides a small set of public-API backed demo tools
// (weather, books, jokes, dog pictures, trivia) for the agent loop.
//
// Every tool performs a single HTTP GET bounded by the context deadline the
// tool catalog applies; non-2xx responses surface as tool errors.
package funtools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/tool"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 4 << 20

// Endpoints holds the base URLs of the upstream APIs. Overriding them is
// mainly useful for tests and self-hosted mirrors.
type Endpoints struct {
	Weather string
	Books   string
	Joke    string
	Dog     string
	Trivia  string
}

// DefaultEndpoints returns the public API hosts.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Weather: "https://api.open-meteo.com",
		Books:   "https://www.googleapis.com",
		Joke:    "https://v2.jokeapi.dev",
		Dog:     "https://dog.ceo",
		Trivia:  "https://opentdb.com",
	}
}

// Options configure the tool set.
type Options struct {
	Endpoints  Endpoints
	HTTPClient *http.Client
	UserAgent  string
}

type client struct {
	http      *http.Client
	endpoints Endpoints
	userAgent string
}

func newClient(optFns ...func(o *Options)) *client {
	opts := Options{
		Endpoints:  DefaultEndpoints(),
		HTTPClient: http.DefaultClient,
		UserAgent:  "agentloop-funtools/1.0",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &client{http: opts.HTTPClient, endpoints: opts.Endpoints, userAgent: opts.UserAgent}
}

// All returns the five tools in their advertised order:
// get_weather, book_recs, random_joke, random_dog, trivia.
func All(optFns ...func(o *Options)) []tool.Tool {
	c := newClient(optFns...)
	return []tool.Tool{
		c.weatherTool(),
		c.booksTool(),
		c.jokeTool(),
		c.dogTool(),
		c.triviaTool(),
	}
}

// getJSON issues a GET against base+path with the given raw query and
// returns the response body.
func (c *client) getJSON(ctx context.Context, base, path, rawQuery string) ([]byte, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d", u.Host, resp.StatusCode)
	}
	return body, nil
}

// parseRaw converts a gjson raw fragment into a Value.
func parseRaw(raw string) (core.Value, error) {
	v, err := core.ParseValue(raw)
	if err != nil {
		return core.Value{}, fmt.Errorf("decode upstream response: %w", err)
	}
	return v, nil
}
