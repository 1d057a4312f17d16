package funtools

import (
	"context"
	"net/url"
	"strconv"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/tool"
	"github.com/tidwall/gjson"
)

const (
	defaultBookLimit = 5
	maxBookLimit     = 10
)

type booksArgs struct {
	Topic string `json:"topic" description:"Search topic (e.g., 'mystery', 'science fiction', 'history')"`
	Limit *int64 `json:"limit,omitempty" description:"Number of results to return (default: 5, max: 10)" default:"5"`
}

func (c *client) booksTool() tool.Tool {
	return tool.NewTypedTool(
		"book_recs",
		"Get book recommendations for a topic via Google Books API. Returns list of books with title, author, and year.",
		c.books,
	)
}

func (c *client) books(ctx context.Context, args booksArgs) (any, error) {
	topic := args.Topic
	limit := int64(defaultBookLimit)
	if args.Limit != nil {
		limit = min(max(*args.Limit, 1), maxBookLimit)
	}

	q := url.Values{}
	q.Set("q", topic)
	q.Set("maxResults", strconv.FormatInt(limit, 10))

	body, err := c.getJSON(ctx, c.endpoints.Books, "/books/v1/volumes", q.Encode())
	if err != nil {
		return nil, err
	}

	items := gjson.GetBytes(body, "items").Array()
	if int64(len(items)) > limit {
		items = items[:limit]
	}

	picks := make([]core.Value, 0, len(items))
	for _, item := range items {
		vol := item.Get("volumeInfo")

		title := core.Null()
		if t := vol.Get("title"); t.Exists() {
			title = core.String(t.String())
		}

		author := "Unknown"
		if a := vol.Get("authors.0"); a.Exists() && a.String() != "" {
			author = a.String()
		}

		year := "N/A"
		if d := vol.Get("publishedDate").String(); d != "" {
			year = d[:min(4, len(d))]
		}

		id := core.Null()
		if i := item.Get("id"); i.Exists() {
			id = core.String(i.String())
		}

		picks = append(picks, core.Object{
			"title":  title,
			"author": core.String(author),
			"year":   core.String(year),
			"id":     id,
		}.Value())
	}

	return core.Object{
		"topic":   core.String(topic),
		"results": core.Array(picks...),
	}, nil
}
