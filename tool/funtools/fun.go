package funtools

import (
	"context"
	"html"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/tool"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// noArgs describes the tools that take no parameters.
type noArgs struct{}

func (c *client) jokeTool() tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"random_joke",
		"Get a random safe joke from JokeAPI. Returns a single joke string.",
		noArgs{},
		c.joke,
	)
}

func (c *client) joke(ctx context.Context, _ core.Object) (any, error) {
	body, err := c.getJSON(ctx, c.endpoints.Joke, "/joke/Any", "type=single&safe-mode")
	if err != nil {
		return nil, err
	}

	joke := "No joke found"
	if j := gjson.GetBytes(body, "joke"); j.Exists() {
		joke = j.String()
	}
	return core.Object{"joke": core.String(joke)}, nil
}

func (c *client) dogTool() tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"random_dog",
		"Get a random dog image URL from Dog CEO API. Returns an image URL.",
		noArgs{},
		c.dog,
	)
}

func (c *client) dog(ctx context.Context, _ core.Object) (any, error) {
	body, err := c.getJSON(ctx, c.endpoints.Dog, "/api/breeds/image/random", "")
	if err != nil {
		return nil, err
	}
	return parseRaw(string(body))
}

func (c *client) triviaTool() tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"trivia",
		"Get a random multiple-choice trivia question from Open Trivia Database. Returns question, correct answer, and incorrect answers.",
		noArgs{},
		c.trivia,
	)
}

func (c *client) trivia(ctx context.Context, _ core.Object) (any, error) {
	body, err := c.getJSON(ctx, c.endpoints.Trivia, "/api.php", "amount=1&type=multiple")
	if err != nil {
		return nil, err
	}

	first := gjson.GetBytes(body, "results.0")
	if !first.Exists() {
		return core.ErrorValue("no trivia"), nil
	}

	q := []byte(first.Raw)
	for _, field := range []string{"question", "correct_answer"} {
		if v := first.Get(field); v.Exists() {
			if q, err = sjson.SetBytes(q, field, html.UnescapeString(v.String())); err != nil {
				return nil, err
			}
		}
	}

	var incorrect []string
	first.Get("incorrect_answers").ForEach(func(_, v gjson.Result) bool {
		incorrect = append(incorrect, html.UnescapeString(v.String()))
		return true
	})
	if incorrect != nil {
		if q, err = sjson.SetBytes(q, "incorrect_answers", incorrect); err != nil {
			return nil, err
		}
	}

	return parseRaw(string(q))
}
