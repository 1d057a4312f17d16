package funtools

import (
	"context"
	"net/url"
	"strconv"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/tool"
	"github.com/tidwall/gjson"
)

type weatherArgs struct {
	Latitude  float64 `json:"latitude" description:"Latitude coordinate (-90 to 90)"`
	Longitude float64 `json:"longitude" description:"Longitude coordinate (-180 to 180)"`
}

func (c *client) weatherTool() tool.Tool {
	return tool.NewTypedTool(
		"get_weather",
		"Get current weather at coordinates via Open-Meteo API. Returns temperature, weather code, and wind speed.",
		c.weather,
	)
}

func (c *client) weather(ctx context.Context, args weatherArgs) (any, error) {
	lat, lon := args.Latitude, args.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, tool.NewToolError("get_weather", "coordinates out of range", tool.CodeValidation)
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", "temperature_2m,weather_code,wind_speed_10m")
	q.Set("timezone", "auto")

	body, err := c.getJSON(ctx, c.endpoints.Weather, "/v1/forecast", q.Encode())
	if err != nil {
		return nil, err
	}

	current := gjson.GetBytes(body, "current")
	if !current.Exists() || !current.IsObject() {
		return core.Object{}, nil
	}
	return parseRaw(current.Raw)
}
