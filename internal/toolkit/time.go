package toolkit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/tools"
)

// CurrentTime reports the current time, optionally in a named IANA zone.
// Purely local, so it opts out of caching and carries no rate override.
type CurrentTime struct {
	now func() time.Time
}

// NewCurrentTime creates the adapter.
func NewCurrentTime() *CurrentTime {
	return &CurrentTime{now: time.Now}
}

func (c *CurrentTime) Name() string { return "current_time" }

func (c *CurrentTime) Description() string {
	return "Returns the current date and time, optionally in a specific IANA timezone."
}

func (c *CurrentTime) Schema() *jsonschema.Schema {
	return tools.ObjectSchema(map[string]*jsonschema.Schema{
		"timezone": {
			Type:        "string",
			Description: "IANA timezone name, e.g. Europe/Copenhagen. Defaults to local time.",
			MaxLength:   tools.IntPtr(64),
		},
	})
}

func (c *CurrentTime) MockResult(p tools.Params) any {
	return map[string]any{
		"time":     "2026-01-01T00:00:00Z",
		"unix":     int64(1767225600),
		"timezone": p.String("timezone", "UTC"),
	}
}

func (c *CurrentTime) Execute(_ context.Context, p tools.Params) (any, error) {
	now := c.now()

	if tz := p.String("timezone", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, tools.WrapError(tools.KindValidation, err, "unknown timezone %q", tz)
		}
		now = now.In(loc)
	}

	return map[string]any{
		"time":     now.Format(time.RFC3339),
		"unix":     now.Unix(),
		"timezone": now.Location().String(),
		"weekday":  fmt.Sprint(now.Weekday()),
	}, nil
}
