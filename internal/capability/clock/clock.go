// Package clock provides a capability that tells the current time.
package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/Cyclone1070/reactor/internal/tool"
)

// ID is the capability id.
const ID = "clock"

type nowRequest struct {
	Thought string `json:"thought"`
	Zone    string `json:"zone"`
}

// NowResponse is the result of clock.now.
type NowResponse struct {
	Time    string `json:"time"`
	Zone    string `json:"zone"`
	Weekday string `json:"weekday"`
	Unix    int64  `json:"unix"`
}

// New creates the clock capability. now is used as the time source; nil
// means time.Now.
func New(now func() time.Time) *tool.Toolset {
	if now == nil {
		now = time.Now
	}
	return tool.NewToolset(ID,
		tool.NewFuncTool("clock.now", "Returns the current date and time, optionally in an IANA time zone such as Europe/Paris.",
			[]tool.Parameter{
				tool.ThoughtParameter,
				{Name: "zone", Type: tool.TypeString, Description: "IANA time zone name. Defaults to UTC."},
			},
			func(ctx context.Context, req nowRequest) (any, error) {
				zone := req.Zone
				if zone == "" {
					zone = "UTC"
				}
				loc, err := time.LoadLocation(zone)
				if err != nil {
					return nil, fmt.Errorf("unknown time zone %q", req.Zone)
				}
				t := now().In(loc)
				return NowResponse{
					Time:    t.Format(time.RFC3339),
					Zone:    loc.String(),
					Weekday: t.Weekday().String(),
					Unix:    t.Unix(),
				}, nil
			}),
	)
}
