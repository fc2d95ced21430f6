// Package exectest provides a scripted execx.Runner for tests.
package exectest

import (
	"context"
	"strings"
	"sync"

	"voxlaunch/internal/execx"
)

// Response is what the fake returns for a matched command.
type Response struct {
	Result execx.Result
	Err    error
	// Do runs before the response is returned; tests use it to create files
	// a real tool would have produced.
	Do func(c execx.Cmd)
}

// Runner matches commands by substring of "path args..." in registration order.
// Unmatched commands succeed with an empty result.
type Runner struct {
	mu       sync.Mutex
	rules    []rule
	Calls    []execx.Cmd
	Fallback *Response
}

type rule struct {
	match string
	resp  Response
}

// On registers a response for commands whose String() contains match.
func (r *Runner) On(match string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{match: match, resp: resp})
	return r
}

func (r *Runner) Run(ctx context.Context, c execx.Cmd) (execx.Result, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, c)
	var resp *Response
	for i := range r.rules {
		if strings.Contains(c.String(), r.rules[i].match) {
			resp = &r.rules[i].resp
			break
		}
	}
	if resp == nil {
		resp = r.Fallback
	}
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return execx.Result{ExitCode: -1}, err
	}
	if resp == nil {
		return execx.Result{}, nil
	}
	if resp.Do != nil {
		resp.Do(c)
	}
	return resp.Result, resp.Err
}

// Called reports how many recorded commands contain match.
func (r *Runner) Called(match string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if strings.Contains(c.String(), match) {
			n++
		}
	}
	return n
}
