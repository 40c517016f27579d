// Package notifier describes the boundary between the analysis core and
// whatever external process answers mentions on the network (watching
// for a summon, composing a reply thread, deciding when to re-run). That
// process is out of scope here; this package only names the interface it
// is built against, the way the teacher's plugin registry names an
// interface other binaries implement rather than shipping a concrete
// plugin itself.
package notifier

import (
	"context"

	"github.com/threadtally/threadtally/internal/cluster"
	"github.com/threadtally/threadtally/internal/pipeline"
	"github.com/threadtally/threadtally/internal/types"
)

// MentionHandler is what an external bot needs from the core: run one
// analysis for a given thread root and get back the ranked tally plus
// any cluster suggestions worth surfacing for human review. Everything
// after that — composing a reply, tracking which mention triggered the
// run, deciding whether to re-run on a later mention — belongs to the
// bot, not here.
type MentionHandler interface {
	// Analyze runs a full analysis for the thread rooted at rootURI and
	// returns its result alongside any cluster suggestions the
	// attribution pass couldn't resolve on its own.
	Analyze(ctx context.Context, rootURI string) (*types.AnalysisResult, []cluster.Suggestion, error)
}

// Runner is the subset of *pipeline.Pipeline a MentionHandler adapter
// needs.
type Runner interface {
	Run(ctx context.Context, rootURI string, onStage pipeline.StageFunc) (*types.AnalysisResult, []cluster.Suggestion, error)
}

// Handler adapts a Runner to MentionHandler, discarding stage progress
// callbacks the bot has no use for.
type Handler struct {
	runner Runner
}

// NewHandler wraps runner as a MentionHandler.
func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

func (h *Handler) Analyze(ctx context.Context, rootURI string) (*types.AnalysisResult, []cluster.Suggestion, error) {
	return h.runner.Run(ctx, rootURI, nil)
}
