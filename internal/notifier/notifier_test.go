package notifier

import (
	"context"
	"testing"

	"github.com/threadtally/threadtally/internal/cluster"
	"github.com/threadtally/threadtally/internal/pipeline"
	"github.com/threadtally/threadtally/internal/types"
)

type stubRunner struct {
	result      *types.AnalysisResult
	suggestions []cluster.Suggestion
	gotURI      string
	gotStage    pipeline.StageFunc
}

func (s *stubRunner) Run(ctx context.Context, rootURI string, onStage pipeline.StageFunc) (*types.AnalysisResult, []cluster.Suggestion, error) {
	s.gotURI = rootURI
	s.gotStage = onStage
	return s.result, s.suggestions, nil
}

func TestHandlerAnalyzeDelegatesToRunner(t *testing.T) {
	stub := &stubRunner{
		result: &types.AnalysisResult{PostCount: 4},
	}
	h := NewHandler(stub)

	result, _, err := h.Analyze(context.Background(), "at://did:plc:abc/app.bsky.feed.post/xyz")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.PostCount != 4 {
		t.Errorf("expected stub result passed through, got %+v", result)
	}
	if stub.gotURI != "at://did:plc:abc/app.bsky.feed.post/xyz" {
		t.Errorf("expected root uri forwarded, got %q", stub.gotURI)
	}
	if stub.gotStage != nil {
		t.Errorf("expected nil stage callback forwarded, bot has no use for progress updates")
	}
}

var _ MentionHandler = (*Handler)(nil)
