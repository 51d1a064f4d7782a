package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/news-rag/internal/metadata"
	"github.com/bull/news-rag/internal/rag"
)

const (
	defaultK = 2
	maxK     = 20
)

// makeSearchHandler creates the search_fragments tool handler.
func makeSearchHandler(session Session, fallbackK int) func(
	context.Context, *mcp.CallToolRequest, SearchFragmentsInput,
) (*mcp.CallToolResult, SearchFragmentsOutput, error) {
	if fallbackK <= 0 {
		fallbackK = defaultK
	}
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchFragmentsInput) (
		*mcp.CallToolResult, SearchFragmentsOutput, error,
	) {
		k := input.K
		if k <= 0 {
			k = fallbackK
		}
		k = min(k, maxK)

		results, err := session.Retrieve(ctx, input.Query, k)
		if err != nil {
			if errors.Is(err, rag.ErrIndexNotBuilt) {
				return nil, SearchFragmentsOutput{
					Results: []FragmentResult{},
					Message: "No documents have been indexed yet.",
				}, nil
			}
			return nil, SearchFragmentsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			return nil, SearchFragmentsOutput{
				Results: []FragmentResult{},
				Message: "No matching fragments found.",
			}, nil
		}
		return nil, SearchFragmentsOutput{Results: toFragmentResults(results)}, nil
	}
}

// makeAskHandler creates the ask tool handler.
// Errors distinguish missing data from an unavailable generation service.
func makeAskHandler(session Session) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		answer, err := session.Ask(ctx, input.Question)
		if err != nil {
			switch {
			case errors.Is(err, rag.ErrIndexNotBuilt):
				return nil, AskOutput{}, fmt.Errorf("no_data: no documents have been indexed")
			case errors.Is(err, rag.ErrGenerationTimeout):
				return nil, AskOutput{}, fmt.Errorf("generation_timeout: %w", err)
			case errors.Is(err, rag.ErrGenerationUnavailable):
				return nil, AskOutput{}, fmt.Errorf("generation_unavailable: %w", err)
			default:
				return nil, AskOutput{}, fmt.Errorf("ask failed: %w", err)
			}
		}

		return nil, AskOutput{
			Answer:  answer.Text,
			Sources: toFragmentResults(answer.Sources),
		}, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
func makeStatusHandler(session Session) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		st := session.Status()
		return nil, StatusOutput{
			Built:     st.Built,
			Backend:   st.Backend,
			Model:     st.Model,
			Dimension: st.Dimension,
			Documents: st.Documents,
			Fragments: st.Fragments,
			BuiltAt:   formatTime(st.BuiltAt),
		}, nil
	}
}

func toFragmentResults(results rag.RetrievalResult) []FragmentResult {
	out := make([]FragmentResult, len(results))
	for i, r := range results {
		out[i] = FragmentResult{
			Source:  r.Fragment.SourceID,
			Section: r.Fragment.Section,
			Index:   r.Fragment.Index,
			Score:   r.Score,
			Text:    r.Fragment.Text,
			Summary: r.Metadata[metadata.KeySummary],
		}
	}
	return out
}
