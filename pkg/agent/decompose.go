package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ai-sqlpilot-be/pkg/llm"
	"ai-sqlpilot-be/pkg/sqlexec"
)

// decompose splits a compound question into sub-questions and answers each in
// parallel, each with its own correction budget. The per-branch statements
// are merged back into one query which the regular execute stage then runs.
// A question that does not split routes to the single-query path unchanged.
func (a *Agent) decompose(ctx context.Context, st State) (Patch, Label, error) {
	prompt := fmt.Sprintf(decomposePrompt, st.Question)
	resp, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))

	var out struct {
		Subquestions []string `json:"subquestions"`
	}
	if err == nil {
		err = decodeStructured(resp, &out)
	}
	if err != nil {
		a.log.Warn("agent", "decomposition failed, using single-query path", map[string]interface{}{
			"error": err.Error(),
		})
		return Patch{}, LabelNext, nil
	}

	var subs []string
	for _, q := range out.Subquestions {
		if q = strings.TrimSpace(q); q != "" {
			subs = append(subs, q)
		}
	}
	if len(subs) < 2 {
		return Patch{}, LabelNext, nil
	}

	statements := make([]string, len(subs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, sub := range subs {
		eg.Go(func() error {
			stmt, err := a.answerSubquestion(egCtx, sub, st.Brief)
			if err != nil {
				return fmt.Errorf("sub-question %q: %w", sub, err)
			}
			statements[i] = stmt
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		a.log.Warn("agent", "sub-question failed, giving up on decomposition", map[string]interface{}{
			"error": err.Error(),
		})
		return Patch{
			FinalOutput:    ptr(failedAnswer),
			AppendMessages: []Message{assistantMessage(failedAnswer)},
		}, LabelGiveUp, nil
	}

	merged, err := a.reduce(ctx, st.Question, statements)
	if err != nil {
		a.log.Warn("agent", "reduce failed, using single-query path", map[string]interface{}{
			"error": err.Error(),
		})
		return Patch{}, LabelNext, nil
	}

	return Patch{
		SQL: ptr(merged),
		AppendMessages: []Message{
			assistantMessage(fmt.Sprintf("decomposed into %d sub-questions, merged query: %s", len(subs), merged)),
		},
	}, LabelOK, nil
}

// answerSubquestion runs a private generate/execute/correct loop for one
// sub-question and returns its validated statement.
func (a *Agent) answerSubquestion(ctx context.Context, question, brief string) (string, error) {
	budget := a.cfg.CorrectionRetryLimit
	lastErr := ""
	query := ""

	for {
		var prompt string
		if lastErr == "" {
			prompt = fmt.Sprintf(generatePrompt, question, brief)
		} else {
			prompt = fmt.Sprintf(correctionPrompt, question, brief, query, lastErr)
		}

		resp, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))
		if err != nil {
			return "", err
		}
		var out struct {
			Query string `json:"query"`
		}
		if err := decodeStructured(resp, &out); err != nil {
			return "", err
		}
		query = strings.TrimSpace(out.Query)
		if query == "" {
			return "", fmt.Errorf("empty statement")
		}

		payload := a.runner.Run(ctx, query)
		if !isErrorPayload(payload) {
			return query, nil
		}
		budget--
		if budget < 0 {
			return "", fmt.Errorf("correction budget exhausted: %s", payload)
		}
		lastErr = strings.TrimPrefix(payload, sqlexec.ErrorTag)
	}
}

// reduce merges the branch statements into one query. Statements are sorted
// first so the merge prompt sees the same input regardless of which branch
// finished when.
func (a *Agent) reduce(ctx context.Context, question string, statements []string) (string, error) {
	sorted := append([]string{}, statements...)
	sort.Strings(sorted)

	var block strings.Builder
	for i, stmt := range sorted {
		fmt.Fprintf(&block, "%d. %s\n", i+1, stmt)
	}

	resp, err := a.llm.Generate(ctx, fmt.Sprintf(reducePrompt, question, block.String()), llm.WithTemperature(0))
	if err != nil {
		return "", err
	}
	var out struct {
		Query string `json:"query"`
	}
	if err := decodeStructured(resp, &out); err != nil {
		return "", err
	}
	merged := strings.TrimSpace(out.Query)
	if merged == "" {
		return "", fmt.Errorf("empty merged statement")
	}
	return merged, nil
}
