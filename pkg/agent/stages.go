package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-sqlpilot-be/pkg/chart"
	"ai-sqlpilot-be/pkg/llm"
	"ai-sqlpilot-be/pkg/sqlexec"
)

const failedAnswer = "I could not produce a working query for this question. " +
	"Please rephrase it or ask something else about the data."

func isErrorPayload(payload string) bool {
	return strings.HasPrefix(payload, sqlexec.ErrorTag)
}

// route classifies the request. A hard model failure here is fatal: without a
// classification there is no sensible branch to take.
func (a *Agent) route(ctx context.Context, st State) (Patch, Label, error) {
	prompt := fmt.Sprintf(routerPrompt, st.Question)
	resp, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))
	if err != nil {
		return Patch{}, "", fmt.Errorf("route classification: %w", err)
	}

	var verdict struct {
		Classification string `json:"classification"`
	}
	if err := decodeStructured(resp, &verdict); err != nil {
		return Patch{}, "", fmt.Errorf("route classification: %w", err)
	}

	patch := Patch{AppendMessages: []Message{
		assistantMessage("classified request as " + verdict.Classification),
	}}
	if strings.EqualFold(verdict.Classification, "InformationalRequest") {
		return patch, LabelInformational, nil
	}
	if !strings.EqualFold(verdict.Classification, "DataRequest") {
		a.log.Warn("agent", "unrecognized classification, treating as data request", map[string]interface{}{
			"classification": verdict.Classification,
		})
	}
	return patch, LabelData, nil
}

// informational answers questions about the assistant or the catalog without
// touching the query path.
func (a *Agent) informational(ctx context.Context, st State) (Patch, Label, error) {
	catalog, err := a.schema.ListTables(ctx)
	if err != nil {
		return Patch{}, "", fmt.Errorf("informational catalog: %w", err)
	}

	// When the question names a table, include its full schema so the
	// answer can describe fields and joins.
	detail := ""
	for _, name := range catalogTableNames(catalog) {
		if containsWord(st.Question, name) {
			fact, err := a.schema.FetchFact(ctx, name)
			if err != nil {
				a.log.Warn("agent", "table detail lookup failed", map[string]interface{}{
					"table": name, "error": err.Error(),
				})
				continue
			}
			detail += fact.Render() + "\n"
		}
	}

	prompt := fmt.Sprintf(informationalPrompt, catalog, detail, st.Question)
	answer, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))
	if err != nil {
		a.log.Warn("agent", "informational answer failed, replying with catalog", map[string]interface{}{
			"error": err.Error(),
		})
		answer = catalog
	}

	return Patch{
		FinalOutput:    ptr(answer),
		AppendMessages: []Message{assistantMessage(answer)},
	}, LabelNext, nil
}

// catalogTableNames extracts table names from the "name: description" lines
// of a rendered catalog.
func catalogTableNames(catalog string) []string {
	var names []string
	for _, line := range strings.Split(catalog, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			name := strings.TrimSpace(line[:idx])
			if name != "" && !strings.Contains(name, " ") {
				names = append(names, name)
			}
		}
	}
	return names
}

func containsWord(text, word string) bool {
	text = strings.ToLower(text)
	word = strings.ToLower(word)
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isWordChar(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isWordChar(text[afterIdx])
		if before && after {
			return true
		}
		rest := strings.Index(text[idx+1:], word)
		if rest < 0 {
			return false
		}
		idx = idx + 1 + rest
	}
	return false
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// normalize rewrites the question with resolved dates and references, and
// resets the sufficiency budget: a fresh question starts a fresh loop.
func (a *Agent) normalize(ctx context.Context, st State) (Patch, Label, error) {
	today := time.Now().Format("2006-01-02")
	prompt := fmt.Sprintf(normalizePrompt, today, st.Question)
	resp, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))

	question := st.Question
	if err == nil {
		var out struct {
			Question string `json:"question"`
		}
		if derr := decodeStructured(resp, &out); derr == nil && strings.TrimSpace(out.Question) != "" {
			question = strings.TrimSpace(out.Question)
		} else if derr != nil {
			err = derr
		}
	}
	if err != nil {
		a.log.Warn("agent", "question rewrite failed, keeping original", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return Patch{
		Question:          ptr(question),
		SufficiencyBudget: ptr(a.cfg.SufficiencyRetryLimit),
		AppendMessages:    []Message{assistantMessage("normalized question: " + question)},
	}, LabelNext, nil
}

// retrieveContext pulls similar cached exemplars and has the model rerank
// them. A hit short-circuits schema discovery entirely.
func (a *Agent) retrieveContext(ctx context.Context, st State) (Patch, Label, error) {
	hits, err := a.exemplars.Search(ctx, st.Question, a.cfg.TopK)
	if err != nil {
		a.log.Warn("agent", "exemplar search failed, falling back to schema discovery", map[string]interface{}{
			"error": err.Error(),
		})
		return Patch{}, LabelMiss, nil
	}
	if len(hits) == 0 {
		return Patch{}, LabelMiss, nil
	}

	var candidates strings.Builder
	byID := make(map[int64]ExemplarHit, len(hits))
	for _, h := range hits {
		fmt.Fprintf(&candidates, "ID %d: %s\n", h.ID, h.Question)
		byID[h.ID] = h
	}

	prompt := fmt.Sprintf(rerankPrompt, st.Question, candidates.String())
	resp, rerr := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))

	var picked struct {
		IDs       []int64 `json:"ids"`
		Reasoning string  `json:"reasoning"`
	}
	if rerr == nil {
		rerr = decodeStructured(resp, &picked)
	}
	if rerr != nil {
		// Degrade to the raw similarity order rather than losing the hits.
		a.log.Warn("agent", "rerank failed, using similarity order", map[string]interface{}{
			"error": rerr.Error(),
		})
		for _, h := range hits {
			picked.IDs = append(picked.IDs, h.ID)
		}
		picked.Reasoning = "similarity order"
	}

	var contexts []string
	for _, id := range picked.IDs {
		if h, ok := byID[id]; ok {
			contexts = append(contexts, h.Context)
		}
	}
	if len(contexts) == 0 {
		return Patch{}, LabelMiss, nil
	}

	brief := MergeBrief(st.Brief, strings.Join(contexts, "\n\n"))
	return Patch{
		Brief: ptr(brief),
		AppendMessages: []Message{
			assistantMessage("reused cached context: " + picked.Reasoning),
		},
	}, LabelHit, nil
}

// NormalizeScores rescales raw similarity scores into [epsilon, 1] so that
// downstream consumers never see a zero or negative weight.
func NormalizeScores(hits []ExemplarHit, epsilon float64) {
	if len(hits) == 0 {
		return
	}
	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < lo {
			lo = h.Score
		}
		if h.Score > hi {
			hi = h.Score
		}
	}
	if hi == lo {
		for i := range hits {
			hits[i].Score = 1
		}
		return
	}
	for i := range hits {
		hits[i].Score = epsilon + (1-epsilon)*(hits[i].Score-lo)/(hi-lo)
	}
}

func (a *Agent) listTables(ctx context.Context, st State) (Patch, Label, error) {
	catalog, err := a.schema.ListTables(ctx)
	if err != nil {
		return Patch{}, "", fmt.Errorf("list tables: %w", err)
	}
	return Patch{
		TableCatalog:   ptr(catalog),
		AppendMessages: []Message{assistantMessage(catalog)},
	}, LabelNext, nil
}

// selectTables asks the model which tables to inspect next. Tables already in
// the cumulative selection are excluded from the prompt and dropped from the
// response, so every iteration can only add schema evidence.
func (a *Agent) selectTables(ctx context.Context, st State) (Patch, Label, error) {
	exclusion := ""
	if len(st.Selected) > 0 {
		exclusion = fmt.Sprintf("Already inspected, do not pick again: %s\n", strings.Join(st.Selected, ", "))
	}
	feedback := ""
	if st.Deficiency != "" {
		feedback = fmt.Sprintf("Previous evidence was judged insufficient: %s\n", st.Deficiency)
	}

	prompt := fmt.Sprintf(selectorPrompt, st.Question, st.TableCatalog, exclusion, feedback)
	resp, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))
	if err != nil {
		return Patch{}, "", fmt.Errorf("table selection: %w", err)
	}

	var out struct {
		Tables []string `json:"tables"`
	}
	if err := decodeStructured(resp, &out); err != nil {
		return Patch{}, "", fmt.Errorf("table selection: %w", err)
	}

	var fresh []string
	for _, t := range out.Tables {
		t = strings.TrimSpace(t)
		if t == "" || st.HasSelected(t) {
			continue
		}
		dup := false
		for _, f := range fresh {
			if strings.EqualFold(f, t) {
				dup = true
				break
			}
		}
		if !dup {
			fresh = append(fresh, t)
		}
	}

	patch := Patch{SelectTables: fresh}
	for _, t := range fresh {
		fact, err := a.schema.FetchFact(ctx, t)
		if err != nil {
			a.log.Warn("agent", "schema fetch failed, skipping table", map[string]interface{}{
				"table": t, "error": err.Error(),
			})
			continue
		}
		patch.AddFacts = append(patch.AddFacts, *fact)
		patch.AppendMessages = append(patch.AppendMessages, assistantMessage(fact.Render()))
	}
	if len(fresh) > 0 {
		patch.AppendMessages = append(patch.AppendMessages,
			assistantMessage("selected tables: "+strings.Join(fresh, ", ")))
	}
	return patch, LabelNext, nil
}

// contextualize folds the newest schema facts into the brief. The merge is
// structural: whatever the model returns, no line of the prior brief is lost.
func (a *Agent) contextualize(ctx context.Context, st State) (Patch, Label, error) {
	var evidence strings.Builder
	for i := range st.Facts {
		evidence.WriteString(st.Facts[i].Render())
		evidence.WriteString("\n")
	}

	prompt := fmt.Sprintf(contextualizePrompt, st.Question, st.Brief, evidence.String())
	resp, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))
	if err != nil {
		a.log.Warn("agent", "brief rewrite failed, merging raw evidence", map[string]interface{}{
			"error": err.Error(),
		})
		resp = evidence.String()
	}

	brief := MergeBrief(st.Brief, resp)
	return Patch{
		Brief:          ptr(brief),
		AppendMessages: []Message{assistantMessage("updated working brief")},
	}, LabelNext, nil
}

// checkSufficiency decides whether to generate now or loop back for more
// tables. The budget only shrinks on an insufficient verdict and the loop
// exits before it can go negative.
func (a *Agent) checkSufficiency(ctx context.Context, st State) (Patch, Label, error) {
	prompt := fmt.Sprintf(sufficiencyPrompt, st.Question, st.Brief)
	resp, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))

	verdict := struct {
		Sufficient bool   `json:"sufficient"`
		Reason     string `json:"reason"`
	}{Sufficient: true}
	if err == nil {
		err = decodeStructured(resp, &verdict)
	}
	if err != nil {
		// Uncertainty resolves towards proceeding, same as the prompt rule.
		a.log.Warn("agent", "sufficiency check failed, proceeding", map[string]interface{}{
			"error": err.Error(),
		})
		verdict.Sufficient = true
	}

	if verdict.Sufficient {
		return Patch{
			Sufficient:     ptr(true),
			AppendMessages: []Message{assistantMessage("evidence judged sufficient")},
		}, LabelProceed, nil
	}

	remaining := st.SufficiencyBudget - 1
	patch := Patch{
		Sufficient:        ptr(false),
		SufficiencyBudget: ptr(remaining),
		Deficiency:        ptr(verdict.Reason),
		AppendMessages: []Message{
			assistantMessage("evidence judged insufficient: " + verdict.Reason),
		},
	}
	if remaining <= 0 {
		// Budget exhausted: generate with what we have.
		return patch, LabelProceed, nil
	}
	return patch, LabelRefine, nil
}

// generate writes SQL. It picks its prompt from the state: a failed prior
// execution means correction mode, a brief without schema facts means the
// cached-context mode, anything else is fresh generation.
func (a *Agent) generate(ctx context.Context, st State) (Patch, Label, error) {
	var prompt string
	switch {
	case st.SQL != "" && isErrorPayload(st.LastResult):
		prompt = fmt.Sprintf(correctionPrompt, st.Question, st.Brief, st.SQL,
			strings.TrimPrefix(st.LastResult, sqlexec.ErrorTag))
	case len(st.Facts) == 0 && st.Brief != "":
		prompt = fmt.Sprintf(generateFromContextPrompt, st.Question, st.Brief)
	default:
		prompt = fmt.Sprintf(generatePrompt, st.Question, st.Brief)
	}

	resp, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))
	if err != nil {
		return Patch{}, "", fmt.Errorf("query generation: %w", err)
	}

	var out struct {
		Query     string `json:"query"`
		Reasoning string `json:"reasoning"`
	}
	if err := decodeStructured(resp, &out); err != nil {
		return Patch{}, "", fmt.Errorf("query generation: %w", err)
	}
	query := strings.TrimSpace(out.Query)
	if query == "" {
		return Patch{}, "", fmt.Errorf("query generation: model returned an empty statement")
	}

	return Patch{
		SQL: ptr(query),
		AppendMessages: []Message{
			assistantMessage(fmt.Sprintf("generated query: %s\nreasoning: %s", query, out.Reasoning)),
		},
	}, LabelNext, nil
}

// execute runs the current statement. Database failures arrive as an
// error-tagged payload; each one costs a unit of correction budget, and a
// negative balance ends the run with the terminal failure answer.
func (a *Agent) execute(ctx context.Context, st State) (Patch, Label, error) {
	payload := a.runner.Run(ctx, st.SQL)
	patch := Patch{
		LastResult:     ptr(payload),
		AppendMessages: []Message{assistantMessage(payload)},
	}

	if !isErrorPayload(payload) {
		return patch, LabelOK, nil
	}

	remaining := st.CorrectionBudget - 1
	patch.CorrectionBudget = ptr(remaining)
	if remaining < 0 {
		patch.FinalOutput = ptr(failedAnswer)
		patch.AppendMessages = append(patch.AppendMessages, assistantMessage(failedAnswer))
		return patch, LabelGiveUp, nil
	}
	a.log.Info("agent", "query failed, attempting correction", map[string]interface{}{
		"remaining": remaining,
	})
	return patch, LabelRetry, nil
}

// classifyChart decides whether the result is worth plotting. Any trouble
// here degrades to the plain text answer.
func (a *Agent) classifyChart(ctx context.Context, st State) (Patch, Label, error) {
	prompt := fmt.Sprintf(chartClassifyPrompt, st.Question, st.LastResult)
	resp, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))

	var out struct {
		Type string `json:"type"`
	}
	if err == nil {
		err = decodeStructured(resp, &out)
	}
	if err != nil {
		a.log.Warn("agent", "chart classification failed, answering as text", map[string]interface{}{
			"error": err.Error(),
		})
		out.Type = string(chart.KindNone)
	}

	kind := chart.Kind(strings.ToLower(strings.TrimSpace(out.Type)))
	if kind != chart.KindLine && kind != chart.KindBar {
		kind = chart.KindNone
	}

	patch := Patch{
		ChartKind:      ptr(kind),
		AppendMessages: []Message{assistantMessage("chart type: " + string(kind))},
	}
	if kind == chart.KindNone {
		return patch, LabelNoChart, nil
	}
	return patch, LabelChart, nil
}

// renderChart extracts a series and renders it. Every failure falls back to
// the text answer instead of failing the run.
func (a *Agent) renderChart(ctx context.Context, st State) (Patch, Label, error) {
	prompt := fmt.Sprintf(chartSeriesPrompt, st.Question, st.LastResult)
	resp, err := a.llm.Generate(ctx, prompt, llm.WithTemperature(0))

	var series struct {
		Title  string    `json:"title"`
		XLabel string    `json:"x_label"`
		YLabel string    `json:"y_label"`
		Labels []string  `json:"labels"`
		Values []float64 `json:"values"`
	}
	if err == nil {
		err = decodeStructured(resp, &series)
	}
	if err == nil {
		req := chart.Request{
			Kind:   st.ChartKind,
			Title:  series.Title,
			XLabel: series.XLabel,
			YLabel: series.YLabel,
			Labels: series.Labels,
			Values: series.Values,
		}
		var png []byte
		png, err = a.renderer.Render(ctx, req)
		if err == nil {
			output := chart.Markdown(series.Title, png) + "\n\nQuery:\n" + st.SQL
			return Patch{
				FinalOutput:    ptr(output),
				AppendMessages: []Message{assistantMessage("rendered " + string(st.ChartKind) + " chart")},
			}, LabelNext, nil
		}
	}

	a.log.Warn("agent", "chart rendering failed, answering as text", map[string]interface{}{
		"error": err.Error(),
	})
	return Patch{
		AppendMessages: []Message{assistantMessage("chart rendering unavailable, returning text")},
	}, LabelFallback, nil
}

// finalize composes the plain text answer from the executed query and its
// result.
func (a *Agent) finalize(_ context.Context, st State) (Patch, Label, error) {
	output := fmt.Sprintf("Query:\n%s\n\nResult:\n%s", st.SQL, st.LastResult)
	return Patch{
		FinalOutput:    ptr(output),
		AppendMessages: []Message{assistantMessage(output)},
	}, LabelNext, nil
}
