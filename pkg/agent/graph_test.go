package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"ai-sqlpilot-be/pkg/chart"
	"ai-sqlpilot-be/pkg/llm"
	"ai-sqlpilot-be/pkg/schemainfo"
	"ai-sqlpilot-be/pkg/sqlexec"
)

// scriptLLM answers prompts by matching a distinctive fragment. Rules with
// several responses hand them out one call at a time.
type llmRule struct {
	match     string
	responses []string
	calls     int
}

type scriptLLM struct {
	mu      sync.Mutex
	rules   []*llmRule
	prompts []string
	errOn   string
}

func (s *scriptLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.errOn != "" && strings.Contains(prompt, s.errOn) {
		return "", errors.New("model unavailable")
	}
	for _, r := range s.rules {
		if strings.Contains(prompt, r.match) {
			i := r.calls
			if i >= len(r.responses) {
				i = len(r.responses) - 1
			}
			r.calls++
			return r.responses[i], nil
		}
	}
	return "", errors.New("unexpected prompt: " + prompt[:min(80, len(prompt))])
}

func (s *scriptLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages")
	}
	return s.Generate(ctx, messages[len(messages)-1].Content, opts...)
}

func rule(match string, responses ...string) *llmRule {
	return &llmRule{match: match, responses: responses}
}

type fakeSearcher struct {
	hits  []ExemplarHit
	err   error
	calls int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]ExemplarHit, error) {
	f.calls++
	return f.hits, f.err
}

type fakeSchema struct {
	catalog   string
	facts     map[string]*schemainfo.TableFact
	listCalls int
	factCalls []string
}

func (f *fakeSchema) ListTables(_ context.Context) (string, error) {
	f.listCalls++
	return f.catalog, nil
}

func (f *fakeSchema) FetchFact(_ context.Context, table string) (*schemainfo.TableFact, error) {
	f.factCalls = append(f.factCalls, table)
	fact, ok := f.facts[table]
	if !ok {
		return nil, errors.New("table not found: " + table)
	}
	return fact, nil
}

// fakeRunner hands out canned payloads in order and records every statement.
type fakeRunner struct {
	mu       sync.Mutex
	payloads []string
	queries  []string
}

func (f *fakeRunner) Run(_ context.Context, query string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if len(f.payloads) == 0 {
		return "[(1,)]"
	}
	p := f.payloads[0]
	if len(f.payloads) > 1 {
		f.payloads = f.payloads[1:]
	}
	return p
}

type fakeRenderer struct {
	png  []byte
	err  error
	reqs []chart.Request
}

func (f *fakeRenderer) Render(_ context.Context, req chart.Request) ([]byte, error) {
	f.reqs = append(f.reqs, req)
	return f.png, f.err
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// baseRules covers the common happy path: a data request with one discovered
// table, a working query, and a text answer.
func baseRules() []*llmRule {
	return []*llmRule{
		rule("request router", `{"classification": "DataRequest"}`),
		rule("rewrite user questions", `{"question": "total revenue between 2026-07-01 and 2026-07-31"}`),
		rule("ranking cached question/context pairs", `{"ids": [2, 1], "reasoning": "both cover revenue"}`),
		rule("select the PostgreSQL tables", `{"tables": ["orders"]}`),
		rule("maintain a working brief", "Tables\norders\nRelevant Fields\norders.amount"),
		rule("judge whether the schema evidence", `{"sufficient": true, "reason": ""}`),
		rule("A PostgreSQL query you wrote failed", `{"query": "SELECT sum(amount) FROM orders", "reasoning": "fixed column name"}`),
		rule("previously validated examples", `{"query": "SELECT sum(amount) FROM orders", "reasoning": "adapted cached query"}`),
		rule("You write PostgreSQL queries.", `{"query": "SELECT sum(amout) FROM orders", "reasoning": "sums revenue"}`),
		rule("should be visualised", `{"type": "none"}`),
		rule("Extract one plottable series", `{"title": "Revenue", "x_label": "Month", "y_label": "Total", "labels": ["Jul"], "values": [10]}`),
		rule("data analysis assistant for a PostgreSQL database", "We track orders and customers."),
	}
}

func testAgent(model *scriptLLM, searcher *fakeSearcher, schema *fakeSchema, runner *fakeRunner, renderer *fakeRenderer, cfg Config) *Agent {
	return New(model, searcher, schema, runner, renderer, nopLogger{}, cfg)
}

func discoverySchema() *fakeSchema {
	return &fakeSchema{
		catalog: "Tables and Descriptions:\n\norders: sales orders\ncustomers: customer accounts\n",
		facts: map[string]*schemainfo.TableFact{
			"orders": {
				Name:    "orders",
				Columns: []schemainfo.Column{{Name: "amount", Type: "numeric"}},
			},
			"customers": {
				Name:    "customers",
				Columns: []schemainfo.Column{{Name: "id", Type: "bigint"}},
			},
		},
	}
}

// A question with cached context skips schema discovery entirely.
func TestRunCachedContextFastPath(t *testing.T) {
	model := &scriptLLM{rules: baseRules()}
	searcher := &fakeSearcher{hits: []ExemplarHit{
		{ID: 1, Question: "revenue last year", Context: "use orders.amount", Score: 0.9},
		{ID: 2, Question: "monthly revenue", Context: "sum orders.amount by month", Score: 0.8},
	}}
	schema := discoverySchema()
	runner := &fakeRunner{payloads: []string{"[(42,)]"}}

	a := testAgent(model, searcher, schema, runner, &fakeRenderer{}, Config{})
	outcome, err := a.Ask(context.Background(), uuid.New(), "what was the revenue last month?", RunOptions{})

	require.NoError(t, err)
	require.Equal(t, StatusDone, outcome.Status)
	require.Equal(t, 0, schema.listCalls, "fast path must not browse the catalog")
	require.Empty(t, schema.factCalls, "fast path must not fetch schemas")
	require.Equal(t, []string{"SELECT sum(amount) FROM orders"}, runner.queries)
	require.Contains(t, outcome.State.FinalOutput, "[(42,)]")

	// Rerank order decides brief order: id 2's context comes first.
	idx2 := strings.Index(outcome.State.Brief, "sum orders.amount by month")
	idx1 := strings.Index(outcome.State.Brief, "use orders.amount")
	require.GreaterOrEqual(t, idx1, 0)
	require.GreaterOrEqual(t, idx2, 0)
	require.Less(t, idx2, idx1)
}

// No cached context: the pipeline discovers schema, the first statement
// fails, and one correction attempt fixes it.
func TestRunCorrectionLoopRecovers(t *testing.T) {
	model := &scriptLLM{rules: baseRules()}
	runner := &fakeRunner{payloads: []string{
		sqlexec.ErrorTag + `column "amout" does not exist`,
		"[(10,)]",
	}}
	schema := discoverySchema()

	a := testAgent(model, &fakeSearcher{}, schema, runner, &fakeRenderer{}, Config{})
	outcome, err := a.Ask(context.Background(), uuid.New(), "total revenue?", RunOptions{})

	require.NoError(t, err)
	require.Equal(t, StatusDone, outcome.Status)
	require.Len(t, runner.queries, 2)
	require.Equal(t, "SELECT sum(amout) FROM orders", runner.queries[0])
	require.Equal(t, "SELECT sum(amount) FROM orders", runner.queries[1])
	require.Equal(t, 0, outcome.State.CorrectionBudget, "one failure costs exactly one unit")
	require.Equal(t, 1, schema.listCalls)
}

// Two consecutive failures exhaust a budget of one and end the run with the
// terminal answer, never a raw error.
func TestRunCorrectionBudgetExhausted(t *testing.T) {
	model := &scriptLLM{rules: baseRules()}
	runner := &fakeRunner{payloads: []string{
		sqlexec.ErrorTag + `column "amout" does not exist`,
		sqlexec.ErrorTag + `relation "orders" does not exist`,
	}}

	a := testAgent(model, &fakeSearcher{}, discoverySchema(), runner, &fakeRenderer{}, Config{})
	outcome, err := a.Ask(context.Background(), uuid.New(), "total revenue?", RunOptions{})

	require.NoError(t, err, "budget exhaustion is a terminal state, not an error")
	require.Equal(t, StatusFailed, outcome.Status)
	require.Len(t, runner.queries, 2, "budget of one allows exactly one correction")
	require.Equal(t, -1, outcome.State.CorrectionBudget)
	require.Equal(t, failedAnswer, outcome.State.FinalOutput)
}

// An insufficient verdict loops back to the selector, which must exclude the
// tables already inspected.
func TestRunSufficiencyRefineExcludesSelected(t *testing.T) {
	rules := baseRules()
	for _, r := range rules {
		switch r.match {
		case "judge whether the schema evidence":
			r.responses = []string{
				`{"sufficient": false, "reason": "join key to customers unknown"}`,
				`{"sufficient": true, "reason": ""}`,
			}
		case "select the PostgreSQL tables":
			r.responses = []string{
				`{"tables": ["orders"]}`,
				`{"tables": ["orders", "customers"]}`,
			}
		}
	}
	model := &scriptLLM{rules: rules}
	schema := discoverySchema()

	a := testAgent(model, &fakeSearcher{}, schema, &fakeRunner{}, &fakeRenderer{}, Config{SufficiencyRetryLimit: 2})
	outcome, err := a.Ask(context.Background(), uuid.New(), "revenue per customer?", RunOptions{})

	require.NoError(t, err)
	require.Equal(t, StatusDone, outcome.Status)
	require.Equal(t, []string{"orders", "customers"}, outcome.State.Selected)
	// orders was fetched once; the second round only fetched the new table.
	require.Equal(t, []string{"orders", "customers"}, schema.factCalls)

	var secondSelector string
	for _, p := range model.prompts {
		if strings.Contains(p, "select the PostgreSQL tables") && strings.Contains(p, "Already inspected") {
			secondSelector = p
		}
	}
	require.Contains(t, secondSelector, "orders", "exclusion feedback must name the inspected table")
	require.Contains(t, secondSelector, "join key to customers unknown", "deficiency reason must reach the selector")
}

// Exhausting the sufficiency budget proceeds to generation instead of
// looping forever; the budget never goes negative.
func TestRunSufficiencyBudgetExhaustedProceeds(t *testing.T) {
	rules := baseRules()
	for _, r := range rules {
		if r.match == "judge whether the schema evidence" {
			r.responses = []string{`{"sufficient": false, "reason": "missing everything"}`}
		}
	}
	model := &scriptLLM{rules: rules}

	a := testAgent(model, &fakeSearcher{}, discoverySchema(), &fakeRunner{}, &fakeRenderer{}, Config{SufficiencyRetryLimit: 1})
	outcome, err := a.Ask(context.Background(), uuid.New(), "revenue?", RunOptions{})

	require.NoError(t, err)
	require.Equal(t, StatusDone, outcome.Status)
	require.Equal(t, 0, outcome.State.SufficiencyBudget)
	require.False(t, outcome.State.Sufficient)
}

func TestRunInformationalSidePath(t *testing.T) {
	rules := baseRules()
	rules[0].responses = []string{`{"classification": "InformationalRequest"}`}
	model := &scriptLLM{rules: rules}
	runner := &fakeRunner{}
	schema := discoverySchema()

	a := testAgent(model, &fakeSearcher{}, schema, runner, &fakeRenderer{}, Config{})
	outcome, err := a.Ask(context.Background(), uuid.New(), "what data do you have?", RunOptions{})

	require.NoError(t, err)
	require.Equal(t, StatusDone, outcome.Status)
	require.Equal(t, "We track orders and customers.", outcome.State.FinalOutput)
	require.Equal(t, 1, schema.listCalls)
	require.Empty(t, runner.queries, "informational path must not execute SQL")
}

// A hard model failure during routing is fatal: there is no branch to take.
func TestRunRouterFailureIsFatal(t *testing.T) {
	model := &scriptLLM{rules: baseRules(), errOn: "request router"}

	a := testAgent(model, &fakeSearcher{}, discoverySchema(), &fakeRunner{}, &fakeRenderer{}, Config{})
	_, err := a.Ask(context.Background(), uuid.New(), "revenue?", RunOptions{})

	require.Error(t, err)
	require.Contains(t, err.Error(), "route")
}

func TestRunSuspendAndResume(t *testing.T) {
	model := &scriptLLM{rules: baseRules()}
	runner := &fakeRunner{payloads: []string{"[(10,)]"}}

	a := testAgent(model, &fakeSearcher{}, discoverySchema(), runner, &fakeRenderer{}, Config{})
	outcome, err := a.Ask(context.Background(), uuid.New(), "revenue?", RunOptions{SuspendBefore: NodeGenerate})

	require.NoError(t, err)
	require.Equal(t, StatusSuspended, outcome.Status)
	require.Equal(t, NodeGenerate, outcome.Node)
	require.Empty(t, runner.queries, "suspended run must not have executed anything")

	resumed, err := a.Resume(context.Background(), outcome.State, outcome.Node, "amounts are stored in cents", RunOptions{})

	require.NoError(t, err)
	require.Equal(t, StatusDone, resumed.Status)
	require.Contains(t, resumed.State.Brief, "amounts are stored in cents")
	require.Len(t, runner.queries, 1)
}

func TestRunChartRendered(t *testing.T) {
	rules := baseRules()
	for _, r := range rules {
		if r.match == "should be visualised" {
			r.responses = []string{`{"type": "bar"}`}
		}
	}
	model := &scriptLLM{rules: rules}
	renderer := &fakeRenderer{png: []byte{0x89, 0x50, 0x4e, 0x47}}

	a := testAgent(model, &fakeSearcher{}, discoverySchema(), &fakeRunner{}, renderer, Config{})
	outcome, err := a.Ask(context.Background(), uuid.New(), "revenue per month?", RunOptions{})

	require.NoError(t, err)
	require.Equal(t, StatusDone, outcome.Status)
	require.Equal(t, chart.KindBar, outcome.State.ChartKind)
	require.Len(t, renderer.reqs, 1)
	require.Equal(t, chart.KindBar, renderer.reqs[0].Kind)
	require.Contains(t, outcome.State.FinalOutput, "data:image/png;base64,")
}

// A renderer failure degrades to the text answer instead of failing the run.
func TestRunChartFallbackToText(t *testing.T) {
	rules := baseRules()
	for _, r := range rules {
		if r.match == "should be visualised" {
			r.responses = []string{`{"type": "line"}`}
		}
	}
	model := &scriptLLM{rules: rules}
	renderer := &fakeRenderer{err: errors.New("renderer down")}
	runner := &fakeRunner{payloads: []string{"[(10,)]"}}

	a := testAgent(model, &fakeSearcher{}, discoverySchema(), runner, renderer, Config{})
	outcome, err := a.Ask(context.Background(), uuid.New(), "revenue per month?", RunOptions{})

	require.NoError(t, err)
	require.Equal(t, StatusDone, outcome.Status)
	require.Contains(t, outcome.State.FinalOutput, "Query:")
	require.Contains(t, outcome.State.FinalOutput, "[(10,)]")
}

// Fresh generation must not depend on prior generation attempts: with the
// same state, the stage produces the same statement and touches nothing else.
func TestGenerateFreshIsRepeatable(t *testing.T) {
	model := &scriptLLM{rules: baseRules()}
	a := testAgent(model, &fakeSearcher{}, discoverySchema(), &fakeRunner{}, &fakeRenderer{}, Config{})

	st := State{
		Question: "revenue?",
		Brief:    "Tables\norders",
		Facts:    []schemainfo.TableFact{{Name: "orders"}},
	}

	p1, l1, err1 := a.generate(context.Background(), st)
	p2, l2, err2 := a.generate(context.Background(), st)

	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, l1, l2)
	require.Equal(t, *p1.SQL, *p2.SQL)
	require.Nil(t, p1.Brief, "generation must not rewrite the brief")
	require.Empty(t, p1.AddFacts)
}

// Exemplar search failure degrades to schema discovery.
func TestRunRetrievalFailureFallsBack(t *testing.T) {
	model := &scriptLLM{rules: baseRules()}
	searcher := &fakeSearcher{err: errors.New("vector store down")}
	schema := discoverySchema()

	a := testAgent(model, searcher, schema, &fakeRunner{}, &fakeRenderer{}, Config{})
	outcome, err := a.Ask(context.Background(), uuid.New(), "revenue?", RunOptions{})

	require.NoError(t, err)
	require.Equal(t, StatusDone, outcome.Status)
	require.Equal(t, 1, schema.listCalls)
}
