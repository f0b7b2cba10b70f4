package agent

import (
	"context"

	"github.com/google/uuid"

	"ai-sqlpilot-be/internal/pkg/logger"
	"ai-sqlpilot-be/pkg/chart"
	"ai-sqlpilot-be/pkg/llm"
	"ai-sqlpilot-be/pkg/schemainfo"
)

// ExemplarHit is one retrieved question/context pair with its similarity
// score, already normalized to (0, 1].
type ExemplarHit struct {
	ID       int64
	Question string
	Context  string
	Score    float64
}

// ExemplarSearcher retrieves cached exemplars similar to a question.
type ExemplarSearcher interface {
	Search(ctx context.Context, question string, k int) ([]ExemplarHit, error)
}

// SchemaSource reads table metadata from the target database.
type SchemaSource interface {
	ListTables(ctx context.Context) (string, error)
	FetchFact(ctx context.Context, table string) (*schemainfo.TableFact, error)
}

// QueryRunner executes SQL against the target database. Failures come back
// in-band as an error-tagged payload, never as a Go error, so the correction
// loop can inspect them.
type QueryRunner interface {
	Run(ctx context.Context, query string) string
}

// Config tunes the pipeline's loops.
type Config struct {
	// TopK is how many exemplar candidates the retriever pulls before
	// reranking.
	TopK int
	// SufficiencyRetryLimit bounds how many times the selector loop may
	// run again after an insufficient verdict.
	SufficiencyRetryLimit int
	// CorrectionRetryLimit bounds how many corrected statements may be
	// attempted after a failed execution.
	CorrectionRetryLimit int
	// EnableDecomposition turns on the parallel sub-question path.
	EnableDecomposition bool
}

func (c *Config) applyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 8
	}
	if c.SufficiencyRetryLimit <= 0 {
		c.SufficiencyRetryLimit = 1
	}
	if c.CorrectionRetryLimit <= 0 {
		c.CorrectionRetryLimit = 1
	}
}

// Agent runs the question-to-answer pipeline.
type Agent struct {
	llm       llm.Provider
	exemplars ExemplarSearcher
	schema    SchemaSource
	runner    QueryRunner
	renderer  chart.Renderer
	log       logger.ILogger
	cfg       Config
	graph     *Graph
}

func New(provider llm.Provider, exemplars ExemplarSearcher, schema SchemaSource,
	runner QueryRunner, renderer chart.Renderer, log logger.ILogger, cfg Config) *Agent {

	cfg.applyDefaults()
	a := &Agent{
		llm:       provider,
		exemplars: exemplars,
		schema:    schema,
		runner:    runner,
		renderer:  renderer,
		log:       log,
		cfg:       cfg,
	}
	a.graph = a.buildGraph()
	return a
}

func (a *Agent) buildGraph() *Graph {
	g := NewGraph(NodeRoute)

	g.AddNode(NodeRoute, a.route)
	g.AddNode(NodeInformational, a.informational)
	g.AddNode(NodeNormalize, a.normalize)
	g.AddNode(NodeRetrieveContext, a.retrieveContext)
	g.AddNode(NodeListTables, a.listTables)
	g.AddNode(NodeSelectTables, a.selectTables)
	g.AddNode(NodeContextualize, a.contextualize)
	g.AddNode(NodeCheckSufficiency, a.checkSufficiency)
	g.AddNode(NodeDecompose, a.decompose)
	g.AddNode(NodeGenerate, a.generate)
	g.AddNode(NodeExecute, a.execute)
	g.AddNode(NodeClassifyChart, a.classifyChart)
	g.AddNode(NodeRenderChart, a.renderChart)
	g.AddNode(NodeFinalize, a.finalize)

	g.AddEdge(NodeRoute, LabelData, NodeNormalize)
	g.AddEdge(NodeRoute, LabelInformational, NodeInformational)
	g.AddEdge(NodeInformational, LabelNext, NodeDone)
	g.AddEdge(NodeNormalize, LabelNext, NodeRetrieveContext)
	g.AddEdge(NodeRetrieveContext, LabelHit, a.afterSufficiency())
	g.AddEdge(NodeRetrieveContext, LabelMiss, NodeListTables)
	g.AddEdge(NodeListTables, LabelNext, NodeSelectTables)
	g.AddEdge(NodeSelectTables, LabelNext, NodeContextualize)
	g.AddEdge(NodeContextualize, LabelNext, NodeCheckSufficiency)
	g.AddEdge(NodeCheckSufficiency, LabelProceed, a.afterSufficiency())
	g.AddEdge(NodeCheckSufficiency, LabelRefine, NodeSelectTables)
	g.AddEdge(NodeDecompose, LabelNext, NodeGenerate)
	g.AddEdge(NodeDecompose, LabelOK, NodeExecute)
	g.AddEdge(NodeDecompose, LabelGiveUp, NodeFailed)
	g.AddEdge(NodeGenerate, LabelNext, NodeExecute)
	g.AddEdge(NodeExecute, LabelOK, NodeClassifyChart)
	g.AddEdge(NodeExecute, LabelRetry, NodeGenerate)
	g.AddEdge(NodeExecute, LabelGiveUp, NodeFailed)
	g.AddEdge(NodeClassifyChart, LabelChart, NodeRenderChart)
	g.AddEdge(NodeClassifyChart, LabelNoChart, NodeFinalize)
	g.AddEdge(NodeRenderChart, LabelNext, NodeDone)
	g.AddEdge(NodeRenderChart, LabelFallback, NodeFinalize)
	g.AddEdge(NodeFinalize, LabelNext, NodeDone)

	return g
}

func (a *Agent) afterSufficiency() NodeName {
	if a.cfg.EnableDecomposition {
		return NodeDecompose
	}
	return NodeGenerate
}

// Ask runs one question end to end. The returned Outcome may be suspended if
// opts.SuspendBefore was set.
func (a *Agent) Ask(ctx context.Context, sessionID uuid.UUID, question string, opts RunOptions) (Outcome, error) {
	st := State{
		SessionID:         sessionID,
		Question:          question,
		Messages:          []Message{userMessage(question)},
		SufficiencyBudget: a.cfg.SufficiencyRetryLimit,
		CorrectionBudget:  a.cfg.CorrectionRetryLimit,
		ChartKind:         chart.KindNone,
	}
	a.log.Info("agent", "run started", map[string]interface{}{
		"session_id": sessionID.String(),
	})
	return a.graph.Run(ctx, st, opts)
}

// Resume continues a suspended run. Injected information is merged into the
// brief before the walk restarts, so a caller can correct or extend the
// evidence the pipeline works from.
func (a *Agent) Resume(ctx context.Context, st State, from NodeName, injected string, opts RunOptions) (Outcome, error) {
	if injected != "" {
		st = st.Apply(Patch{
			Brief:          ptr(MergeBrief(st.Brief, injected)),
			AppendMessages: []Message{userMessage(injected)},
		})
	}
	a.log.Info("agent", "run resumed", map[string]interface{}{
		"session_id": st.SessionID.String(),
		"node":       string(from),
	})
	return a.graph.Resume(ctx, st, from, opts)
}

func ptr[T any](v T) *T { return &v }
