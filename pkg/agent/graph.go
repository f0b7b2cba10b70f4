package agent

import (
	"context"
	"fmt"
)

// NodeName identifies one stage of the pipeline.
type NodeName string

const (
	NodeRoute            NodeName = "route"
	NodeInformational    NodeName = "informational"
	NodeNormalize        NodeName = "normalize"
	NodeRetrieveContext  NodeName = "retrieve_context"
	NodeListTables       NodeName = "list_tables"
	NodeSelectTables     NodeName = "select_tables"
	NodeContextualize    NodeName = "contextualize"
	NodeCheckSufficiency NodeName = "check_sufficiency"
	NodeDecompose        NodeName = "decompose"
	NodeGenerate         NodeName = "generate"
	NodeExecute          NodeName = "execute"
	NodeClassifyChart    NodeName = "classify_chart"
	NodeRenderChart      NodeName = "render_chart"
	NodeFinalize         NodeName = "finalize"
	NodeDone             NodeName = "done"
	NodeFailed           NodeName = "failed"
)

// Label is the routing verdict a stage returns alongside its patch. The
// transition table maps (node, label) to the next node, so control flow lives
// in one place instead of inside the stages.
type Label string

const (
	LabelNext          Label = "next"
	LabelData          Label = "data"
	LabelInformational Label = "informational"
	LabelHit           Label = "hit"
	LabelMiss          Label = "miss"
	LabelProceed       Label = "proceed"
	LabelRefine        Label = "refine"
	LabelOK            Label = "ok"
	LabelRetry         Label = "retry"
	LabelGiveUp        Label = "give_up"
	LabelChart         Label = "chart"
	LabelNoChart       Label = "no_chart"
	LabelFallback      Label = "fallback"
)

// StageFunc computes a patch and a routing label from the current state. A
// non-nil error aborts the run; recoverable trouble is expressed through the
// label instead.
type StageFunc func(ctx context.Context, st State) (Patch, Label, error)

// Graph is the pipeline's state machine: a stage per node plus an explicit
// transition table.
type Graph struct {
	stages      map[NodeName]StageFunc
	transitions map[NodeName]map[Label]NodeName
	start       NodeName
}

func NewGraph(start NodeName) *Graph {
	return &Graph{
		stages:      make(map[NodeName]StageFunc),
		transitions: make(map[NodeName]map[Label]NodeName),
		start:       start,
	}
}

func (g *Graph) AddNode(name NodeName, fn StageFunc) *Graph {
	g.stages[name] = fn
	return g
}

func (g *Graph) AddEdge(from NodeName, label Label, to NodeName) *Graph {
	if g.transitions[from] == nil {
		g.transitions[from] = make(map[Label]NodeName)
	}
	g.transitions[from][label] = to
	return g
}

// Status is the terminal disposition of a run.
type Status string

const (
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusSuspended Status = "suspended"
)

// Outcome is what a run ends with. A suspended outcome carries the node the
// run will resume at and the full state needed to continue.
type Outcome struct {
	Status Status
	Node   NodeName
	State  State
}

// RunOptions tunes a single walk of the graph.
type RunOptions struct {
	// SuspendBefore pauses the run when the walk is about to enter this
	// node, handing the state back to the caller. Zero value disables it.
	SuspendBefore NodeName
}

// Run walks the graph from its start node until a terminal node is reached,
// the context is cancelled, or the suspension boundary is hit.
func (g *Graph) Run(ctx context.Context, st State, opts RunOptions) (Outcome, error) {
	return g.run(ctx, st, g.start, opts)
}

// Resume continues a suspended run from the node it stopped at.
func (g *Graph) Resume(ctx context.Context, st State, from NodeName, opts RunOptions) (Outcome, error) {
	return g.run(ctx, st, from, opts)
}

func (g *Graph) run(ctx context.Context, st State, node NodeName, opts RunOptions) (Outcome, error) {
	for {
		if node == NodeDone {
			return Outcome{Status: StatusDone, Node: node, State: st}, nil
		}
		if node == NodeFailed {
			return Outcome{Status: StatusFailed, Node: node, State: st}, nil
		}
		if opts.SuspendBefore != "" && node == opts.SuspendBefore {
			return Outcome{Status: StatusSuspended, Node: node, State: st}, nil
		}
		if err := ctx.Err(); err != nil {
			return Outcome{Node: node, State: st}, err
		}

		stage, ok := g.stages[node]
		if !ok {
			return Outcome{Node: node, State: st}, fmt.Errorf("no stage registered for node %q", node)
		}

		patch, label, err := stage(ctx, st)
		if err != nil {
			return Outcome{Node: node, State: st}, fmt.Errorf("stage %s: %w", node, err)
		}
		st = st.Apply(patch)

		next, ok := g.transitions[node][label]
		if !ok {
			return Outcome{Node: node, State: st}, fmt.Errorf("no transition from %q on label %q", node, label)
		}
		node = next
	}
}
