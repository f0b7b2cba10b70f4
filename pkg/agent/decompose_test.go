package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decomposeRules() []*llmRule {
	rules := baseRules()
	return append(rules,
		rule("split a data question",
			`{"subquestions": ["total revenue in july", "number of orders in july"]}`),
		rule("Combine the SQL statements",
			`{"query": "WITH r AS (SELECT sum(amount) FROM orders), c AS (SELECT count(*) FROM orders) SELECT * FROM r, c", "reasoning": "joined both measures"}`),
	)
}

func TestDecomposeMergesBranches(t *testing.T) {
	rules := decomposeRules()
	for _, r := range rules {
		if r.match == "You write PostgreSQL queries." {
			r.responses = []string{
				`{"query": "SELECT sum(amount) FROM orders", "reasoning": "revenue"}`,
				`{"query": "SELECT count(*) FROM orders", "reasoning": "order count"}`,
			}
		}
	}
	model := &scriptLLM{rules: rules}
	runner := &fakeRunner{}

	a := testAgent(model, &fakeSearcher{}, discoverySchema(), runner, &fakeRenderer{}, Config{EnableDecomposition: true})

	patch, label, err := a.decompose(context.Background(), State{
		Question: "revenue and order count for july?",
		Brief:    "Tables\norders",
	})

	require.NoError(t, err)
	require.Equal(t, LabelOK, label)
	require.NotNil(t, patch.SQL)
	require.Contains(t, *patch.SQL, "WITH r AS")
	// Both branch statements were validated against the database.
	require.Len(t, runner.queries, 2)
}

func TestDecomposeSingleQuestionPassesThrough(t *testing.T) {
	rules := decomposeRules()
	for _, r := range rules {
		if r.match == "split a data question" {
			r.responses = []string{`{"subquestions": ["total revenue in july"]}`}
		}
	}
	model := &scriptLLM{rules: rules}
	runner := &fakeRunner{}

	a := testAgent(model, &fakeSearcher{}, discoverySchema(), runner, &fakeRenderer{}, Config{EnableDecomposition: true})

	patch, label, err := a.decompose(context.Background(), State{Question: "total revenue in july?"})

	require.NoError(t, err)
	require.Equal(t, LabelNext, label)
	require.Nil(t, patch.SQL)
	require.Empty(t, runner.queries, "single questions take the regular generate path")
}

// The reduce prompt sorts its inputs, so branch completion order cannot
// change the merged statement.
func TestReduceOrderIndependent(t *testing.T) {
	capture := func() (*scriptLLM, *Agent) {
		model := &scriptLLM{rules: decomposeRules()}
		a := testAgent(model, &fakeSearcher{}, discoverySchema(), &fakeRunner{}, &fakeRenderer{}, Config{})
		return model, a
	}

	model1, a1 := capture()
	_, err := a1.reduce(context.Background(), "q", []string{"SELECT b", "SELECT a"})
	require.NoError(t, err)

	model2, a2 := capture()
	_, err = a2.reduce(context.Background(), "q", []string{"SELECT a", "SELECT b"})
	require.NoError(t, err)

	var prompt1, prompt2 string
	for _, p := range model1.prompts {
		if strings.Contains(p, "Combine the SQL statements") {
			prompt1 = p
		}
	}
	for _, p := range model2.prompts {
		if strings.Contains(p, "Combine the SQL statements") {
			prompt2 = p
		}
	}
	require.Equal(t, prompt1, prompt2)
}

func TestDecomposeBranchExhaustionGivesUp(t *testing.T) {
	rules := decomposeRules()
	model := &scriptLLM{rules: rules}
	runner := &fakeRunner{payloads: []string{
		"Error: branch failure",
		"Error: branch failure",
		"Error: branch failure",
		"Error: branch failure",
	}}

	a := testAgent(model, &fakeSearcher{}, discoverySchema(), runner, &fakeRenderer{}, Config{EnableDecomposition: true})

	patch, label, err := a.decompose(context.Background(), State{Question: "revenue and order count?"})

	require.NoError(t, err)
	require.Equal(t, LabelGiveUp, label)
	require.NotNil(t, patch.FinalOutput)
	require.Equal(t, failedAnswer, *patch.FinalOutput)
}
