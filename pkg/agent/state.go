package agent

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-sqlpilot-be/pkg/chart"
	"ai-sqlpilot-be/pkg/schemainfo"
)

// Message roles mirror the LLM message format.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry in the session's append-only audit log.
type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// State is the unit of work threaded through the pipeline. Stages receive a
// value copy and return a Patch; only the run loop applies patches, so no
// stage can mutate shared state behind another's back.
type State struct {
	SessionID uuid.UUID
	Question  string

	// Messages is the append-only conversation log, used both as audit
	// trail and as conversational context for the model.
	Messages []Message

	// Brief accumulates structured schema/context evidence. Monotonic:
	// patches merge through MergeBrief and never drop prior content.
	Brief        string
	TableCatalog string

	Sufficient        bool
	SufficiencyBudget int
	CorrectionBudget  int

	// Deficiency is the gate's reason for the latest insufficient verdict,
	// fed back to the selector as exclusion feedback.
	Deficiency string

	SQL        string
	LastResult string
	ChartKind  chart.Kind

	// Selected is the cumulative set of table names chosen across selector
	// iterations. Re-selection of a name already present is a protocol
	// violation the selector guards against.
	Selected []string
	Facts    []schemainfo.TableFact

	FinalOutput string
}

func (s State) HasSelected(name string) bool {
	for _, t := range s.Selected {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// Patch is the delta a stage returns. Nil pointers leave the field untouched;
// slice fields append.
type Patch struct {
	Question     *string
	Brief        *string
	TableCatalog *string

	AppendMessages []Message

	Sufficient        *bool
	SufficiencyBudget *int
	CorrectionBudget  *int
	Deficiency        *string

	SQL        *string
	LastResult *string
	ChartKind  *chart.Kind

	SelectTables []string
	AddFacts     []schemainfo.TableFact

	FinalOutput *string
}

// Apply merges a patch into a copy of the state and returns the copy.
func (s State) Apply(p Patch) State {
	next := s

	if p.Question != nil {
		next.Question = *p.Question
	}
	if p.Brief != nil {
		next.Brief = *p.Brief
	}
	if p.TableCatalog != nil {
		next.TableCatalog = *p.TableCatalog
	}
	if len(p.AppendMessages) > 0 {
		next.Messages = append(append([]Message{}, s.Messages...), p.AppendMessages...)
	}
	if p.Sufficient != nil {
		next.Sufficient = *p.Sufficient
	}
	if p.SufficiencyBudget != nil {
		next.SufficiencyBudget = *p.SufficiencyBudget
	}
	if p.CorrectionBudget != nil {
		next.CorrectionBudget = *p.CorrectionBudget
	}
	if p.Deficiency != nil {
		next.Deficiency = *p.Deficiency
	}
	if p.SQL != nil {
		next.SQL = *p.SQL
	}
	if p.LastResult != nil {
		next.LastResult = *p.LastResult
	}
	if p.ChartKind != nil {
		next.ChartKind = *p.ChartKind
	}
	if len(p.SelectTables) > 0 {
		selected := append([]string{}, s.Selected...)
		for _, t := range p.SelectTables {
			dup := false
			for _, have := range selected {
				if strings.EqualFold(have, t) {
					dup = true
					break
				}
			}
			if !dup {
				selected = append(selected, t)
			}
		}
		next.Selected = selected
	}
	if len(p.AddFacts) > 0 {
		next.Facts = append(append([]schemainfo.TableFact{}, s.Facts...), p.AddFacts...)
	}
	if p.FinalOutput != nil {
		next.FinalOutput = *p.FinalOutput
	}

	return next
}

// MergeBrief extends a prior brief with the lines of an update that are not
// already present. Prior content is kept verbatim, which makes the brief a
// superset of every earlier version regardless of what the model returned.
func MergeBrief(prior, update string) string {
	update = strings.TrimSpace(update)
	if prior == "" {
		return update
	}
	if update == "" {
		return prior
	}

	seen := make(map[string]bool)
	for _, line := range strings.Split(prior, "\n") {
		seen[strings.TrimSpace(line)] = true
	}

	var extra []string
	for _, line := range strings.Split(update, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		extra = append(extra, line)
	}

	if len(extra) == 0 {
		return prior
	}
	return prior + "\n" + strings.Join(extra, "\n")
}

func userMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: time.Now()}
}

func assistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, CreatedAt: time.Now()}
}
