package cli

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/reconlens/reconlens/internal/recon"
	"github.com/reconlens/reconlens/internal/rule"
)

//go:embed schema.cue
var rulepackSchema string

// Rulepack is the file-based rule definition a workspace can use
// instead of (or before seeding) the database: fragments, states, and
// the rule-to-state mapping, all declared in CUE and validated against
// the embedded schema.
type Rulepack struct {
	Fragments []rule.Fragment
	States    []recon.State
	Mappings  []rule.MappingEntry
}

// CUE document shapes. Decoded via the cue Value, so tags follow the
// schema field names.
type rulepackDoc struct {
	Fragments []fragmentDoc `json:"fragments"`
	States    []stateDoc    `json:"states"`
	Mappings  []mappingDoc  `json:"mappings"`
}

type fragmentDoc struct {
	ID         int64  `json:"id"`
	Expression string `json:"expression"`
	FileType1  string `json:"fileType1"`
	FileType2  string `json:"fileType2"`
	SelfRule   bool   `json:"selfRule"`
}

type stateDoc struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Rank       int    `json:"rank"`
	IsInternal bool   `json:"isInternal"`
	ParentID   *int64 `json:"parentId"`
	Remark     string `json:"remark"`
}

type mappingDoc struct {
	ID             int64  `json:"id"`
	Expression     string `json:"expression"`
	FileType1      string `json:"fileType1"`
	FileType2      string `json:"fileType2"`
	StateID        int64  `json:"stateId"`
	Seq            *int64 `json:"seq"`
	WorkflowID     string `json:"workflowId"`
	EnrichmentOnly bool   `json:"enrichmentOnly"`
}

// LoadRulepack loads and validates a CUE rulepack directory.
func LoadRulepack(dir string) (*Rulepack, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("rulepack directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rulepack path %s is not a directory", dir)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(rulepackSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile rulepack schema: %w", err)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir, Package: "_"})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load rulepack %s: %w", dir, inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("build rulepack %s: %w", dir, err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate rulepack %s: %w", dir, err)
	}

	var doc rulepackDoc
	if err := unified.LookupPath(cue.ParsePath("rulepack")).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rulepack %s: %w", dir, err)
	}
	return buildRulepack(doc)
}

// buildRulepack converts the decoded CUE document into domain types,
// resolving mapping state references against the declared states.
func buildRulepack(doc rulepackDoc) (*Rulepack, error) {
	pack := &Rulepack{}

	for _, f := range doc.Fragments {
		pack.Fragments = append(pack.Fragments, rule.Fragment{
			ID:          f.ID,
			Expression:  f.Expression,
			FileType1ID: f.FileType1,
			FileType2ID: f.FileType2,
			SelfRule:    f.SelfRule,
		})
	}

	statesByID := make(map[int64]recon.State, len(doc.States))
	for _, s := range doc.States {
		st := recon.State{
			ID:             s.ID,
			Name:           s.Name,
			Rank:           s.Rank,
			IsInternal:     s.IsInternal,
			ParentID:       s.ParentID,
			RemarkTemplate: s.Remark,
		}
		pack.States = append(pack.States, st)
		statesByID[st.ID] = st
	}

	for _, m := range doc.Mappings {
		st, ok := statesByID[m.StateID]
		if !ok {
			return nil, fmt.Errorf("mapping %d references unknown state %d", m.ID, m.StateID)
		}
		entry := rule.MappingEntry{
			ID:             m.ID,
			RuleExpression: m.Expression,
			FileType1ID:    m.FileType1,
			FileType2ID:    m.FileType2,
			State:          st,
			WorkflowID:     m.WorkflowID,
			EnrichmentOnly: m.EnrichmentOnly,
		}
		if m.Seq != nil {
			entry.Seq, entry.HasSeq = *m.Seq, true
		}
		pack.Mappings = append(pack.Mappings, entry)
	}

	return pack, nil
}
