package remark

import (
	"context"
	"fmt"
	"strings"

	"github.com/reconlens/reconlens/internal/recon"
)

// TemplateProvider is the built-in default remark provider. It renders
// the state's configured remark template when one exists; otherwise it
// composes a deterministic sentence per failed comparison. It never
// fails.
type TemplateProvider struct{}

// NewTemplateProvider creates the template-based provider.
func NewTemplateProvider() *TemplateProvider { return &TemplateProvider{} }

// Remark implements Provider.
func (*TemplateProvider) Remark(_ context.Context, req Request) (string, error) {
	if req.RemarkTemplate != "" {
		return req.RemarkTemplate, nil
	}

	var parts []string
	for _, ev := range req.Evidence {
		if ev.Matched {
			continue
		}
		switch ev.Absent {
		case recon.AbsentInternal:
			parts = append(parts, fmt.Sprintf("No internal value to compare for %s", ev.Field))
		case recon.AbsentMIS:
			parts = append(parts, fmt.Sprintf("No MIS value to compare for %s", ev.Field))
		default:
			parts = append(parts, fmt.Sprintf("%s mismatch: Internal=%s, MIS=%s",
				ev.Field, ev.Internal.Display(), ev.MIS.Display()))
		}
	}

	if len(parts) == 0 {
		if req.RuleText != "" {
			return fmt.Sprintf("Matched rule: %s", req.RuleText), nil
		}
		return "", nil
	}
	return strings.Join(parts, "; "), nil
}
