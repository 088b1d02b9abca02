package watcher

// ChangeAnalysis describes a batch of changes that triggers a regeneration.
// Generation always recomputes everything, the analysis only explains why.
type ChangeAnalysis struct {
	Reason       string
	Types        []ChangeType
	ChangedFiles []string
}

// AnalyzeChanges summarizes debounced events into one regeneration request
func AnalyzeChanges(events ...ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}
	seen := make(map[ChangeType]bool)
	for _, e := range events {
		if !seen[e.Type] {
			seen[e.Type] = true
			analysis.Types = append(analysis.Types, e.Type)
		}
		analysis.ChangedFiles = append(analysis.ChangedFiles, e.Paths...)
	}

	switch {
	case seen[ChangeTypeTable]:
		analysis.Reason = "implicit unit table changed"
	case seen[ChangeTypePackage]:
		analysis.Reason = "package added or removed"
	case seen[ChangeTypeSource]:
		analysis.Reason = "source files changed"
	default:
		analysis.Reason = "no changes"
	}

	return analysis
}
