package dispatch

import (
	"regexp"
	"strings"
)

// labelPriorityPattern matches "priority:<level>" labels.
var labelPriorityPattern = regexp.MustCompile(`^priority:(critical|high|medium|low)$`)

// bareLevels matches a bare level name used directly as a label.
var bareLevels = map[string]Priority{ //nolint:gochecknoglobals
	"critical": PriorityCritical,
	"high":     PriorityHigh,
	"medium":   PriorityMedium,
	"low":      PriorityLow,
}

// pCodes matches p0..p3 shorthand labels.
var pCodes = map[string]Priority{ //nolint:gochecknoglobals
	"p0": PriorityCritical,
	"p1": PriorityHigh,
	"p2": PriorityMedium,
	"p3": PriorityLow,
}

// emojiLevels tolerates colored-circle emoji standing in for a level.
var emojiLevels = map[string]Priority{ //nolint:gochecknoglobals
	"🔴": PriorityCritical,
	"🟠": PriorityHigh,
	"🟡": PriorityMedium,
	"🟢": PriorityLow,
}

// ExtractPriority resolves an issue's priority from projectPriority if
// present, else from its labels, defaulting to PriorityNone.
func ExtractPriority(projectPriority string, labels []string) Priority {
	if p := parsePriorityToken(projectPriority); p != "" {
		return p
	}
	for _, label := range labels {
		if p := parsePriorityToken(label); p != "" {
			return p
		}
	}
	return PriorityNone
}

func parsePriorityToken(token string) Priority {
	trimmed := strings.TrimSpace(strings.ToLower(token))
	if trimmed == "" {
		return ""
	}
	if m := labelPriorityPattern.FindStringSubmatch(trimmed); m != nil {
		return bareLevels[m[1]]
	}
	if p, ok := bareLevels[trimmed]; ok {
		return p
	}
	if p, ok := pCodes[trimmed]; ok {
		return p
	}
	if p, ok := emojiLevels[strings.TrimSpace(token)]; ok {
		return p
	}
	return ""
}
