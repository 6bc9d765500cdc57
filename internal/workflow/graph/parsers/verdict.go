package parsers

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/contentstudio/server/internal/workflow/model"
)

const markerRevision = "REVISION_NEEDED"

var (
	fenceRe    = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	revisionRe = regexp.MustCompile(`(?i)REVISION_NEEDED`)
	approvedRe = regexp.MustCompile(`(?i)\bAPPROVED\b`)
	reviseRe   = regexp.MustCompile(`(?i)\brevis(?:e|ion|ions|ed)\b`)
	approvRe   = regexp.MustCompile(`(?i)\bapprov(?:e|ed|al)\b`)
)

// Compliance is the structured form of a reviewer report.
type Compliance struct {
	Verdict         model.Verdict
	Notes           string
	FlaggedSections []string
}

type complianceJSON struct {
	Status          string          `json:"status"`
	Verdict         string          `json:"verdict"`
	Notes           json.RawMessage `json:"notes"`
	FlaggedSections json.RawMessage `json:"flagged_sections"`
}

// ExtractJSON returns the JSON object embedded in an LLM reply. Code fences
// are unwrapped, then the text between the first '{' and the last '}' is
// taken. It returns "" when no object is found.
func ExtractJSON(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// ParseVerdict decides approve or revise from a reviewer report.
func ParseVerdict(text string) model.Verdict {
	return ParseCompliance(text).Verdict
}

// ParseCompliance reads a reviewer report. A JSON report with a status is
// trusted first; plain-text reports fall back to the REVISION_NEEDED and
// APPROVED markers and finally to a keyword scan.
func ParseCompliance(text string) Compliance {
	out := Compliance{Verdict: model.VerdictUnknown, Notes: strings.TrimSpace(text)}

	if raw := ExtractJSON(text); raw != "" {
		var c complianceJSON
		if err := json.Unmarshal([]byte(raw), &c); err == nil {
			out.Notes = stringOrJoined(c.Notes, out.Notes)
			out.FlaggedSections = stringList(c.FlaggedSections)
			status := c.Status
			if status == "" {
				status = c.Verdict
			}
			if v := statusVerdict(status); v != model.VerdictUnknown {
				out.Verdict = v
				return out
			}
		}
	}

	revMarker, revMarkerNeg := scan(text, revisionRe)
	apMarker, apMarkerNeg := scan(text, approvedRe)
	switch {
	case revMarker:
		out.Verdict = model.VerdictRevise
	case apMarker:
		out.Verdict = model.VerdictApproved
	default:
		revWord, revWordNeg := scan(text, reviseRe)
		apWord, apWordNeg := scan(text, approvRe)
		switch {
		case revWord:
			out.Verdict = model.VerdictRevise
		case apWord:
			out.Verdict = model.VerdictApproved
		case revMarkerNeg || revWordNeg:
			// "no revision needed"
			out.Verdict = model.VerdictApproved
		case apMarkerNeg || apWordNeg:
			out.Verdict = model.VerdictRevise
		}
	}
	return out
}

// scan reports whether re matches text outright and whether it matches
// only behind a negation such as "no" or "not".
func scan(text string, re *regexp.Regexp) (plain, negated bool) {
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if isNegated(text[:loc[0]]) {
			negated = true
		} else {
			plain = true
		}
	}
	return plain, negated
}

// isNegated looks at up to three words before a match, within the same
// clause.
func isNegated(prefix string) bool {
	if i := strings.LastIndexAny(prefix, ".!?;:\n"); i >= 0 {
		prefix = prefix[i+1:]
	}
	words := strings.Fields(strings.ToLower(prefix))
	if len(words) > 3 {
		words = words[len(words)-3:]
	}
	for _, w := range words {
		w = strings.Trim(w, "\"'()*,")
		switch {
		case w == "no", w == "not", w == "never", w == "without", strings.HasSuffix(w, "n't"):
			return true
		}
	}
	return false
}

func statusVerdict(status string) model.Verdict {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case s == "":
		return model.VerdictUnknown
	case strings.HasPrefix(s, "revis"), s == strings.ToLower(markerRevision), s == "reject", s == "rejected":
		return model.VerdictRevise
	case strings.HasPrefix(s, "approv"), s == "pass", s == "ok":
		return model.VerdictApproved
	}
	return model.VerdictUnknown
}

// stringList accepts a JSON string array, a single string or anything else
// (ignored).
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && strings.TrimSpace(one) != "" {
		return []string{one}
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err == nil {
		for _, it := range items {
			b, _ := json.Marshal(it)
			list = append(list, string(b))
		}
	}
	return list
}

func stringOrJoined(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if list := stringList(raw); len(list) > 0 {
		return "- " + strings.Join(list, "\n- ")
	}
	return fallback
}
