package assistant

import (
	"encoding/json"
	"regexp"
	"strings"

	"today-planner/internal/model"
	"today-planner/internal/service"
)

const actionCreateTask = "create_task"

// Directive is a structured instruction embedded in a model reply.
type Directive struct {
	Action          string            `json:"action"`
	Title           string            `json:"title"`
	CategoryID      string            `json:"categoryId"`
	DurationMinutes any               `json:"durationMinutes"`
	EnergyLevel     model.EnergyLevel `json:"energyLevel"`
	AddToToday      bool              `json:"addToToday"`
}

// Input converts the directive into a task-creation request tagged as assistant-made.
func (d Directive) Input() (service.CreateTaskInput, error) {
	duration, err := model.ParseDuration(d.DurationMinutes)
	if err != nil {
		return service.CreateTaskInput{}, &service.ValidationError{Field: "durationMinutes", Message: err.Error()}
	}
	return service.CreateTaskInput{
		Title:           d.Title,
		CategoryID:      d.CategoryID,
		DurationMinutes: duration,
		EnergyLevel:     d.EnergyLevel,
		Source:          model.SourceAssistant,
		AddToToday:      d.AddToToday,
	}, nil
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ExtractDirective finds the first create_task object in reply, either inside a
// fenced block or as bare braces. It returns the directive and the reply with the
// directive text removed.
func ExtractDirective(reply string) (Directive, string, bool) {
	for _, m := range fencedJSON.FindAllStringSubmatchIndex(reply, -1) {
		if d, ok := decodeDirective(reply[m[2]:m[3]]); ok {
			return d, strip(reply, m[0], m[1]), true
		}
	}

	for _, span := range jsonObjects(reply) {
		if d, ok := decodeDirective(reply[span[0]:span[1]]); ok {
			return d, strip(reply, span[0], span[1]), true
		}
	}
	return Directive{}, reply, false
}

func decodeDirective(raw string) (Directive, bool) {
	var d Directive
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Directive{}, false
	}
	return d, d.Action == actionCreateTask
}

func strip(s string, start, end int) string {
	out := s[:start] + s[end:]
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// jsonObjects returns the spans of top-level balanced {...} runs, skipping braces in strings.
func jsonObjects(s string) [][2]int {
	var spans [][2]int
	depth, start := 0, -1
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, [2]int{start, i + 1})
			}
		}
	}
	return spans
}
