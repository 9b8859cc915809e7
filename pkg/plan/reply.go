package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// reply is the JSON object a language model is asked to return.
type reply struct {
	Summary       string   `json:"summary" jsonschema:"one paragraph situation report"`
	PriorityZones []string `json:"priorityZones" jsonschema:"zones to search first, most urgent first"`
	SafePath      string   `json:"safePath" jsonschema:"recommended approach route for rescue teams"`
	Warnings      []string `json:"warnings" jsonschema:"hazards for the teams on the ground"`
}

// parseReply decodes a model reply into a plan. Code fences are stripped
// and malformed JSON is repaired before giving up.
func parseReply(text string) (Plan, error) {
	data := []byte(stripFence(text))
	var r reply
	err := json.Unmarshal(data, &r)
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return Plan{}, fmt.Errorf("plan: reply is not JSON: %w", err)
		}
		err = json.Unmarshal([]byte(fixed), &r)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("plan: decode reply: %w", err)
	}
	if strings.TrimSpace(r.Summary) == "" {
		return Plan{}, errors.New("plan: reply has no summary")
	}
	return Plan{
		Summary:       r.Summary,
		PriorityZones: r.PriorityZones,
		SafePath:      r.SafePath,
		Warnings:      r.Warnings,
	}, nil
}

// stripFence removes a Markdown code fence around a JSON reply.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
