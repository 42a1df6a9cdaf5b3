// Package command decodes inbound overlay messages into buff lifecycle calls.
//
// Unknown actions and malformed payloads decode to nothing and are dropped
// without an error.
package command

import (
	"encoding/json"
	"math"

	"github.com/zyedidia/generic/mapset"
)

// Action is the verb of an inbound command.
type Action string

const (
	ActionAdd    Action = "add"
	ActionExtend Action = "extend"
	ActionRemove Action = "remove"
)

var knownActions = mapset.Of(ActionAdd, ActionExtend, ActionRemove)

// Command is a decoded {action, buff, duration} message.
type Command struct {
	Action   Action `json:"action"`
	Buff     string `json:"buff"`
	Duration int    `json:"duration,omitempty"` // seconds; unused by remove
}

// Decode extracts a command from an untyped message. It reports false for
// unknown actions, a missing buff name, or a missing duration on add/extend.
func Decode(msg map[string]any) (Command, bool) {
	if msg == nil {
		return Command{}, false
	}
	action, _ := msg["action"].(string)
	if !knownActions.Has(Action(action)) {
		return Command{}, false
	}
	// Names are registry keys and are used exactly as sent
	name, _ := msg["buff"].(string)
	if name == "" {
		return Command{}, false
	}

	cmd := Command{Action: Action(action), Buff: name}
	if cmd.Action == ActionRemove {
		return cmd, true
	}

	secs, ok := seconds(msg["duration"])
	if !ok {
		return Command{}, false
	}
	cmd.Duration = secs
	return cmd, true
}

// DecodeJSON decodes a JSON object message. Anything that is not a JSON
// object decodes to nothing.
func DecodeJSON(data []byte) (Command, bool) {
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return Command{}, false
	}
	return Decode(msg)
}

// seconds converts a JSON number into whole seconds. Fractional values are
// rounded up so a 2.5s buff still lives for three ticks.
func seconds(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Ceil(f)), true
}
