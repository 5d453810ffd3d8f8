package decision

import "github.com/hupe1980/agentdesk/core"

// ReplyFormat is appended to every agent's instructions.
const ReplyFormat = `Reply with exactly one JSON object and nothing else, using this shape:
{"say": string or null, "action": {"type": "none" | "set_state" | "call_tool" | "handoff" | "finish_turn" | "end_conversation", "target_agent": string or null, "state_patch": object or null, "tool": {"name": string, "args": object} or null}}
Every field must be present. Use null for any field you do not need; never omit it.
- set_state requires state_patch.
- call_tool requires tool.name.
- handoff requires target_agent.`

var apologies = map[string]string{
	"es": "Lo siento, ha ocurrido un problema al procesar tu mensaje. Por favor, inténtalo de nuevo.",
	"en": "Sorry, something went wrong while processing your message. Please try again.",
}

// FallbackLanguage selects the apology text for unknown languages.
const FallbackLanguage = "es"

// Apology returns the fail-closed Decision: a user-facing apology in language
// with a Stop action.
func Apology(language string) core.Decision {
	text, ok := apologies[language]
	if !ok {
		text = apologies[FallbackLanguage]
	}
	return core.Decision{Say: text, Action: core.Stop{}}
}

// IsApology reports whether d is the fail-closed Decision.
func IsApology(d core.Decision) bool {
	if _, ok := d.ActionOrStop().(core.Stop); !ok {
		return false
	}
	for _, text := range apologies {
		if d.Say == text {
			return true
		}
	}
	return false
}
