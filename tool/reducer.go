package tool

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reducer collapses a raw tool result into one short line for the model.
type Reducer func(result any) string

// PendingDocumentsTool is the name PendingDocumentsReducer is registered under
// by DefaultReducers.
const PendingDocumentsTool = "get_pending_documents"

// MaxSummaryRunes caps GenericSummary output.
const MaxSummaryRunes = 500

const maxListedDocuments = 10

// DefaultReducers returns the built-in reducer table.
func DefaultReducers() map[string]Reducer {
	return map[string]Reducer{
		PendingDocumentsTool: PendingDocumentsReducer,
	}
}

// GenericSummary renders result as compact JSON truncated to MaxSummaryRunes.
func GenericSummary(result any) string {
	var s string
	switch v := result.(type) {
	case nil:
		s = "ok"
	case string:
		s = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprintf("%v", v)
		} else {
			s = string(b)
		}
	}
	return truncateRunes(strings.TrimSpace(s), MaxSummaryRunes)
}

// PendingDocumentsReducer summarises a pending-documents result: either a
// list of documents or an object holding one under "documents", "pending" or
// "items". An empty list yields "pending documents: none found".
func PendingDocumentsReducer(result any) string {
	docs, ok := documentList(normalize(result))
	if !ok {
		return GenericSummary(result)
	}
	if len(docs) == 0 {
		return "pending documents: none found"
	}

	parts := make([]string, 0, min(len(docs), maxListedDocuments))
	for i, d := range docs {
		if i == maxListedDocuments {
			break
		}
		parts = append(parts, describeDocument(d))
	}

	line := fmt.Sprintf("pending documents (%d): %s", len(docs), strings.Join(parts, "; "))
	if extra := len(docs) - maxListedDocuments; extra > 0 {
		line += fmt.Sprintf("; +%d more", extra)
	}
	return truncateRunes(line, MaxSummaryRunes)
}

// normalize round-trips result through JSON so typed structs and maps look
// alike.
func normalize(result any) any {
	b, err := json.Marshal(result)
	if err != nil {
		return result
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return result
	}
	return out
}

func documentList(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return []any{}, true
	case []any:
		return t, true
	case map[string]any:
		for _, key := range []string{"documents", "pending", "items"} {
			if list, ok := t[key]; ok {
				if list == nil {
					return []any{}, true
				}
				if arr, ok := list.([]any); ok {
					return arr, true
				}
			}
		}
	}
	return nil, false
}

func describeDocument(d any) string {
	m, ok := d.(map[string]any)
	if !ok {
		return fmt.Sprintf("%v", d)
	}

	name := firstString(m, "name", "title", "type", "description", "id")
	if name == "" {
		name = "document"
	}
	if detail := firstString(m, "due_date", "status"); detail != "" {
		return fmt.Sprintf("%s (%s)", name, detail)
	}
	return name
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprintf("%v", v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
