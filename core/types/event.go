package types

// Event is the rendered form of a settlement event: a type tag plus flat
// string attributes suitable for logs, journals and JSON responses.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the named attribute or the empty string.
func (e *Event) Attr(key string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}

// LogArgs flattens the attributes into slog key/value pairs.
func (e *Event) LogArgs() []any {
	if e == nil {
		return nil
	}
	args := make([]any, 0, 2*len(e.Attributes)+2)
	args = append(args, "event", e.Type)
	for k, v := range e.Attributes {
		args = append(args, k, v)
	}
	return args
}
