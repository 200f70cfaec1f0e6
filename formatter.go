package logrepo

import (
	"strings"
	"time"

	"github.com/cybergodev/logrepo/internal"
)

// FormattedOutput is a rendered log event. Either slot may be empty.
//
// The JSON slot is a stable schema: timestamp, level and message are always
// present; tag, file, function, data, metadata and error appear when set.
// Go errors are expanded to {name, message, stack}.
type FormattedOutput struct {
	Text string
	JSON map[string]any
}

func (o FormattedOutput) HasText() bool { return o.Text != "" }

func (o FormattedOutput) HasJSON() bool { return o.JSON != nil }

// Formatter renders a log event once per call so that adapters need not
// re-derive it. Implementations must be safe for concurrent use and must not
// panic on unserializable values.
type Formatter interface {
	Format(level Level, message string, lc *LogContext) FormattedOutput
}

// FormatterFunc adapts a plain function to the Formatter interface.
type FormatterFunc func(level Level, message string, lc *LogContext) FormattedOutput

func (f FormatterFunc) Format(level Level, message string, lc *LogContext) FormattedOutput {
	return f(level, message, lc)
}

// Formatter kinds accepted by NewFormatter and configuration files.
const (
	FormatterNone     = "none"
	FormatterText     = "text"
	FormatterJSON     = "json"
	FormatterCombined = "combined"
)

// NewFormatter returns the formatter for kind. "none" and "" yield nil.
func NewFormatter(kind string) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", FormatterNone:
		return nil, nil
	case FormatterText:
		return NewTextFormatter(), nil
	case FormatterJSON:
		return NewJSONFormatter(), nil
	case FormatterCombined:
		return NewCombinedFormatter(), nil
	default:
		return nil, NewError(ErrCodeInvalidFormatter, "unknown formatter "+kind).
			WithContext("valid", []string{FormatterNone, FormatterText, FormatterJSON, FormatterCombined})
	}
}

func formatTimestamp(lc *LogContext) string {
	return lc.Time().UTC().Format(TimestampLayout)
}

// TextFormatter renders a single human-readable entry:
//
//	[LEVEL] 2024-01-02T03:04:05.000Z [tag] [function:file] message {"data":1}
//	Error: Error: timeout
//	<stack>
//	Metadata: {"k":"v"}
type TextFormatter struct{}

func NewTextFormatter() *TextFormatter { return &TextFormatter{} }

func (f *TextFormatter) Format(level Level, message string, lc *LogContext) FormattedOutput {
	return FormattedOutput{Text: f.render(level, message, lc)}
}

func (f *TextFormatter) render(level Level, message string, lc *LogContext) string {
	var sb strings.Builder
	sb.Grow(len(message) + 64)

	sb.WriteByte('[')
	sb.WriteString(level.Upper())
	sb.WriteString("] ")
	sb.WriteString(formatTimestamp(lc))

	if lc != nil {
		if lc.Tag != "" {
			sb.WriteByte(' ')
			sb.WriteString(bracketTag(lc.Tag))
		}
		if loc := location(lc); loc != "" {
			sb.WriteString(" [")
			sb.WriteString(loc)
			sb.WriteByte(']')
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(message)

	if lc == nil {
		return sb.String()
	}

	if lc.Data != nil {
		sb.WriteByte(' ')
		sb.WriteString(internal.StringifyOrDescribe(lc.Data))
	}

	if lc.Error != nil {
		sb.WriteString("\nError: ")
		if err, ok := lc.Error.(error); ok {
			name, msg, stack := DescribeError(err)
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(msg)
			if stack != "" {
				sb.WriteByte('\n')
				sb.WriteString(stack)
			}
		} else if s, ok := lc.Error.(string); ok {
			sb.WriteString(s)
		} else {
			sb.WriteString(internal.StringifyOrDescribe(lc.Error))
		}
	}

	if meta := MetadataWithoutFormatted(lc); len(meta) > 0 {
		sb.WriteString("\nMetadata: ")
		sb.WriteString(internal.StringifyOrDescribe(meta))
	}

	return sb.String()
}

func bracketTag(tag string) string {
	if strings.HasPrefix(tag, "[") && strings.HasSuffix(tag, "]") {
		return tag
	}
	return "[" + tag + "]"
}

func location(lc *LogContext) string {
	switch {
	case lc.Function != "" && lc.File != "":
		return lc.Function + ":" + lc.File
	case lc.Function != "":
		return lc.Function
	default:
		return lc.File
	}
}

// JSONFormatter renders the structured slot only.
type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter { return &JSONFormatter{} }

func (f *JSONFormatter) Format(level Level, message string, lc *LogContext) FormattedOutput {
	return FormattedOutput{JSON: f.fields(level, message, lc)}
}

func (f *JSONFormatter) fields(level Level, message string, lc *LogContext) map[string]any {
	out := map[string]any{
		"timestamp": formatTimestamp(lc),
		"level":     level.String(),
		"message":   message,
	}
	if lc == nil {
		return out
	}

	if lc.Tag != "" {
		out["tag"] = lc.Tag
	}
	if lc.File != "" {
		out["file"] = lc.File
	}
	if lc.Function != "" {
		out["function"] = lc.Function
	}
	if lc.Data != nil {
		out["data"] = lc.Data
	}
	if meta := MetadataWithoutFormatted(lc); len(meta) > 0 {
		out["metadata"] = meta
	}
	if lc.Error != nil {
		out["error"] = ErrorFields(lc.Error)
	}
	return out
}

// ErrorFields expands Go errors to {name, message, stack} and returns any
// other value unchanged.
func ErrorFields(v any) any {
	err, ok := v.(error)
	if !ok {
		return v
	}
	name, message, stack := DescribeError(err)
	return map[string]any{
		"name":    name,
		"message": message,
		"stack":   stack,
	}
}

// CombinedFormatter fills both slots.
type CombinedFormatter struct {
	text *TextFormatter
	json *JSONFormatter
}

func NewCombinedFormatter() *CombinedFormatter {
	return &CombinedFormatter{text: NewTextFormatter(), json: NewJSONFormatter()}
}

func (f *CombinedFormatter) Format(level Level, message string, lc *LogContext) FormattedOutput {
	if lc == nil {
		lc = &LogContext{Timestamp: time.Now()}
	} else if lc.Timestamp.IsZero() {
		pinned := *lc
		pinned.Timestamp = time.Now()
		lc = &pinned
	}
	return FormattedOutput{
		Text: f.text.render(level, message, lc),
		JSON: f.json.fields(level, message, lc),
	}
}
