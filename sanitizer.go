package logrepo

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cybergodev/logrepo/internal"
)

// Sanitizer returns a redacted or masked copy of arbitrary data.
// Implementations must be safe for concurrent use and must not panic.
type Sanitizer interface {
	Sanitize(data any) any
}

// SanitizerFunc adapts a plain function to the Sanitizer interface.
type SanitizerFunc func(data any) any

func (f SanitizerFunc) Sanitize(data any) any { return f(data) }

// RuleSet lists the key-name substrings a DefaultSanitizer acts on.
// Matching is case-insensitive and uses contains, so "userPassword" matches
// "password".
type RuleSet struct {
	RedactKeys []string
	MaskKeys   []string

	// MaxDepth bounds traversal. Zero means MaxSanitizeDepth.
	MaxDepth int
}

// DefaultRuleSet returns a copy of the built-in redact and mask key lists.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		RedactKeys: append([]string(nil), internal.RedactKeywords...),
		MaskKeys:   append([]string(nil), internal.MaskKeywords...),
		MaxDepth:   MaxSanitizeDepth,
	}
}

// DefaultSanitizer is the rule-based sanitizer used when nothing more
// specific applies.
//
// Keys matching a redact rule have their value replaced with
// RedactedPlaceholder. Keys matching a mask rule keep part of the value:
// emails keep the first three characters of the local part and the domain,
// phone numbers keep their last four digits, and anything else keeps two
// characters at each end (or nothing, for values of four characters or
// fewer). Redaction is checked first. All other strings, including those
// nested in slices, are scanned for card numbers, emails and phone numbers.
//
// Maps and structs come back as map[string]any, slices and arrays as []any.
// Errors come back as *SanitizedError. Reference cycles are replaced with
// CircularPlaceholder.
type DefaultSanitizer struct {
	redact   []string
	mask     []string
	maxDepth int
}

func NewDefaultSanitizer() *DefaultSanitizer {
	return NewRuleSanitizer(DefaultRuleSet())
}

func NewRuleSanitizer(rules RuleSet) *DefaultSanitizer {
	maxDepth := rules.MaxDepth
	if maxDepth <= 0 {
		maxDepth = MaxSanitizeDepth
	}
	return &DefaultSanitizer{
		redact:   internal.NormalizeKeywords(rules.RedactKeys),
		mask:     internal.NormalizeKeywords(rules.MaskKeys),
		maxDepth: maxDepth,
	}
}

// Sanitize never panics. If traversal fails the whole value is replaced with
// SanitizeFailedPlaceholder.
func (s *DefaultSanitizer) Sanitize(data any) (result any) {
	if data == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			result = SanitizeFailedPlaceholder
		}
	}()

	w := &walker{s: s, onPath: make(map[pathKey]struct{})}
	return w.value(data, 0)
}

// SanitizeString scans free text for card numbers, emails and phone numbers.
func (s *DefaultSanitizer) SanitizeString(str string) string {
	return scanText(str)
}

// IsRedactedKey reports whether values under key are fully redacted.
func (s *DefaultSanitizer) IsRedactedKey(key string) bool {
	return internal.ContainsKeyword(key, s.redact)
}

// IsMaskedKey reports whether values under key are partially masked.
// A key that is also redacted is not masked.
func (s *DefaultSanitizer) IsMaskedKey(key string) bool {
	return !s.IsRedactedKey(key) && internal.ContainsKeyword(key, s.mask)
}

type pathKey struct {
	ptr uintptr
	typ reflect.Type
}

type walker struct {
	s      *DefaultSanitizer
	onPath map[pathKey]struct{}
}

var timeType = reflect.TypeOf(time.Time{})

func (w *walker) value(v any, depth int) any {
	if v == nil {
		return nil
	}
	if depth > w.s.maxDepth {
		return MaxDepthPlaceholder
	}

	switch t := v.(type) {
	case string:
		return scanText(t)
	case []byte:
		return scanText(string(t))
	case bool, float32, float64, complex64, complex128, time.Time, time.Duration:
		return v
	case error:
		return w.errorValue(t, depth)
	}

	return w.reflectValue(reflect.ValueOf(v), depth)
}

func (w *walker) reflectValue(val reflect.Value, depth int) any {
	if !val.IsValid() {
		return nil
	}

	switch val.Kind() {
	case reflect.String:
		if scanned := scanText(val.String()); scanned != val.String() {
			return scanned
		}
		return val.Interface()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if scanned := scanText(strconv.FormatInt(val.Int(), 10)); scanned != strconv.FormatInt(val.Int(), 10) {
			return scanned
		}
		return val.Interface()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if scanned := scanText(strconv.FormatUint(val.Uint(), 10)); scanned != strconv.FormatUint(val.Uint(), 10) {
			return scanned
		}
		return val.Interface()

	case reflect.Ptr:
		if val.IsNil() {
			return nil
		}
		leave, circular := w.enter(val)
		if circular {
			return CircularPlaceholder
		}
		defer leave()
		return w.value(val.Elem().Interface(), depth+1)

	case reflect.Interface:
		if val.IsNil() {
			return nil
		}
		return w.value(val.Elem().Interface(), depth)

	case reflect.Map:
		if val.IsNil() {
			return nil
		}
		leave, circular := w.enter(val)
		if circular {
			return CircularPlaceholder
		}
		defer leave()

		result := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			key := mapKeyString(iter.Key())
			result[key] = w.entry(key, iter.Value().Interface(), depth+1)
		}
		return result

	case reflect.Slice:
		if val.IsNil() {
			return nil
		}
		if val.Len() == 0 {
			return []any{}
		}
		leave, circular := w.enter(val)
		if circular {
			return CircularPlaceholder
		}
		defer leave()
		return w.elements(val, depth)

	case reflect.Array:
		return w.elements(val, depth)

	case reflect.Struct:
		if val.Type() == timeType {
			return val.Interface()
		}
		result := make(map[string]any, val.NumField())
		w.structFields(val, result, depth)
		return result

	default:
		// bool, floats, complex, chan, func and unsafe pointers pass through
		return val.Interface()
	}
}

func (w *walker) elements(val reflect.Value, depth int) []any {
	result := make([]any, val.Len())
	for i := range result {
		result[i] = w.value(val.Index(i).Interface(), depth+1)
	}
	return result
}

func (w *walker) structFields(val reflect.Value, into map[string]any, depth int) {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		name, skip := jsonFieldName(field)
		if skip {
			continue
		}

		fv := val.Field(i)
		if field.Anonymous && name == "" {
			inner := fv
			if inner.Kind() == reflect.Ptr {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct && inner.Type() != timeType {
				w.structFields(inner, into, depth)
				continue
			}
		}
		if name == "" {
			name = field.Name
		}
		into[name] = w.entry(name, fv.Interface(), depth+1)
	}
}

// entry applies the per-key decision: redact, mask, or recurse.
func (w *walker) entry(key string, v any, depth int) any {
	if internal.ContainsKeyword(key, w.s.redact) {
		return RedactedPlaceholder
	}
	if internal.ContainsKeyword(key, w.s.mask) {
		return w.masked(key, v, depth)
	}
	return w.value(v, depth)
}

func (w *walker) masked(key string, v any, depth int) any {
	if v == nil {
		return nil
	}
	str, ok := scalarString(v)
	if !ok {
		return w.value(v, depth)
	}
	return maskField(key, str)
}

func (w *walker) errorValue(err error, depth int) any {
	if prior, ok := err.(*SanitizedError); ok {
		out := *prior
		out.Message = scanText(prior.Message)
		if prior.Fields != nil {
			fields, _ := w.value(prior.Fields, depth+1).(map[string]any)
			out.Fields = fields
		}
		return &out
	}

	name, message, stack := DescribeError(err)
	sanitized := &SanitizedError{
		Name:    name,
		Message: scanText(message),
		Trace:   stack,
		cause:   err,
	}

	val := reflect.ValueOf(err)
	for val.Kind() == reflect.Ptr && !val.IsNil() {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return sanitized
	}

	if ptr := reflect.ValueOf(err); ptr.Kind() == reflect.Ptr {
		leave, circular := w.enter(ptr)
		if circular {
			return CircularPlaceholder
		}
		defer leave()
	}

	fields := make(map[string]any)
	w.structFields(val, fields, depth)
	if len(fields) > 0 {
		sanitized.Fields = fields
	}
	return sanitized
}

// enter marks a reference as being on the current path. Only references
// on the path count as cycles; shared sub-values are visited each time.
func (w *walker) enter(val reflect.Value) (leave func(), circular bool) {
	key := pathKey{ptr: val.Pointer(), typ: val.Type()}
	if _, seen := w.onPath[key]; seen {
		return nil, true
	}
	w.onPath[key] = struct{}{}
	return func() { delete(w.onPath, key) }, false
}

func jsonFieldName(field reflect.StructField) (name string, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if idx := strings.IndexByte(tag, ','); idx >= 0 {
		tag = tag[:idx]
	}
	return tag, false
}

func mapKeyString(key reflect.Value) string {
	switch key.Kind() {
	case reflect.String:
		return key.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(key.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(key.Uint(), 10)
	}
	if s, ok := scalarString(key.Interface()); ok {
		return s
	}
	return key.Type().String()
}

// scalarString renders strings, byte slices, numbers and bools as text.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case interface{ String() string }:
		if _, isErr := v.(error); !isErr {
			return t.String(), true
		}
	}

	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.String:
		return val.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(val.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(val.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(val.Float(), 'f', -1, 64), true
	case reflect.Bool:
		return strconv.FormatBool(val.Bool()), true
	}
	return "", false
}

func maskField(key, value string) string {
	lower := strings.ToLower(key)

	if strings.Contains(lower, "email") {
		if m := internal.EmailPattern.FindStringSubmatch(value); m != nil {
			return maskEmail(m[1], m[2])
		}
	}
	if strings.Contains(lower, "phone") && internal.PhonePattern.MatchString(value) {
		if digits := internal.DigitsOnly(value); len(digits) >= 4 {
			return maskPhone(digits)
		}
	}
	return maskGeneric(value)
}

func maskEmail(local, domain string) string {
	runes := []rune(local)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes) + MaskPlaceholder + "@" + domain
}

func maskPhone(digits string) string {
	return "***-***-" + digits[len(digits)-4:]
}

func maskGeneric(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return MaskPlaceholder
	}
	return string(runes[:2]) + MaskPlaceholder + string(runes[len(runes)-2:])
}

// scanText masks card numbers, then emails, then phone numbers found in free text.
func scanText(s string) string {
	if s == "" || !mayContainSensitive(s) {
		return s
	}

	s = internal.CardPattern.ReplaceAllString(s, CardNumberPlaceholder)
	s = internal.EmbeddedEmailPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := internal.EmbeddedEmailPattern.FindStringSubmatch(match)
		if m == nil {
			return match
		}
		return maskEmail(m[1], m[2])
	})
	return maskEmbeddedPhones(s)
}

// maskEmbeddedPhones keeps the boundary character captured before each number.
func maskEmbeddedPhones(s string) string {
	matches := internal.EmbeddedPhonePattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	last := 0
	for _, m := range matches {
		numStart, numEnd := m[4], m[5]
		sb.WriteString(s[last:numStart])
		sb.WriteString(maskPhone(internal.DigitsOnly(s[numStart:numEnd])))
		last = numEnd
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// mayContainSensitive is a cheap prefilter: every pattern needs a digit or an '@'.
func mayContainSensitive(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '@' || (c >= '0' && c <= '9') {
			return true
		}
	}
	return false
}
