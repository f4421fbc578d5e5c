package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/musicability-api/internal/melody"
	"github.com/Conceptual-Machines/musicability-api/internal/models"
	"github.com/itchyny/gojq"
	"github.com/kaptinlin/jsonrepair"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMalformed is returned when a payload cannot be read as a description at all.
	ErrMalformed = errors.New("malformed description payload")
	// ErrTooManyNotes is returned when the melody exceeds Options.MaxNotes.
	ErrTooManyNotes = errors.New("too many notes")
)

// Warning describes a value that was dropped or reinterpreted while decoding.
// Index is the melody position for note warnings and -1 otherwise.
type Warning struct {
	Index   int    `json:"index" yaml:"index"`
	Field   string `json:"field" yaml:"field"`
	Message string `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	if w.Index >= 0 {
		return fmt.Sprintf("melody[%d].%s: %s", w.Index, w.Field, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}

// Options controls Decode.
type Options struct {
	Format Format
	// Query is an optional jq expression selecting the description inside a
	// larger document, e.g. ".choices[0].message.content".
	Query string
	// MaxNotes rejects melodies longer than this when positive.
	MaxNotes int
}

// Decode reads a description from data. Field types are coerced leniently;
// anything that cannot be interpreted is left at its zero value for the
// normalizer to repair. Notes without a usable pitch are skipped with a warning.
func Decode(data []byte, opts Options) (models.MusicalDescription, []Warning, error) {
	format := opts.Format
	if format == "" {
		format = FormatJSON
	}

	value, err := parse(data, format)
	if err != nil {
		return models.MusicalDescription{}, nil, err
	}

	if opts.Query != "" {
		value, err = runQuery(opts.Query, value)
		if err != nil {
			return models.MusicalDescription{}, nil, err
		}
		if s, ok := value.(string); ok {
			value, err = parse([]byte(s), FormatText)
			if err != nil {
				return models.MusicalDescription{}, nil, err
			}
		}
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return models.MusicalDescription{}, nil, fmt.Errorf("%w: expected an object, got %s", ErrMalformed, typeName(value))
	}

	d, warnings := coerce(obj)
	if opts.MaxNotes > 0 && len(d.Melody) > opts.MaxNotes {
		return models.MusicalDescription{}, warnings, fmt.Errorf("%w: %d notes exceeds the limit of %d", ErrTooManyNotes, len(d.Melody), opts.MaxNotes)
	}
	return d, warnings, nil
}

func parse(data []byte, format Format) (any, error) {
	var v any
	switch format {
	case FormatJSON, FormatText:
		text := ExtractJSON(string(data))
		if text == "" {
			return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
		}
		if err := unmarshalJSON([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case FormatMsgpack:
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrMalformed, format)
	}
	return normalizeValue(v), nil
}

// unmarshalJSON unmarshals JSON data into v. On a syntax error the data is
// repaired with jsonrepair and decoded again.
func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*\\})\\s*```")

// ExtractJSON pulls the JSON object out of a model reply: the contents of a
// ``` fence when present, otherwise the span from the first "{" to the last "}".
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(text, "{") {
		return text
	}
	start := strings.Index(text, "{")
	if start < 0 {
		return text
	}
	if end := strings.LastIndex(text, "}"); end > start {
		return text[start : end+1]
	}
	// Truncated reply; jsonrepair can still close it.
	return text[start:]
}

func runQuery(expr string, input any) (any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid jq expression %q: %v", ErrMalformed, expr, err)
	}
	iter := query.Run(input)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("%w: jq expression %q returned no result", ErrMalformed, expr)
	}
	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("%w: jq error: %v", ErrMalformed, err)
	}
	return v, nil
}

// normalizeValue converts decoder-specific containers and number types into
// the plain map[string]any / []any / float64 / int shapes gojq and coerce expect.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case int8:
		return int(val)
	case int16:
		return int(val)
	case int32:
		return int(val)
	case int64:
		return int(val)
	case uint8:
		return int(val)
	case uint16:
		return int(val)
	case uint32:
		return int(val)
	case uint64:
		if val > math.MaxInt32 {
			return float64(val)
		}
		return int(val)
	case uint:
		if val > math.MaxInt32 {
			return float64(val)
		}
		return int(val)
	case float32:
		return float64(val)
	case []byte:
		return string(val)
	default:
		return v
	}
}

func coerce(obj map[string]any) (models.MusicalDescription, []Warning) {
	var warnings []Warning
	d := models.MusicalDescription{
		Title: stringValue(obj["title"]),
		Key:   stringValue(obj["key"]),
	}

	if tempo, ok := intValue(obj["tempo_bpm"]); ok {
		d.TempoBPM = tempo
	} else if obj["tempo_bpm"] != nil {
		warnings = append(warnings, Warning{Index: -1, Field: "tempo_bpm", Message: fmt.Sprintf("ignored %v", obj["tempo_bpm"])})
	}

	if bars, ok := intValue(obj["length_bars"]); ok {
		d.LengthBars = bars
	}

	if raw, present := obj["time_signature"]; present && raw != nil {
		if ts, ok := timeSignature(raw); ok {
			d.TimeSignature = &ts
		} else {
			warnings = append(warnings, Warning{Index: -1, Field: "time_signature", Message: fmt.Sprintf("ignored %v", raw)})
		}
	}

	if list, ok := obj["assumptions"].([]any); ok {
		for _, a := range list {
			if s := stringValue(a); s != "" {
				d.Assumptions = append(d.Assumptions, s)
			}
		}
	} else if s := stringValue(obj["assumptions"]); s != "" {
		d.Assumptions = []string{s}
	}

	notes, _ := obj["melody"].([]any)
	if obj["melody"] != nil && notes == nil {
		warnings = append(warnings, Warning{Index: -1, Field: "melody", Message: "not a list, treated as empty"})
	}
	for i, raw := range notes {
		note, warning, ok := noteEvent(i, raw)
		if !ok {
			warnings = append(warnings, warning)
			continue
		}
		d.Melody = append(d.Melody, note)
	}

	return d, warnings
}

func noteEvent(index int, raw any) (models.NoteEvent, Warning, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return models.NoteEvent{}, Warning{Index: index, Field: "note", Message: "not an object, skipped"}, false
	}

	pitch, err := pitchValue(obj["pitch"])
	if err != nil {
		return models.NoteEvent{}, Warning{Index: index, Field: "pitch", Message: err.Error() + ", skipped"}, false
	}

	n := models.NoteEvent{Pitch: pitch}
	if beats, ok := floatValue(obj["duration_beats"]); ok {
		n.DurationBeats = beats
	}
	if v, ok := intValue(obj["velocity"]); ok {
		n.Velocity = &v
	}
	return n, Warning{}, true
}

func pitchValue(v any) (int, error) {
	switch val := v.(type) {
	case nil:
		return 0, errors.New("missing pitch")
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return roundInt(n), nil
		}
		return melody.NoteNameToMIDI(s)
	default:
		if n, ok := intValue(val); ok {
			return n, nil
		}
		return 0, fmt.Errorf("unsupported pitch %v", v)
	}
}

func timeSignature(v any) (models.TimeSignature, bool) {
	switch val := v.(type) {
	case string:
		parts := strings.Split(strings.ReplaceAll(val, " ", ""), "/")
		if len(parts) != 2 {
			return models.TimeSignature{}, false
		}
		num, err1 := strconv.Atoi(parts[0])
		den, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return models.TimeSignature{}, false
		}
		return models.TimeSignature{Numerator: num, Denominator: den}, true
	case []any:
		if len(val) != 2 {
			return models.TimeSignature{}, false
		}
		num, ok1 := intValue(val[0])
		den, ok2 := intValue(val[1])
		return models.TimeSignature{Numerator: num, Denominator: den}, ok1 && ok2
	case map[string]any:
		num, ok1 := intValue(val["numerator"])
		den, ok2 := intValue(val["denominator"])
		return models.TimeSignature{Numerator: num, Denominator: den}, ok1 && ok2
	default:
		return models.TimeSignature{}, false
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		return fmt.Sprint(val)
	}
}

func floatValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func intValue(v any) (int, bool) {
	f, ok := floatValue(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return roundInt(f), true
}

func roundInt(f float64) int {
	r := math.Round(f)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int(r)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
