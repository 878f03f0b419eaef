package masking

import "context"

// Category identifies one of the sensitive-entity classes the masker detects.
// The string value is the tag used inside placeholder tokens and in the
// detected-entity log, e.g. "[EMAIL_0]" and "EMAIL: john@example.com".
type Category string

const (
	CategoryMentalHealth Category = "MENTAL_HEALTH"
	CategoryDisease      Category = "DISEASE"
	CategoryEmail        Category = "EMAIL"
	CategoryPhone        Category = "PHONE"
	CategoryAge          Category = "AGE"
	CategoryLocation     Category = "LOCATION"
	CategoryGender       Category = "GENDER"
	CategoryName         Category = "NAME"
)

// Categories lists every category in detection order. Order matters: later
// passes operate on text already rewritten by earlier passes, and LOCATION
// must run before GENDER and NAME so city and state names are not claimed by
// the generic-word passes.
var Categories = []Category{
	CategoryMentalHealth,
	CategoryDisease,
	CategoryEmail,
	CategoryPhone,
	CategoryAge,
	CategoryLocation,
	CategoryGender,
	CategoryName,
}

// Span is a half-open [Start, End) byte range into the text handed to a
// NameRecognizer, together with the covered substring.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// NameRecognizer supplies person-name spans for the NAME pass. It is invoked
// at most once per Mask call, after all pattern passes, and receives the text
// as rewritten by those passes. A nil recognizer skips the NAME pass.
type NameRecognizer interface {
	Recognize(ctx context.Context, text string) ([]Span, error)
}

// Result is the immutable output of one Mask call. Mappings holds one entry
// per detected span, keyed by placeholder token; DetectedEntities lists
// "<CATEGORY>: <original>" lines in detection order.
type Result struct {
	OriginalText     string            `json:"original_text"`
	MaskedText       string            `json:"masked_text"`
	Mappings         map[string]string `json:"mappings"`
	DetectedEntities []string          `json:"detected_entities"`
}
