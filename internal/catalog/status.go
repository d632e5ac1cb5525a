package catalog

// Canonical status codes
const (
	StatusNew         = "nouveau"
	StatusPending     = "en_attente"
	StatusInProgress  = "en_cours"
	StatusTransmitted = "transmis_autorite"
	StatusClosed      = "classifier"
)

// UnknownLabel is shown for an empty status or category code
const UnknownLabel = "Inconnu"

// Variant selects an alternative label table for a given screen
type Variant string

const (
	VariantDefault       Variant = ""
	VariantInvestigation Variant = "investigation"
)

// Status is a status code with its display label
type Status struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var statuses = []Status{
	{Code: StatusNew, Label: "Nouveau"},
	{Code: StatusPending, Label: "En attente"},
	{Code: StatusInProgress, Label: "En cours"},
	{Code: StatusTransmitted, Label: "Transmis à l'autorité"},
	{Code: StatusClosed, Label: "Classé"},
}

var statusLabels = func() map[string]string {
	m := make(map[string]string, len(statuses))
	for _, s := range statuses {
		m[s.Code] = s.Label
	}
	return m
}()

// variant overrides only hold the codes whose label differs
var variantLabels = map[Variant]map[string]string{
	VariantInvestigation: {
		StatusInProgress: "Ouverture d'enquêtes",
	},
}

// Label returns the display label of a status code.
// Unknown codes are returned verbatim and an empty code reads as "Inconnu".
func Label(code string) string {
	return LabelFor(code, VariantDefault)
}

// LabelFor returns the label of a status code under the given variant
func LabelFor(code string, variant Variant) string {
	if code == "" {
		return UnknownLabel
	}
	if overrides, ok := variantLabels[variant]; ok {
		if label, ok := overrides[code]; ok {
			return label
		}
	}
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return code
}

// Statuses returns the status table in workflow order
func Statuses() []Status {
	return StatusesFor(VariantDefault)
}

// StatusesFor returns the status table with variant labels applied
func StatusesFor(variant Variant) []Status {
	out := make([]Status, len(statuses))
	for i, s := range statuses {
		out[i] = Status{Code: s.Code, Label: LabelFor(s.Code, variant)}
	}
	return out
}

// IsKnownStatus reports whether the code is in the status table
func IsKnownStatus(code string) bool {
	_, ok := statusLabels[code]
	return ok
}

// ParseVariant maps a query value to a Variant; unknown values use the default table
func ParseVariant(value string) Variant {
	if _, ok := variantLabels[Variant(value)]; ok {
		return Variant(value)
	}
	return VariantDefault
}
