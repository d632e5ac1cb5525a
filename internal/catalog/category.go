package catalog

import (
	"github.com/aegisshield/case-dashboard/internal/models"
)

// Category identifiers
const (
	CategoryFakeDiplomas      = "faux-diplomes"
	CategoryIrregularTraining = "offre-formation-irreguliere"
	CategoryIrregularHiring   = "recrutements-irreguliers"
	CategoryHarassment        = "harcelement"
	CategoryCorruption        = "corruption"
	CategoryMiscellaneous     = "divers"
)

var categories = []models.Category{
	{ID: CategoryFakeDiplomas, Name: "Faux diplômes", Subtitle: "Diplômes falsifiés ou non reconnus", Icon: "graduation-cap"},
	{ID: CategoryIrregularTraining, Name: "Offre de formation irrégulière", Subtitle: "Formations non agréées", Icon: "book"},
	{ID: CategoryIrregularHiring, Name: "Recrutements irréguliers", Subtitle: "Concours et embauches frauduleux", Icon: "user-check"},
	{ID: CategoryHarassment, Name: "Harcèlement", Subtitle: "Harcèlement moral ou sexuel", Icon: "alert-triangle"},
	{ID: CategoryCorruption, Name: "Corruption", Subtitle: "Pots-de-vin et trafic d'influence", Icon: "dollar-sign"},
	{ID: CategoryMiscellaneous, Name: "Divers", Subtitle: "Autres signalements", Icon: "more-horizontal"},
}

var categoryNames = func() map[string]string {
	m := make(map[string]string, len(categories))
	for _, c := range categories {
		m[c.ID] = c.Name
	}
	return m
}()

// Categories returns a copy of the category reference list
func Categories() []models.Category {
	out := make([]models.Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryLabel returns the display name of a category id
func CategoryLabel(id string) string {
	if id == "" {
		return UnknownLabel
	}
	if name, ok := categoryNames[id]; ok {
		return name
	}
	return id
}

// IsKnownCategory reports whether id is one of the fixed categories
func IsKnownCategory(id string) bool {
	_, ok := categoryNames[id]
	return ok
}
