package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisshield/case-dashboard/internal/models"
)

func TestStatusLabels(t *testing.T) {
	t.Run("Known Codes", func(t *testing.T) {
		assert.Equal(t, "En cours", Label(StatusInProgress))
		assert.Equal(t, "Classé", Label(StatusClosed))
		assert.Equal(t, "Transmis à l'autorité", Label(StatusTransmitted))
	})

	t.Run("Unknown Code Passes Through", func(t *testing.T) {
		assert.Equal(t, "archive_2019", Label("archive_2019"))
	})

	t.Run("Empty Code", func(t *testing.T) {
		assert.Equal(t, "Inconnu", Label(""))
		assert.Equal(t, "Inconnu", LabelFor("", VariantInvestigation))
	})

	t.Run("Investigation Variant", func(t *testing.T) {
		assert.Equal(t, "Ouverture d'enquêtes", LabelFor(StatusInProgress, VariantInvestigation))
		assert.Equal(t, "Classé", LabelFor(StatusClosed, VariantInvestigation))
		assert.Equal(t, "En cours", Label(StatusInProgress))
	})

	t.Run("Status Table", func(t *testing.T) {
		table := StatusesFor(VariantInvestigation)
		require.Len(t, table, 5)
		assert.Equal(t, StatusNew, table[0].Code)
		assert.Equal(t, "Ouverture d'enquêtes", table[2].Label)
		assert.Equal(t, "En cours", Statuses()[2].Label)
	})

	t.Run("Known Status", func(t *testing.T) {
		assert.True(t, IsKnownStatus(StatusNew))
		assert.True(t, IsKnownStatus(StatusTransmitted))
		assert.False(t, IsKnownStatus("archive_2019"))
		assert.False(t, IsKnownStatus(""))
	})

	t.Run("Parse Variant", func(t *testing.T) {
		assert.Equal(t, VariantInvestigation, ParseVariant("investigation"))
		assert.Equal(t, VariantDefault, ParseVariant("reports"))
		assert.Equal(t, VariantDefault, ParseVariant(""))
	})
}

func TestCategories(t *testing.T) {
	t.Run("Reference List", func(t *testing.T) {
		list := Categories()
		require.Len(t, list, 6)
		assert.Equal(t, CategoryFakeDiplomas, list[0].ID)
		assert.Equal(t, CategoryMiscellaneous, list[5].ID)

		list[0].Name = "changed"
		assert.Equal(t, "Faux diplômes", Categories()[0].Name)
	})

	t.Run("Labels", func(t *testing.T) {
		assert.Equal(t, "Harcèlement", CategoryLabel(CategoryHarassment))
		assert.Equal(t, "fraude-fiscale", CategoryLabel("fraude-fiscale"))
		assert.Equal(t, "Inconnu", CategoryLabel(""))
		assert.True(t, IsKnownCategory(CategoryCorruption))
		assert.False(t, IsKnownCategory("tous"))
	})
}

func TestIsTransmittedToAuthority(t *testing.T) {
	tests := []struct {
		name     string
		record   models.CaseRecord
		expected bool
	}{
		{
			name:     "No Signal",
			record:   models.CaseRecord{Status: StatusInProgress},
			expected: false,
		},
		{
			name:     "Transmitted Status",
			record:   models.CaseRecord{Status: StatusTransmitted},
			expected: true,
		},
		{
			name:     "Legacy Transmitted Status",
			record:   models.CaseRecord{Status: "transmis"},
			expected: true,
		},
		{
			name:     "Flag Boolean",
			record:   models.CaseRecord{Extra: map[string]any{"transmis_autorite": true}},
			expected: true,
		},
		{
			name:     "Flag String",
			record:   models.CaseRecord{Extra: map[string]any{"transmis_autorite": "true"}},
			expected: true,
		},
		{
			name:     "Flag Number",
			record:   models.CaseRecord{Extra: map[string]any{"transmis_autorite": float64(1)}},
			expected: true,
		},
		{
			name:     "Flag False",
			record:   models.CaseRecord{Extra: map[string]any{"transmis_autorite": "false"}},
			expected: false,
		},
		{
			name:     "Flag Zero",
			record:   models.CaseRecord{Extra: map[string]any{"transmis_autorite": 0}},
			expected: false,
		},
		{
			name:     "Authority Identifier",
			record:   models.CaseRecord{Extra: map[string]any{"authority": "autorite_competente"}},
			expected: true,
		},
		{
			name:     "Other Authority Identifier",
			record:   models.CaseRecord{Extra: map[string]any{"authority": "police_locale"}},
			expected: false,
		},
		{
			name:     "Assigned To Competent Authority",
			record:   models.CaseRecord{AssignedTo: "competent_authority"},
			expected: true,
		},
		{
			name:     "Legacy Alias",
			record:   models.CaseRecord{Extra: map[string]any{"sent_to_authority": true}},
			expected: true,
		},
		{
			name:     "Legacy Alias Json Number",
			record:   models.CaseRecord{Extra: map[string]any{"is_transmitted": json.Number("1")}},
			expected: true,
		},
		{
			name: "Nested Transmission Object",
			record: models.CaseRecord{Extra: map[string]any{
				"transmission": map[string]any{"date": "2024-02-01", "to_authority": true},
			}},
			expected: true,
		},
		{
			name: "Nested Transmission Without Flag",
			record: models.CaseRecord{Extra: map[string]any{
				"transmission": map[string]any{"date": "2024-02-01"},
			}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := tt.record
			assert.Equal(t, tt.expected, IsTransmittedToAuthority(&record))
		})
	}

	t.Run("Nil Record", func(t *testing.T) {
		assert.False(t, IsTransmittedToAuthority(nil))
	})
}
