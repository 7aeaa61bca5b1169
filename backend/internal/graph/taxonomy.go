package graph

import (
	"model-myself/backend/pkg/errors"
)

// ============================================================================
// Category Taxonomy
// ============================================================================

// TaxonomyKey identifies one of the seven fixed knowledge categories
type TaxonomyKey string

const (
	KeyKnowledge          TaxonomyKey = "Knowledge"
	KeyFeelings           TaxonomyKey = "Feelings"
	KeyPersonalities      TaxonomyKey = "Personalities"
	KeyImportanceOfPeople TaxonomyKey = "ImportanceOfPeople"
	KeyPreferences        TaxonomyKey = "Preferences"
	KeyMorals             TaxonomyKey = "Morals"
	KeyAutomaticQuestions TaxonomyKey = "AutomaticQuestions"
)

// TaxonomyKeys lists all categories in their canonical order
var TaxonomyKeys = []TaxonomyKey{
	KeyKnowledge,
	KeyFeelings,
	KeyPersonalities,
	KeyImportanceOfPeople,
	KeyPreferences,
	KeyMorals,
	KeyAutomaticQuestions,
}

// categoryLabels maps the human-readable training category labels to their
// taxonomy keys. The bare key names are accepted as well: document analysis
// produces entries categorized by key.
var categoryLabels = map[string]TaxonomyKey{
	"Questions about my knowledge":                         KeyKnowledge,
	"Questions about my feelings and 5 personalities":      KeyPersonalities,
	"Question about the importance of people in my life":   KeyImportanceOfPeople,
	"Iteratively add to a knowledge graph":                 KeyKnowledge,
	"Preferences":                                          KeyPreferences,
	"Moral questions":                                      KeyMorals,
	"Automatic questions to extend known knowledge":        KeyAutomaticQuestions,
	string(KeyKnowledge):                                   KeyKnowledge,
	string(KeyFeelings):                                    KeyFeelings,
	string(KeyPersonalities):                               KeyPersonalities,
	string(KeyImportanceOfPeople):                          KeyImportanceOfPeople,
	string(KeyMorals):                                      KeyMorals,
	string(KeyAutomaticQuestions):                          KeyAutomaticQuestions,
}

// ResolveCategory maps a category label to its taxonomy key. It is pure and
// total over the known label set and returns ErrUnknownCategory for anything
// else.
func ResolveCategory(label string) (TaxonomyKey, error) {
	if key, ok := categoryLabels[label]; ok {
		return key, nil
	}
	return "", errors.NewUnknownCategory(label)
}
