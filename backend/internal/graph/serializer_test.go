package graph

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_FlattensNodesAndLinks(t *testing.T) {
	store := openTestStore(t)
	syncer := NewTrainingSyncer(store)
	_, err := syncer.SyncAnswer(testAnswer("k_1", "Math"))
	require.NoError(t, err)

	payload := Export(store.Snapshot(), nil)

	var qa map[string]any
	for _, record := range payload.Nodes {
		if record["id"] == "Knowledge:k_1" {
			qa = record
		}
	}
	require.NotNil(t, qa)
	assert.Equal(t, "training_qa", qa["type"])
	assert.Equal(t, "Math", qa["answer"])

	assert.Contains(t, payload.Links, Link{Source: "Training", Target: "Training_Knowledge", Relation: RelationDefault})
	assert.Contains(t, payload.Links, Link{Source: "Training_Knowledge", Target: "Knowledge:k_1", Relation: RelationDefault})
}

func TestExport_Deterministic(t *testing.T) {
	store := openTestStore(t)
	trainingSyncer := NewTrainingSyncer(store)
	documentSyncer := NewDocumentSyncer(store)

	for _, id := range []string{"k_3", "k_1", "k_2"} {
		_, err := trainingSyncer.SyncAnswer(testAnswer(id, "x"))
		require.NoError(t, err)
	}
	_, err := documentSyncer.SyncDocument(testDocument(
		DocumentEntry{Category: "Knowledge", Question: "Q?", Answer: "A"},
	))
	require.NoError(t, err)

	payload := Export(store.Snapshot(), nil)

	ids := make([]string, 0, len(payload.Nodes))
	for _, record := range payload.Nodes {
		ids = append(ids, record["id"].(string))
	}
	assert.True(t, sort.StringsAreSorted(ids), "node records must be sorted by id")

	again := Export(store.Snapshot(), nil)
	assert.Equal(t, payload, again)
}

func TestExport_TrainingSummary(t *testing.T) {
	store := openTestStore(t)
	syncer := NewTrainingSyncer(store)
	_, err := syncer.SyncAnswer(testAnswer("k_1", "Math"))
	require.NoError(t, err)
	_, err = syncer.SyncAnswer(testAnswer("k_2", "History"))
	require.NoError(t, err)

	totals := map[TaxonomyKey]int{KeyKnowledge: 5, KeyPreferences: 5}
	payload := Export(store.Snapshot(), totals)

	knowledge := payload.TrainingSummary["Knowledge"]
	assert.Equal(t, 2, knowledge.Answered)
	assert.Equal(t, 5, knowledge.Total)
	assert.Equal(t, 40.0, knowledge.Completion)

	preferences := payload.TrainingSummary["Preferences"]
	assert.Zero(t, preferences.Answered)
	assert.Zero(t, preferences.Completion)

	// Every taxonomy key appears, even untouched ones.
	assert.Len(t, payload.TrainingSummary, len(TaxonomyKeys))

	// Knowledge entries from documents never count as training answers.
	documentSyncer := NewDocumentSyncer(store)
	_, err = documentSyncer.SyncDocument(testDocument(
		DocumentEntry{Category: "Knowledge", Question: "Q?", Answer: "A"},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, Export(store.Snapshot(), totals).TrainingSummary["Knowledge"].Answered)
}

func TestQueryService_Summary(t *testing.T) {
	store := openTestStore(t)
	syncer := NewTrainingSyncer(store)
	answer := testAnswer("k_1", "Math")
	answer.Timestamp = time.Now()
	_, err := syncer.SyncAnswer(answer)
	require.NoError(t, err)

	query := NewQueryService(store, func() map[TaxonomyKey]int {
		return map[TaxonomyKey]int{KeyKnowledge: 4}
	})

	summary := query.GetTrainingSummary()
	assert.Equal(t, 1, summary["Knowledge"].Answered)
	assert.Equal(t, 25.0, summary["Knowledge"].Completion)

	payload := query.GetGraph()
	assert.Equal(t, summary, payload.TrainingSummary)
	assert.NotEmpty(t, payload.Nodes)
}

func TestResolveCategory(t *testing.T) {
	for label, want := range map[string]TaxonomyKey{
		"Questions about my knowledge":                       KeyKnowledge,
		"Questions about my feelings and 5 personalities":    KeyPersonalities,
		"Question about the importance of people in my life": KeyImportanceOfPeople,
		"Moral questions": KeyMorals,
		"Preferences":     KeyPreferences,
		"Feelings":        KeyFeelings,
		"AutomaticQuestions": KeyAutomaticQuestions,
	} {
		key, err := ResolveCategory(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, key)
	}

	_, err := ResolveCategory("Not A Real Category")
	assert.Error(t, err)
}
