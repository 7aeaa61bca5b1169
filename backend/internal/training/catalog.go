package training

import (
	"model-myself/backend/internal/graph"
	"model-myself/backend/pkg/errors"
)

// Question is one predefined training question
type Question struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Type        string   `json:"type"` // "text" or "multiple_choice"
	Options     []string `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// Catalog holds the fixed question sets per training category. The category
// labels are the human-readable ones shown in the training UI; they resolve
// to taxonomy keys through the graph package.
type Catalog struct {
	questions map[string][]Question
	labels    []string
}

// NewCatalog returns the built-in training question catalog
func NewCatalog() *Catalog {
	c := &Catalog{questions: defaultQuestions()}
	for label := range c.questions {
		c.labels = append(c.labels, label)
	}
	return c
}

// Labels returns all known category labels
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Questions returns the question set for a category label
func (c *Catalog) Questions(label string) ([]Question, error) {
	qs, ok := c.questions[label]
	if !ok {
		return nil, errors.NewCategoryNotFound(label)
	}
	out := make([]Question, len(qs))
	copy(out, qs)
	return out, nil
}

// TotalsByKey returns the number of catalog questions per taxonomy key.
// Labels resolving to the same key pool their questions. The graph serializer
// uses these totals for completion percentages.
func (c *Catalog) TotalsByKey() map[graph.TaxonomyKey]int {
	totals := make(map[graph.TaxonomyKey]int, len(c.questions))
	for label, qs := range c.questions {
		key, err := graph.ResolveCategory(label)
		if err != nil {
			continue
		}
		totals[key] += len(qs)
	}
	return totals
}

func defaultQuestions() map[string][]Question {
	return map[string][]Question{
		"Questions about my knowledge": {
			{ID: "knowledge_1", Question: "What are your main areas of expertise?", Type: "text", Placeholder: "e.g., programming, cooking, history..."},
			{ID: "knowledge_2", Question: "Which subjects do you find most challenging?", Type: "text", Placeholder: "e.g., mathematics, public speaking..."},
			{ID: "knowledge_3", Question: "What's your preferred learning style?", Type: "multiple_choice", Options: []string{"Visual", "Auditory", "Kinesthetic", "Reading/Writing", "Mixed"}},
			{ID: "knowledge_4", Question: "How do you typically approach learning new topics?", Type: "multiple_choice", Options: []string{"Research extensively first", "Jump in and learn by doing", "Find a mentor/teacher", "Take structured courses", "Mix of approaches"}},
			{ID: "knowledge_5", Question: "What knowledge would you like to develop further?", Type: "text", Placeholder: "Areas you want to grow in..."},
		},
		"Questions about my feelings and 5 personalities": {
			{ID: "personality_1", Question: "How do you typically handle stress?", Type: "multiple_choice", Options: []string{"Stay calm and analytical", "Seek support from others", "Take breaks and recharge", "Push through with determination", "Avoid stressful situations"}},
			{ID: "personality_2", Question: "In social situations, you tend to be:", Type: "multiple_choice", Options: []string{"Outgoing and talkative", "Quiet but engaged", "Reserved until comfortable", "The life of the party", "Prefer small groups"}},
			{ID: "personality_3", Question: "How do you make important decisions?", Type: "multiple_choice", Options: []string{"Logical analysis", "Follow intuition", "Seek others' opinions", "Consider all possibilities", "Go with past experience"}},
			{ID: "personality_4", Question: "What motivates you most?", Type: "text", Placeholder: "What drives you to achieve your goals..."},
			{ID: "personality_5", Question: "How do you handle change?", Type: "multiple_choice", Options: []string{"Embrace it eagerly", "Adapt gradually", "Need time to adjust", "Prefer stability", "Depends on the situation"}},
		},
		"Question about the importance of people in my life": {
			{ID: "people_1", Question: "Who are the most important people in your life and why?", Type: "text", Placeholder: "Family, friends, mentors, colleagues..."},
			{ID: "people_2", Question: "How do you typically maintain relationships?", Type: "multiple_choice", Options: []string{"Regular contact", "Quality time together", "Helping when needed", "Sharing experiences", "Being a good listener"}},
			{ID: "people_3", Question: "What qualities do you value most in others?", Type: "text", Placeholder: "Honesty, loyalty, humor, intelligence..."},
			{ID: "people_4", Question: "How do you handle conflicts with important people?", Type: "multiple_choice", Options: []string{"Address directly", "Give it time", "Seek mediation", "Avoid confrontation", "Compromise"}},
			{ID: "people_5", Question: "What role do you play in your social circles?", Type: "multiple_choice", Options: []string{"The organizer", "The supporter", "The advisor", "The entertainer", "The peacemaker"}},
		},
		"Iteratively add to a knowledge graph": {
			{ID: "graph_1", Question: "What key concepts define who you are?", Type: "text", Placeholder: "Core concepts, values, interests..."},
			{ID: "graph_2", Question: "How do your interests and skills connect to each other?", Type: "text", Placeholder: "Relationships between different aspects of yourself..."},
			{ID: "graph_3", Question: "What experiences have shaped your current knowledge?", Type: "text", Placeholder: "Key learning experiences, failures, successes..."},
			{ID: "graph_4", Question: "Which areas of knowledge would you like to explore connections for?", Type: "multiple_choice", Options: []string{"Personal values", "Professional skills", "Relationships", "Hobbies", "Life experiences"}},
			{ID: "graph_5", Question: "How do you see your knowledge evolving over time?", Type: "text", Placeholder: "Future learning goals, connections to build..."},
		},
		"Preferences": {
			{ID: "pref_1", Question: "What's your ideal way to spend free time?", Type: "text", Placeholder: "Activities, hobbies, relaxation..."},
			{ID: "pref_2", Question: "In work/study environments, you prefer:", Type: "multiple_choice", Options: []string{"Quiet and focused", "Collaborative and social", "Flexible and changing", "Structured and organized", "Creative and inspiring"}},
			{ID: "pref_3", Question: "What type of challenges do you enjoy most?", Type: "multiple_choice", Options: []string{"Analytical problems", "Creative projects", "Social interactions", "Physical activities", "Learning new skills"}},
			{ID: "pref_4", Question: "How do you prefer to communicate?", Type: "multiple_choice", Options: []string{"Face-to-face", "Written messages", "Video calls", "Phone calls", "Depends on situation"}},
			{ID: "pref_5", Question: "What kind of feedback do you find most helpful?", Type: "text", Placeholder: "Direct, supportive, detailed, brief..."},
		},
		"Moral questions": {
			{ID: "moral_1", Question: "What core values guide your decisions?", Type: "text", Placeholder: "Honesty, fairness, compassion, freedom..."},
			{ID: "moral_2", Question: "When facing an ethical dilemma, you typically:", Type: "multiple_choice", Options: []string{"Consider consequences", "Follow principles", "Seek guidance", "Trust intuition", "Weigh all perspectives"}},
			{ID: "moral_3", Question: "How important is it to you to help others?", Type: "multiple_choice", Options: []string{"Extremely important", "Very important", "Somewhat important", "Depends on situation", "Not a priority"}},
			{ID: "moral_4", Question: "What does 'doing the right thing' mean to you?", Type: "text", Placeholder: "Your personal definition of moral behavior..."},
			{ID: "moral_5", Question: "How do you handle situations where your values conflict?", Type: "text", Placeholder: "Your approach to moral conflicts..."},
		},
		"Automatic questions to extend known knowledge": {
			{ID: "auto_1", Question: "What topics would you like to be asked about regularly?", Type: "text", Placeholder: "Areas for continuous learning..."},
			{ID: "auto_2", Question: "How often would you like to receive knowledge-building questions?", Type: "multiple_choice", Options: []string{"Daily", "Weekly", "Bi-weekly", "Monthly", "When I request them"}},
			{ID: "auto_3", Question: "What format works best for you to reflect on knowledge?", Type: "multiple_choice", Options: []string{"Short questions", "Deep reflections", "Comparisons", "Hypothetical scenarios", "Mixed formats"}},
			{ID: "auto_4", Question: "Which areas of your knowledge need the most development?", Type: "text", Placeholder: "Knowledge gaps you'd like to address..."},
			{ID: "auto_5", Question: "How do you prefer to track your learning progress?", Type: "multiple_choice", Options: []string{"Written journal", "Digital notes", "Progress charts", "Discussion with others", "Mental reflection"}},
		},
	}
}
