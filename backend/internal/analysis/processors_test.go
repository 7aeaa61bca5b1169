package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-myself/backend/internal/storage"
)

func textDoc(contentType string) storage.Document {
	return storage.Document{
		ID:          "doc1",
		Filename:    "sample.txt",
		ContentType: contentType,
		Size:        100,
		UploadDate:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTextExtractor_PlainText(t *testing.T) {
	p := NewTextExtractor()

	out, err := p.Process(context.Background(), "hello world\nsecond line", textDoc("text/plain"))
	require.NoError(t, err)

	res := out.(TextExtractionResult)
	assert.Equal(t, "hello world\nsecond line", res.ExtractedText)
	assert.Equal(t, 4, res.WordCount)
	assert.Equal(t, 2, res.LineCount)
	assert.Equal(t, "en", res.Language)
}

func TestTextExtractor_HTMLStripsMarkup(t *testing.T) {
	p := NewTextExtractor()
	html := "<html><head><style>body{color:red}</style></head><body>\n<h1>Title</h1>\n<p>Body text</p>\n<script>var x=1;</script>\n</body></html>"

	out, err := p.Process(context.Background(), html, textDoc("text/html"))
	require.NoError(t, err)

	res := out.(TextExtractionResult)
	assert.Equal(t, "Title Body text", res.ExtractedText)
	assert.Equal(t, "html_text_nodes", res.ExtractionMethod)
	assert.NotContains(t, res.ExtractedText, "color:red")
}

func TestTextExtractor_JSONFlattens(t *testing.T) {
	p := NewTextExtractor()

	out, err := p.Process(context.Background(), `{"b":"world","a":"hello","n":42}`, textDoc("application/json"))
	require.NoError(t, err)

	res := out.(TextExtractionResult)
	assert.Equal(t, "hello world", res.ExtractedText)
	assert.Equal(t, "json_string_values", res.ExtractionMethod)
}

func TestTextExtractor_Truncates(t *testing.T) {
	p := NewTextExtractor()
	p.MaxTextLength = 10

	out, err := p.Process(context.Background(), "aaaaaaaaaaaaaaaaaaaa", textDoc("text/plain"))
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaa...", out.(TextExtractionResult).ExtractedText)
}

func TestSentimentAnalyzer(t *testing.T) {
	p := NewSentimentAnalyzer()

	out, err := p.Process(context.Background(), "This was a great and wonderful day", textDoc("text/plain"))
	require.NoError(t, err)
	res := out.(SentimentResult)
	assert.Equal(t, "positive", res.Label)
	assert.InDelta(t, 1.0, res.Score, 0.001)

	out, err = p.Process(context.Background(), "terrible awful horrible experience", textDoc("text/plain"))
	require.NoError(t, err)
	assert.Equal(t, "negative", out.(SentimentResult).Label)

	out, err = p.Process(context.Background(), "the sky is above the ground", textDoc("text/plain"))
	require.NoError(t, err)
	assert.Equal(t, "neutral", out.(SentimentResult).Label)

	_, err = p.Process(context.Background(), "hi", textDoc("text/plain"))
	assert.Error(t, err)
}

func TestKeywordExtractor(t *testing.T) {
	p := NewKeywordExtractor()

	out, err := p.Process(context.Background(),
		"graph graph graph database database query the and of", textDoc("text/plain"))
	require.NoError(t, err)

	res := out.(KeywordResult)
	require.GreaterOrEqual(t, len(res.Keywords), 3)
	assert.Equal(t, "graph", res.Keywords[0])
	assert.Equal(t, "database", res.Keywords[1])
	assert.NotContains(t, res.Keywords, "the")
	assert.Len(t, res.ConfidenceScores, len(res.Keywords))
	assert.InDelta(t, 0.9, res.ConfidenceScores[0], 0.001)
}

func TestDocumentSummarizer(t *testing.T) {
	p := NewDocumentSummarizer()

	long := "First sentence about things. Second sentence with more detail. " +
		"Third sentence continues. Fourth sentence is extra. Fifth sentence is also extra."
	out, err := p.Process(context.Background(), long, textDoc("text/plain"))
	require.NoError(t, err)

	res := out.(SummaryResult)
	assert.Contains(t, res.Summary, "First sentence")
	assert.NotContains(t, res.Summary, "Fourth sentence")
	assert.Less(t, res.CompressionRatio, 1.0)

	_, err = p.Process(context.Background(), "too short", textDoc("text/plain"))
	assert.Error(t, err)
}

func TestMetadataExtractor(t *testing.T) {
	p := NewMetadataExtractor()
	content := "# Heading\n\n- item one\n- item two\n\nSee https://example.com and `code` here."

	out, err := p.Process(context.Background(), content, textDoc("text/markdown"))
	require.NoError(t, err)

	res := out.(MetadataResult)
	assert.Equal(t, "sample.txt", res.FileInfo.Filename)
	assert.True(t, res.Structure.HasHeaders)
	assert.True(t, res.Structure.HasLists)
	assert.True(t, res.Structure.HasLinks)
	assert.True(t, res.Structure.HasCode)
	assert.Equal(t, 3, res.ContentStats.ParagraphCount)
	assert.Greater(t, res.ContentStats.AverageWordLength, 0.0)
}
