package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"model-myself/backend/internal/storage"
)

// Analysis type identifiers accepted by the runner
const (
	TypeKnowledgeExtraction = "knowledge_extraction"
	TypeTextExtraction      = "text_extraction"
	TypeSentiment           = "sentiment"
	TypeKeywords            = "keywords"
	TypeSummary             = "summary"
	TypeMetadata            = "metadata"
)

// SupportedTypes lists the analysis types with their descriptions, in the
// order the API reports them.
var SupportedTypes = []TypeInfo{
	{Type: TypeKnowledgeExtraction, Description: "Extract structured entries for the knowledge graph using LLM", Formats: []string{"text/plain", "text/markdown"}},
	{Type: TypeTextExtraction, Description: "Extract text content from documents", Formats: []string{"txt", "md", "html", "json", "csv"}},
	{Type: TypeSentiment, Description: "Analyze sentiment of document content", Formats: []string{"txt", "md", "html", "json"}},
	{Type: TypeKeywords, Description: "Extract keywords and key phrases", Formats: []string{"txt", "md", "html", "json", "csv"}},
	{Type: TypeSummary, Description: "Generate document summary", Formats: []string{"txt", "md", "html", "json"}},
	{Type: TypeMetadata, Description: "Extract document metadata and statistics", Formats: []string{"all"}},
}

// TypeInfo describes one supported analysis type
type TypeInfo struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Formats     []string `json:"supported_formats"`
}

// Processor analyzes one aspect of a document's content
type Processor interface {
	Name() string
	Process(ctx context.Context, content string, doc storage.Document) (any, error)
}

// ----------------------------------------------------------------------------
// Text extraction
// ----------------------------------------------------------------------------

// TextExtractor pulls plain text out of the stored content. HTML is parsed
// and reduced to its text nodes, JSON is flattened to its string values,
// everything else passes through.
type TextExtractor struct {
	MaxTextLength int
}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{MaxTextLength: 100000}
}

func (p *TextExtractor) Name() string { return TypeTextExtraction }

// TextExtractionResult is the text_extraction payload
type TextExtractionResult struct {
	ExtractedText    string `json:"extracted_text"`
	TextLength       int    `json:"text_length"`
	WordCount        int    `json:"word_count"`
	LineCount        int    `json:"line_count"`
	Language         string `json:"language"`
	ExtractionMethod string `json:"extraction_method"`
}

func (p *TextExtractor) Process(_ context.Context, content string, doc storage.Document) (any, error) {
	var text string
	method := "passthrough"

	switch doc.ContentType {
	case "text/html":
		parsed, err := goquery.NewDocumentFromReader(strings.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("parsing html: %w", err)
		}
		parsed.Find("script, style").Remove()
		text = normalizeWhitespace(parsed.Text())
		method = "html_text_nodes"
	case "application/json":
		text = flattenJSONText(content)
		method = "json_string_values"
	default:
		text = content
	}

	if len(text) > p.MaxTextLength {
		text = text[:p.MaxTextLength] + "..."
	}

	return TextExtractionResult{
		ExtractedText:    text,
		TextLength:       len(text),
		WordCount:        len(strings.Fields(text)),
		LineCount:        strings.Count(text, "\n") + 1,
		Language:         detectLanguage(text),
		ExtractionMethod: method,
	}, nil
}

// flattenJSONText collects all string values from a JSON document. Invalid
// JSON falls back to the raw content.
func flattenJSONText(content string) string {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return content
	}
	var parts []string
	var walk func(any)
	walk = func(node any) {
		switch n := node.(type) {
		case string:
			parts = append(parts, n)
		case []any:
			for _, item := range n {
				walk(item)
			}
		case map[string]any:
			keys := make([]string, 0, len(n))
			for k := range n {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(n[k])
			}
		}
	}
	walk(v)
	return strings.Join(parts, " ")
}

func detectLanguage(text string) string {
	if len(text) < 10 {
		return "unknown"
	}
	return "en"
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalizeWhitespace(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ----------------------------------------------------------------------------
// Sentiment
// ----------------------------------------------------------------------------

// SentimentAnalyzer scores content by counting positive and negative signal
// words
type SentimentAnalyzer struct {
	MinTextLength int
}

func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{MinTextLength: 10}
}

func (p *SentimentAnalyzer) Name() string { return TypeSentiment }

// SentimentResult is the sentiment payload
type SentimentResult struct {
	Score      float64 `json:"sentiment_score"`
	Label      string  `json:"sentiment_label"`
	Confidence float64 `json:"confidence"`
	TextLength int     `json:"text_length"`
}

var (
	positiveWords = []string{"good", "great", "excellent", "amazing", "wonderful", "fantastic"}
	negativeWords = []string{"bad", "terrible", "awful", "horrible", "disgusting", "hate"}
)

func (p *SentimentAnalyzer) Process(_ context.Context, content string, _ storage.Document) (any, error) {
	text := normalizeWhitespace(content)
	if len(text) < p.MinTextLength {
		return nil, fmt.Errorf("text too short for sentiment analysis")
	}

	lower := strings.ToLower(text)
	positive, negative := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	score := 0.0
	if positive+negative > 0 {
		score = float64(positive-negative) / float64(positive+negative)
	}

	label := "neutral"
	if score > 0.1 {
		label = "positive"
	} else if score < -0.1 {
		label = "negative"
	}

	return SentimentResult{Score: score, Label: label, Confidence: 0.85, TextLength: len(text)}, nil
}

// ----------------------------------------------------------------------------
// Keywords
// ----------------------------------------------------------------------------

// KeywordExtractor ranks non-stop-words by frequency
type KeywordExtractor struct {
	MaxKeywords   int
	MinWordLength int
}

func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{MaxKeywords: 10, MinWordLength: 3}
}

func (p *KeywordExtractor) Name() string { return TypeKeywords }

// KeywordResult is the keywords payload
type KeywordResult struct {
	Keywords         []string  `json:"keywords"`
	KeywordCount     int       `json:"keyword_count"`
	ConfidenceScores []float64 `json:"confidence_scores"`
	ExtractionMethod string    `json:"extraction_method"`
}

var stopWords = map[string]struct{}{}

func init() {
	list := []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "will", "would", "could", "should", "may",
		"might", "must", "can", "this", "that", "these", "those", "i", "you",
		"he", "she", "it", "we", "they", "me", "him", "her", "us", "them",
	}
	for _, w := range list {
		stopWords[w] = struct{}{}
	}
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

func (p *KeywordExtractor) Process(_ context.Context, content string, _ storage.Document) (any, error) {
	clean := strings.ToLower(nonWordRe.ReplaceAllString(content, " "))

	freq := make(map[string]int)
	for _, word := range strings.Fields(clean) {
		if len(word) < p.MinWordLength {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		freq[word]++
	}

	keywords := make([]string, 0, len(freq))
	for w := range freq {
		keywords = append(keywords, w)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if freq[keywords[i]] == freq[keywords[j]] {
			return keywords[i] < keywords[j]
		}
		return freq[keywords[i]] > freq[keywords[j]]
	})

	total := len(keywords)
	if len(keywords) > p.MaxKeywords {
		keywords = keywords[:p.MaxKeywords]
	}
	scores := make([]float64, len(keywords))
	for i := range scores {
		scores[i] = 0.9 - float64(i)*0.1
	}

	return KeywordResult{
		Keywords:         keywords,
		KeywordCount:     total,
		ConfidenceScores: scores,
		ExtractionMethod: "frequency_based",
	}, nil
}

// ----------------------------------------------------------------------------
// Summary
// ----------------------------------------------------------------------------

// DocumentSummarizer produces a short extractive summary from the leading
// sentences
type DocumentSummarizer struct {
	MaxSummaryLength int
	MinTextLength    int
}

func NewDocumentSummarizer() *DocumentSummarizer {
	return &DocumentSummarizer{MaxSummaryLength: 500, MinTextLength: 100}
}

func (p *DocumentSummarizer) Name() string { return TypeSummary }

// SummaryResult is the summary payload
type SummaryResult struct {
	Summary          string  `json:"summary"`
	SummaryLength    int     `json:"summary_length"`
	OriginalLength   int     `json:"original_length"`
	CompressionRatio float64 `json:"compression_ratio"`
}

func (p *DocumentSummarizer) Process(_ context.Context, content string, _ storage.Document) (any, error) {
	text := normalizeWhitespace(content)
	if len(text) < p.MinTextLength {
		return nil, fmt.Errorf("text too short for summarization")
	}

	sentences := strings.SplitAfter(text, ". ")
	summary := text
	if len(sentences) > 3 {
		var b strings.Builder
		for _, sentence := range sentences[:3] {
			if b.Len()+len(sentence) > p.MaxSummaryLength {
				break
			}
			b.WriteString(sentence)
		}
		summary = strings.TrimSpace(b.String())
	}

	return SummaryResult{
		Summary:          summary,
		SummaryLength:    len(summary),
		OriginalLength:   len(text),
		CompressionRatio: float64(len(summary)) / float64(len(text)),
	}, nil
}

// ----------------------------------------------------------------------------
// Metadata
// ----------------------------------------------------------------------------

// MetadataExtractor computes structural statistics about the content
type MetadataExtractor struct{}

func NewMetadataExtractor() *MetadataExtractor { return &MetadataExtractor{} }

func (p *MetadataExtractor) Name() string { return TypeMetadata }

// MetadataResult is the metadata payload
type MetadataResult struct {
	FileInfo       FileInfo       `json:"file_info"`
	ContentStats   ContentStats   `json:"content_stats"`
	Structure      StructureFlags `json:"structure_analysis"`
	ProcessingInfo ProcessingInfo `json:"processing_info"`
}

type FileInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
	UploadDate  string `json:"upload_date"`
}

type ContentStats struct {
	CharacterCount    int     `json:"character_count"`
	WordCount         int     `json:"word_count"`
	LineCount         int     `json:"line_count"`
	ParagraphCount    int     `json:"paragraph_count"`
	AverageWordLength float64 `json:"average_word_length"`
	Language          string  `json:"language"`
}

type StructureFlags struct {
	HasHeaders bool `json:"has_headers"`
	HasLists   bool `json:"has_lists"`
	HasLinks   bool `json:"has_links"`
	HasCode    bool `json:"has_code"`
}

type ProcessingInfo struct {
	ExtractionTimestamp string `json:"extraction_timestamp"`
	ProcessorVersion    string `json:"processor_version"`
}

var (
	headerRe       = regexp.MustCompile(`(?m)^#{1,6}\s`)
	bulletListRe   = regexp.MustCompile(`(?m)^\s*[-*+]\s`)
	numberedListRe = regexp.MustCompile(`(?m)^\s*\d+\.\s`)
	urlRe          = regexp.MustCompile(`https?://\S+`)
	markdownLinkRe = regexp.MustCompile(`\[.*\]\(.*\)`)
	codeBlockRe    = regexp.MustCompile("(?s)```.*```")
	inlineCodeRe   = regexp.MustCompile("`[^`]+`")
)

func (p *MetadataExtractor) Process(_ context.Context, content string, doc storage.Document) (any, error) {
	words := strings.Fields(content)
	avgLen := 0.0
	if len(words) > 0 {
		total := 0
		for _, w := range words {
			total += len(w)
		}
		avgLen = float64(total) / float64(len(words))
	}

	paragraphs := 0
	for _, p := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}

	return MetadataResult{
		FileInfo: FileInfo{
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			FileSize:    doc.Size,
			UploadDate:  doc.UploadDate.Format(time.RFC3339),
		},
		ContentStats: ContentStats{
			CharacterCount:    len(content),
			WordCount:         len(words),
			LineCount:         strings.Count(content, "\n") + 1,
			ParagraphCount:    paragraphs,
			AverageWordLength: avgLen,
			Language:          detectLanguage(content),
		},
		Structure: StructureFlags{
			HasHeaders: headerRe.MatchString(content),
			HasLists:   bulletListRe.MatchString(content) || numberedListRe.MatchString(content),
			HasLinks:   urlRe.MatchString(content) || markdownLinkRe.MatchString(content),
			HasCode:    codeBlockRe.MatchString(content) || inlineCodeRe.MatchString(content),
		},
		ProcessingInfo: ProcessingInfo{
			ExtractionTimestamp: time.Now().UTC().Format(time.RFC3339),
			ProcessorVersion:    "1.0.0",
		},
	}, nil
}
