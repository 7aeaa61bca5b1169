package main

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"model-myself/backend/internal/analysis"
	"model-myself/backend/internal/graph"
	"model-myself/backend/internal/storage"
	"model-myself/backend/internal/training"
	apperrors "model-myself/backend/pkg/errors"
)

const maxUploadBytes = 20 << 20 // 20 MB

type server struct {
	store          *graph.Store
	docs           *storage.DocumentStore
	catalog        *training.Catalog
	answers        *training.AnswerLog
	records        *analysis.RecordStore
	runner         *analysis.Runner
	trainingSyncer *graph.TrainingSyncer
	queries        *graph.QueryService
	logger         *zap.Logger
}

func (s *server) registerRoutes(router *gin.Engine) {
	router.GET("/health", s.health)

	router.POST("/upload", s.uploadDocument)
	router.GET("/documents", s.listDocuments)
	router.GET("/documents/stats", s.documentStats)
	router.POST("/documents/cleanup", s.cleanupDocuments)
	router.GET("/documents/:id", s.getDocument)
	router.GET("/documents/:id/download", s.downloadDocument)
	router.DELETE("/documents/:id", s.deleteDocument)

	trainingGroup := router.Group("/training")
	{
		trainingGroup.GET("/categories", s.trainingCategories)
		trainingGroup.GET("/questions/:category", s.trainingQuestions)
		trainingGroup.POST("/answer", s.submitAnswer)
		trainingGroup.POST("/session", s.submitSession)
		trainingGroup.GET("/data", s.trainingData)
		trainingGroup.GET("/stats", s.trainingStats)
	}

	analysisGroup := router.Group("/analysis")
	{
		analysisGroup.POST("/analyze", s.startAnalysis)
		analysisGroup.GET("/results", s.listAnalysisResults)
		analysisGroup.GET("/results/:document_id", s.getAnalysisResults)
		analysisGroup.DELETE("/results/:document_id", s.deleteAnalysisResults)
		analysisGroup.GET("/status", s.analysisStatus)
		analysisGroup.GET("/queue", s.analysisQueue)
		analysisGroup.GET("/supported-types", s.supportedAnalysisTypes)
	}

	router.GET("/knowledge-graph", s.knowledgeGraph)
	router.GET("/knowledge-graph/summary", s.knowledgeGraphSummary)
}

func (s *server) health(c *gin.Context) {
	nodes, edges := s.store.Counts()
	status := "ok"
	if !s.store.Healthy() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"graph": gin.H{
			"nodes": nodes,
			"edges": edges,
		},
	})
}

// ----------------------------------------------------------------------------
// Documents
// ----------------------------------------------------------------------------

func (s *server) uploadDocument(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		// single-file clients use the "file" field
		files = form.File["file"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}
	category := c.PostForm("category")

	uploaded := make([]storage.Document, 0, len(files))
	for _, header := range files {
		if header.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large: " + header.Filename})
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file: " + header.Filename})
			return
		}
		content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		file.Close()
		if err != nil || len(content) > maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file: " + header.Filename})
			return
		}

		doc, err := s.docs.Save(header.Filename, header.Header.Get("Content-Type"), content, category)
		if err != nil {
			s.logger.Error("Failed to store upload", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
			return
		}
		uploaded = append(uploaded, doc)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Files uploaded successfully",
		"documents": uploaded,
		"document":  uploaded[0],
	})
}

func (s *server) listDocuments(c *gin.Context) {
	search := c.Query("search")
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	c.JSON(http.StatusOK, s.docs.List(search, skip, limit))
}

func (s *server) getDocument(c *gin.Context) {
	doc, err := s.docs.Get(c.Param("id"))
	if err != nil {
		s.respondNotFoundOrError(c, err, "Document not found")
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *server) downloadDocument(c *gin.Context) {
	doc, err := s.docs.Get(c.Param("id"))
	if err != nil {
		s.respondNotFoundOrError(c, err, "Document not found")
		return
	}
	content, err := s.docs.Content(doc.ID)
	if err != nil {
		s.logger.Error("Failed to read document content", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, content)
}

func (s *server) deleteDocument(c *gin.Context) {
	if err := s.docs.Delete(c.Param("id")); err != nil {
		s.respondNotFoundOrError(c, err, "Document not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}

func (s *server) documentStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.docs.Stats())
}

func (s *server) cleanupDocuments(c *gin.Context) {
	removed, err := s.docs.Cleanup()
	if err != nil {
		s.logger.Error("Document cleanup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// ----------------------------------------------------------------------------
// Training
// ----------------------------------------------------------------------------

func (s *server) trainingCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.catalog.Labels()})
}

func (s *server) trainingQuestions(c *gin.Context) {
	category := c.Param("category")
	questions, err := s.catalog.Questions(category)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"category":  category,
		"questions": questions,
	})
}

type answerRequest struct {
	Category        string   `json:"category"`
	QuestionID      string   `json:"question_id" binding:"required"`
	Question        string   `json:"question" binding:"required"`
	Answer          string   `json:"answer"`
	SelectedOptions []string `json:"selected_options"`
	AnswerType      string   `json:"answer_type"`
}

// answerText joins multiple-choice selections into a single answer string
func (r answerRequest) answerText() string {
	if r.Answer != "" {
		return r.Answer
	}
	return strings.Join(r.SelectedOptions, ", ")
}

func (s *server) submitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}
	text := req.answerText()
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer or selected_options is required"})
		return
	}

	now := time.Now().UTC()
	answerType := req.AnswerType
	if answerType == "" {
		answerType = "text"
	}

	if err := s.answers.Append(training.Answer{
		Category:   req.Category,
		QuestionID: req.QuestionID,
		Question:   req.Question,
		Answer:     text,
		AnswerType: answerType,
		Timestamp:  now,
	}); err != nil {
		s.logger.Error("Failed to record answer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record answer"})
		return
	}

	result, err := s.trainingSyncer.SyncAnswer(graph.TrainingAnswer{
		Category:   req.Category,
		QuestionID: req.QuestionID,
		Question:   req.Question,
		Answer:     text,
		AnswerType: answerType,
		Timestamp:  now,
	})
	if err != nil {
		s.logger.Error("Failed to sync answer into graph", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update knowledge graph"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Answer recorded",
		"sync":    result,
	})
}

func (s *server) submitSession(c *gin.Context) {
	var req struct {
		Category string          `json:"category"`
		Answers  []answerRequest `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Answers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answers must not be empty"})
		return
	}

	now := time.Now().UTC()
	batch := make([]training.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		text := a.answerText()
		if text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every answer needs answer or selected_options"})
			return
		}
		category := a.Category
		if category == "" {
			category = req.Category
		}
		answerType := a.AnswerType
		if answerType == "" {
			answerType = "text"
		}
		batch = append(batch, training.Answer{
			Category:   category,
			QuestionID: a.QuestionID,
			Question:   a.Question,
			Answer:     text,
			AnswerType: answerType,
			Timestamp:  now,
		})
	}

	if err := s.answers.AppendAll(batch); err != nil {
		s.logger.Error("Failed to record answers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record answers"})
		return
	}

	results := make([]graph.AnswerSyncResult, 0, len(batch))
	for _, a := range batch {
		result, err := s.trainingSyncer.SyncAnswer(graph.TrainingAnswer{
			Category:   a.Category,
			QuestionID: a.QuestionID,
			Question:   a.Question,
			Answer:     a.Answer,
			AnswerType: a.AnswerType,
			Timestamp:  a.Timestamp,
		})
		if err != nil {
			s.logger.Error("Failed to sync answer into graph", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update knowledge graph"})
			return
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Training session saved successfully",
		"answers_saved": len(batch),
		"sync":          results,
	})
}

func (s *server) trainingData(c *gin.Context) {
	category := c.Query("category")
	answers := s.answers.All(category)
	c.JSON(http.StatusOK, gin.H{
		"training_data":   answers,
		"total_answers":   len(answers),
		"category_filter": category,
	})
}

func (s *server) trainingStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"answers": s.answers.Stats(),
		"summary": s.queries.GetTrainingSummary(),
	})
}

// ----------------------------------------------------------------------------
// Analysis
// ----------------------------------------------------------------------------

func (s *server) startAnalysis(c *gin.Context) {
	var req struct {
		DocumentID    string   `json:"document_id" binding:"required"`
		AnalysisTypes []string `json:"analysis_types" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := s.docs.Get(req.DocumentID)
	if err != nil {
		s.respondNotFoundOrError(c, err, "Document not found")
		return
	}
	if err := s.runner.ValidateTypes(req.AnalysisTypes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.runner.StartBackground(req.DocumentID, req.AnalysisTypes)

	c.JSON(http.StatusOK, gin.H{
		"message":        "Document analysis started",
		"document_id":    req.DocumentID,
		"filename":       doc.Filename,
		"analysis_types": req.AnalysisTypes,
		"status":         "queued",
	})
}

func (s *server) getAnalysisResults(c *gin.Context) {
	rec, err := s.records.Get(c.Param("document_id"))
	if err != nil {
		s.respondNotFoundOrError(c, err, "No analysis found for this document")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) listAnalysisResults(c *gin.Context) {
	status := c.Query("status")
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	c.JSON(http.StatusOK, s.records.List(status, skip, limit))
}

func (s *server) deleteAnalysisResults(c *gin.Context) {
	if err := s.records.Delete(c.Param("document_id")); err != nil {
		s.respondNotFoundOrError(c, err, "No analysis found for this document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Analysis results deleted successfully"})
}

func (s *server) analysisStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.records.Stats())
}

func (s *server) analysisQueue(c *gin.Context) {
	queue := s.records.Queue()
	c.JSON(http.StatusOK, gin.H{
		"queue":        queue,
		"queue_length": len(queue),
	})
}

func (s *server) supportedAnalysisTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"supported_types": analysis.SupportedTypes})
}

// ----------------------------------------------------------------------------
// Knowledge graph
// ----------------------------------------------------------------------------

func (s *server) knowledgeGraph(c *gin.Context) {
	c.JSON(http.StatusOK, s.queries.GetGraph())
}

func (s *server) knowledgeGraphSummary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"training_summary": s.queries.GetTrainingSummary()})
}

// respondNotFoundOrError maps the typed not-found errors to 404 and anything
// else to 500
func (s *server) respondNotFoundOrError(c *gin.Context, err error, message string) {
	var docNotFound *apperrors.ErrDocumentNotFound
	var analysisNotFound *apperrors.ErrAnalysisNotFound
	if errors.As(err, &docNotFound) || errors.As(err, &analysisNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": message})
		return
	}
	s.logger.Error("Request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
