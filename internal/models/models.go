package models

import "time"

type InsightStatus string

const (
	InsightProcessing InsightStatus = "processing"
	InsightCompleted  InsightStatus = "completed"
	InsightError      InsightStatus = "error"
)

// Terminal reports whether no further transition is allowed.
func (s InsightStatus) Terminal() bool {
	return s == InsightCompleted || s == InsightError
}

// Article is one input record as supplied by the caller.
type Article struct {
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract,omitempty"`
	PubDate   string   `json:"pubDate,omitempty"`
	Mutations []string `json:"mutations,omitempty"`
	Diseases  []string `json:"diseases,omitempty"`
	SourceID  string   `json:"sourceId,omitempty"`
}

type AnalyzedArticle struct {
	Ordinal     int    `json:"ordinal"`
	Title       string `json:"title"`
	Year        string `json:"year"`
	SourceID    string `json:"sourceId,omitempty"`
	HasFullText bool   `json:"hasFullText"`
}

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type InsightJob struct {
	ID               string            `json:"id"`
	Query            string            `json:"query,omitempty"`
	FilterSummary    string            `json:"filterSummary,omitempty"`
	Status           InsightStatus     `json:"status"`
	Summary          string            `json:"summary"`
	ArticleCount     int               `json:"articleCount"`
	AnalyzedArticles []AnalyzedArticle `json:"analyzedArticles"`
	ModelUsed        string            `json:"modelUsed,omitempty"`
	FullTextCount    int               `json:"fullTextCount"`
	Error            *string           `json:"error"`
	ChatHistory      []ChatMessage     `json:"chatHistory"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`
}

// InsightUpdate is a partial update. Nil fields are left untouched.
type InsightUpdate struct {
	Status           *InsightStatus
	Summary          *string
	ModelUsed        *string
	FullTextCount    *int
	AnalyzedArticles []AnalyzedArticle
	Error            *string
}

// Apply merges u into job and stamps the timestamps.
func (u InsightUpdate) Apply(job *InsightJob, now time.Time) {
	if u.Status != nil {
		job.Status = *u.Status
		if job.Status.Terminal() {
			t := now
			job.CompletedAt = &t
		}
	}
	if u.Summary != nil {
		job.Summary = *u.Summary
	}
	if u.ModelUsed != nil {
		job.ModelUsed = *u.ModelUsed
	}
	if u.FullTextCount != nil {
		job.FullTextCount = *u.FullTextCount
	}
	if u.AnalyzedArticles != nil {
		job.AnalyzedArticles = append([]AnalyzedArticle(nil), u.AnalyzedArticles...)
	}
	if u.Error != nil {
		msg := *u.Error
		job.Error = &msg
	}
	job.UpdatedAt = now
}

// Clone returns a deep copy safe to hand across goroutines.
func (j InsightJob) Clone() InsightJob {
	out := j
	out.AnalyzedArticles = append([]AnalyzedArticle(nil), j.AnalyzedArticles...)
	out.ChatHistory = append([]ChatMessage(nil), j.ChatHistory...)
	if j.Error != nil {
		msg := *j.Error
		out.Error = &msg
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if out.AnalyzedArticles == nil {
		out.AnalyzedArticles = []AnalyzedArticle{}
	}
	if out.ChatHistory == nil {
		out.ChatHistory = []ChatMessage{}
	}
	return out
}

// DocumentChunk is one stored piece of a full-text document.
type DocumentChunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId,omitempty"`
	ChunkIndex int    `json:"chunkIndex"`
	Content    string `json:"content"`
}

// ChunkBlob is the stored per-document chunk payload.
type ChunkBlob struct {
	DocumentID string          `json:"documentId"`
	Chunks     []DocumentChunk `json:"chunks"`
}
