package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeDeckGeneration    JobType = "deck_generation"
	JobTypeDocumentIngestion JobType = "document_ingestion"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// MarkAsProcessing sets the job to processing state
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkAsCompleted sets the job to completed state
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed sets the job to failed state with an error message
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMsg = errorMsg
	j.RetryCount++
	j.UpdatedAt = time.Now()
}

// MarkAsRetrying sets the job to retrying state
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// IsRetryable reports whether the job has retries left
func (j *Job) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

// DeckGenerationJobPayload contains the payload for deck generation jobs
type DeckGenerationJobPayload struct {
	JobID   uint   `json:"job_id"`
	JobUUID string `json:"job_uuid"`
	UserID  uint   `json:"user_id"`
}

// ToMap converts the payload to a map for storage
func (p DeckGenerationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"job_id":   p.JobID,
		"job_uuid": p.JobUUID,
		"user_id":  p.UserID,
	}
}

// DeckGenerationJobPayloadFromMap creates a payload from a map
func DeckGenerationJobPayloadFromMap(data map[string]interface{}) (*DeckGenerationJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload DeckGenerationJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// DocumentIngestionJobPayload contains the payload for document ingestion jobs
type DocumentIngestionJobPayload struct {
	UserID   uint   `json:"user_id"`
	Provider string `json:"provider"`
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

// ToMap converts the payload to a map for storage
func (p DocumentIngestionJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   p.UserID,
		"provider":  p.Provider,
		"file_id":   p.FileID,
		"file_name": p.FileName,
	}
}

// DocumentIngestionJobPayloadFromMap creates a payload from a map
func DocumentIngestionJobPayloadFromMap(data map[string]interface{}) (*DocumentIngestionJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload DocumentIngestionJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}
