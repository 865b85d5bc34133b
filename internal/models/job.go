package models

import "time"

type JobStatus string

const (
	JobStatusQueued          JobStatus = "queued"
	JobStatusFetching        JobStatus = "fetching"
	JobStatusAnalyzing       JobStatus = "analyzing"
	JobStatusTransforming    JobStatus = "transforming"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusPartiallyFailed JobStatus = "partially_failed"
	JobStatusFailed          JobStatus = "failed"
)

// statusRank defines the forward-only ordering of job states. Terminal
// states share a rank because a job reaches exactly one of them.
var statusRank = map[JobStatus]int{
	JobStatusQueued:          0,
	JobStatusFetching:        1,
	JobStatusAnalyzing:       2,
	JobStatusTransforming:    3,
	JobStatusCompleted:       4,
	JobStatusPartiallyFailed: 4,
	JobStatusFailed:          4,
}

func (s JobStatus) Rank() int {
	return statusRank[s]
}

func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusPartiallyFailed, JobStatusFailed:
		return true
	}
	return false
}

type PlatformState string

const (
	PlatformPending PlatformState = "pending"
	PlatformRunning PlatformState = "running"
	PlatformDone    PlatformState = "done"
	PlatformFailed  PlatformState = "failed"
)

func (s PlatformState) Terminal() bool {
	return s == PlatformDone || s == PlatformFailed
}

type PlatformResult struct {
	State       PlatformState `json:"state" redis:"state"`
	ArtifactRef string        `json:"artifact_ref,omitempty" redis:"artifact_ref"`
	Error       string        `json:"error,omitempty" redis:"error"`
}

type SourceType string

const (
	SourceUpload SourceType = "upload"
	SourceURL    SourceType = "url"
)

type JobSource struct {
	Type  SourceType `json:"type" validate:"required,oneof=upload url"`
	Value string     `json:"value" validate:"required,lte=2048"`
}

type TransformJob struct {
	JobID       string                    `json:"job_id" redis:"job_id"`
	Source      JobSource                 `json:"source" redis:"source"`
	Platforms   []string                  `json:"platforms" redis:"platforms"`
	Status      JobStatus                 `json:"status" redis:"status"`
	Progress    int                       `json:"progress" redis:"progress"`
	PerPlatform map[string]PlatformResult `json:"per_platform" redis:"per_platform"`
	Degraded    bool                      `json:"degraded" redis:"degraded"`
	Error       string                    `json:"error,omitempty" redis:"error"`
	Version     int64                     `json:"version" redis:"version"`
	CreatedAt   time.Time                 `json:"created_at" redis:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at" redis:"updated_at"`
}

// Clone returns a deep copy so store snapshots never alias live state.
func (j *TransformJob) Clone() *TransformJob {
	cp := *j
	cp.Platforms = append([]string(nil), j.Platforms...)
	cp.PerPlatform = make(map[string]PlatformResult, len(j.PerPlatform))
	for k, v := range j.PerPlatform {
		cp.PerPlatform[k] = v
	}
	return &cp
}

// DoneCount reports how many platform sub-tasks finished successfully.
func (j *TransformJob) DoneCount() int {
	n := 0
	for _, r := range j.PerPlatform {
		if r.State == PlatformDone {
			n++
		}
	}
	return n
}

// SettledCount reports how many platform sub-tasks reached a terminal state.
func (j *TransformJob) SettledCount() int {
	n := 0
	for _, r := range j.PerPlatform {
		if r.State.Terminal() {
			n++
		}
	}
	return n
}

type TransformInput struct {
	Source    JobSource `json:"source" validate:"required"`
	Platforms []string  `json:"platforms" validate:"required,min=1,dive,required,lte=64"`
}

type UploadURLInput struct {
	FileName string `json:"filename" validate:"required,lte=255"`
	FileSize int64  `json:"file_size" validate:"required,gt=0"`
	MimeType string `json:"mime_type" validate:"required,lte=100"`
}
