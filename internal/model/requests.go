package model

// MatchExamRequest is the payload for the initial placement lookup.
type MatchExamRequest struct {
	Grade      int     `json:"grade" binding:"required,min=1,max=12"`
	RankBucket string  `json:"rank_bucket" binding:"required"`
	TermTag    *string `json:"term_tag" binding:"omitempty,max=40"`
}

// CreateSessionRequest is the payload for starting a new attempt.
type CreateSessionRequest struct {
	StudentRef string `json:"student_ref" binding:"required,min=1,max=100"`
	ExamID     string `json:"exam_id" binding:"required,uuid"`
}

// RecordAnswerRequest is the payload for storing one answer.
type RecordAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	RawValue   string `json:"raw_value" binding:"max=10000"`
}

// AutoSaveRequest carries a partial answer map keyed by question ID. Merging
// is per-question overwrite, never a full-session replace.
type AutoSaveRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// AdjustRequest is the payload for applying a difficulty adjustment.
type AdjustRequest struct {
	Direction string `json:"direction" binding:"required,oneof=easier harder"`
}

// AppendNoteRequest is the payload for the external audit-note hook.
type AppendNoteRequest struct {
	Note string `json:"note" binding:"required,min=1,max=2000"`
}
