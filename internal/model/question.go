package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType is the closed set of gradable question shapes.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiSelect  QuestionType = "MULTI_SELECT"
	QuestionTypeFreeForm     QuestionType = "FREE_FORM"
	QuestionTypeCompound     QuestionType = "COMPOUND"
)

// Question represents a single exam question.
//
// OptionCount carries double duty: for choice types it is the size of the
// letter alphabet (2..10, A..); for free-form it is the number of delimited
// answer parts (<=1 means a single direct comparison).
//
// CorrectSpec is a JSON document whose shape depends on QuestionType; the
// grading package owns its parsing.
type Question struct {
	ID           uuid.UUID       `json:"id"`
	ExamID       uuid.UUID       `json:"exam_id"`
	QuestionText string          `json:"question_text"`
	QuestionType QuestionType    `json:"question_type"`
	OptionCount  int             `json:"option_count"`
	PointValue   float64         `json:"point_value"`
	CorrectSpec  json.RawMessage `json:"correct_spec"`
	OrderNum     int             `json:"order_num"`
}
