package model

// Program is the top of the curriculum hierarchy (e.g. "Early Literacy").
type Program struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SubProgram is a subject track within a program (e.g. "Phonics").
type SubProgram struct {
	ID        int    `json:"id"`
	ProgramID int    `json:"program_id"`
	Name      string `json:"name"`
}

// CurriculumLevel is one rung in the ordered difficulty ladder of a subprogram.
// LevelNumber is unique within its subprogram; the sequence may have gaps,
// adjacency is by the next existing value.
type CurriculumLevel struct {
	ID           int    `json:"id"`
	SubProgramID int    `json:"sub_program_id"`
	LevelNumber  int    `json:"level_number"`
	Name         string `json:"name"`
}

// RankBucket is a coarse academic percentile band used as placement input.
type RankBucket string

const (
	RankTop10   RankBucket = "TOP_10"
	RankTop20   RankBucket = "TOP_20"
	RankTop30   RankBucket = "TOP_30"
	RankTop50   RankBucket = "TOP_50"
	RankBelow50 RankBucket = "BELOW_50"
)

// Valid reports whether the bucket is one of the known percentile bands.
func (b RankBucket) Valid() bool {
	switch b {
	case RankTop10, RankTop20, RankTop30, RankTop50, RankBelow50:
		return true
	}
	return false
}

// Direction selects which neighbour of a level an adjustment targets.
type Direction string

const (
	DirectionEasier Direction = "easier"
	DirectionHarder Direction = "harder"
)

// Valid reports whether the direction is easier or harder.
func (d Direction) Valid() bool {
	return d == DirectionEasier || d == DirectionHarder
}
