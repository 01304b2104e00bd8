package repository

import (
	"context"
	"errors"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CurriculumRepository handles read access to the curriculum catalog.
type CurriculumRepository struct {
	pool *pgxpool.Pool
}

// NewCurriculumRepository creates a new CurriculumRepository.
func NewCurriculumRepository(pool *pgxpool.Pool) *CurriculumRepository {
	return &CurriculumRepository{pool: pool}
}

// LevelByID retrieves a curriculum level. Returns (nil, nil) when absent.
func (r *CurriculumRepository) LevelByID(ctx context.Context, id int) (*model.CurriculumLevel, error) {
	l := &model.CurriculumLevel{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, sub_program_id, level_number, name
		 FROM curriculum_levels
		 WHERE id = $1`, id,
	).Scan(&l.ID, &l.SubProgramID, &l.LevelNumber, &l.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// LevelsInSubProgram retrieves all levels of a subprogram ordered by
// level_number ascending.
func (r *CurriculumRepository) LevelsInSubProgram(ctx context.Context, subProgramID int) ([]model.CurriculumLevel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, sub_program_id, level_number, name
		 FROM curriculum_levels
		 WHERE sub_program_id = $1
		 ORDER BY level_number`, subProgramID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []model.CurriculumLevel
	for rows.Next() {
		var l model.CurriculumLevel
		if err := rows.Scan(&l.ID, &l.SubProgramID, &l.LevelNumber, &l.Name); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// AdjacentLevel finds the next existing level below or above levelNumber
// within the same subprogram. Returns (nil, nil) at a boundary — a legitimate
// "cannot adjust further" outcome, not an error.
func (r *CurriculumRepository) AdjacentLevel(ctx context.Context, subProgramID, levelNumber int, direction model.Direction) (*model.CurriculumLevel, error) {
	query := `SELECT id, sub_program_id, level_number, name
		 FROM curriculum_levels
		 WHERE sub_program_id = $1 AND level_number > $2
		 ORDER BY level_number ASC
		 LIMIT 1`
	if direction == model.DirectionEasier {
		query = `SELECT id, sub_program_id, level_number, name
		 FROM curriculum_levels
		 WHERE sub_program_id = $1 AND level_number < $2
		 ORDER BY level_number DESC
		 LIMIT 1`
	}

	l := &model.CurriculumLevel{}
	err := r.pool.QueryRow(ctx, query, subProgramID, levelNumber).
		Scan(&l.ID, &l.SubProgramID, &l.LevelNumber, &l.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}
