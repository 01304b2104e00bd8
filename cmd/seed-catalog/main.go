package main

import (
	"context"
	"fmt"
	"time"

	"github.com/edustep/placement-backend/internal/config"
	"github.com/edustep/placement-backend/internal/database"
	"github.com/edustep/placement-backend/internal/logger"
	"github.com/edustep/placement-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Seeds a small demo catalog: one program, one subprogram with a five level
// ladder, a placement rule for grade 5 / TOP_20, and an active exam holding
// one question of each type. Safe to run more than once.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Println("=== Seeding placement catalog ===")

	var programID int
	err = pool.QueryRow(ctx,
		`INSERT INTO programs (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, "Early Literacy").Scan(&programID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed program")
	}

	var subProgramID int
	err = pool.QueryRow(ctx,
		`INSERT INTO sub_programs (program_id, name) VALUES ($1, $2)
		 ON CONFLICT (program_id, name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, programID, "Phonics").Scan(&subProgramID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed subprogram")
	}

	levelIDs := make(map[int]int, 5)
	for n := 1; n <= 5; n++ {
		var id int
		err = pool.QueryRow(ctx,
			`INSERT INTO curriculum_levels (sub_program_id, level_number, name)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (sub_program_id, level_number) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			subProgramID, n, fmt.Sprintf("Phonics Level %d", n)).Scan(&id)
		if err != nil {
			log.Fatal().Err(err).Int("level", n).Msg("Failed to seed level")
		}
		levelIDs[n] = id
	}
	fmt.Printf("Seeded %d levels for subprogram %d\n", len(levelIDs), subProgramID)

	// Grade 5, top 20 percent, any term -> level 3.
	var ruleCount int
	err = pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM placement_rules
		 WHERE grade_min = 5 AND grade_max = 5 AND rank_bucket = $1 AND level_id = $2`,
		model.RankTop20, levelIDs[3]).Scan(&ruleCount)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to check placement rule")
	}
	if ruleCount == 0 {
		_, err = pool.Exec(ctx,
			`INSERT INTO placement_rules (grade_min, grade_max, rank_bucket, term_tag, level_id)
			 VALUES (5, 5, $1, NULL, $2)`, model.RankTop20, levelIDs[3])
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed placement rule")
		}
		fmt.Println("Seeded placement rule: grade 5 / TOP_20 -> level 3")
	}

	examID, err := seedExam(ctx, pool, levelIDs[3])
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed exam")
	}

	fmt.Printf("Catalog ready. Active exam: %s\n", examID)
}

func seedExam(ctx context.Context, pool *pgxpool.Pool, levelID int) (string, error) {
	var examID string
	err := pool.QueryRow(ctx,
		`SELECT id FROM exams WHERE level_id = $1 AND status = $2
		 ORDER BY created_at DESC LIMIT 1`, levelID, model.ExamStatusActive).Scan(&examID)
	if err == nil {
		fmt.Println("Active exam already present, skipping")
		return examID, nil
	}
	if err != pgx.ErrNoRows {
		return "", err
	}

	err = pool.QueryRow(ctx,
		`INSERT INTO exams (level_id, title, status, duration_minutes, question_count, score_precision)
		 VALUES ($1, $2, $3, 30, 4, 2)
		 RETURNING id`,
		levelID, "Phonics Level 3 Placement", model.ExamStatusActive).Scan(&examID)
	if err != nil {
		return "", err
	}

	questions := []struct {
		qType       model.QuestionType
		text        string
		optionCount int
		points      float64
		spec        string
	}{
		{model.QuestionTypeSingleChoice, "Which word begins with the /sh/ sound?", 4, 10, `{"answer":"B"}`},
		{model.QuestionTypeMultiSelect, "Select every word that rhymes with 'cat'.", 5, 10, `{"answers":["A","C","D"]}`},
		{model.QuestionTypeFreeForm, "Name the three vowel sounds you hear: pot, pit, pat.", 3, 15, `{"answer":"o|i|a"}`},
		{model.QuestionTypeCompound, "Pick the silent letter, then type the full word.", 0, 15,
			`{"components":[{"kind":"mcq","answer":"C","option_count":4},{"kind":"input","answer":"knight"}]}`},
	}
	for i, q := range questions {
		_, err = pool.Exec(ctx,
			`INSERT INTO questions (exam_id, question_text, question_type, option_count, point_value, correct_spec, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
			examID, q.text, q.qType, q.optionCount, q.points, q.spec, i+1)
		if err != nil {
			return "", err
		}
	}

	fmt.Println("Seeded active exam with 4 questions")
	return examID, nil
}
