package postgres

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"gorm.io/gorm"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
)

// HistoryRepo implements repository.HistoryRepository
type HistoryRepo struct {
	db *gorm.DB
}

// NewHistoryRepo creates the attempt history repository
func NewHistoryRepo(db *gorm.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// CreateQuizAttempt numbers and stores one quiz attempt in a single transaction.
func (r *HistoryRepo) CreateQuizAttempt(studentID, moduleID uint, rows []entity.StudentQuizHistory) (int, error) {
	var attemptNo int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		next, err := nextAttemptNo(tx, "student_quiz_history", "module_id", studentID, moduleID)
		if err != nil {
			return err
		}
		attemptNo = next

		for i := range rows {
			rows[i].StudentID = studentID
			rows[i].ModuleID = moduleID
			rows[i].AttemptNo = attemptNo
		}
		return tx.Omit("Module").Create(&rows).Error
	})
	if err != nil {
		return 0, translateError(err, "quiz attempt")
	}
	return attemptNo, nil
}

// ListQuizHistory returns every quiz answer row of a student, newest first.
func (r *HistoryRepo) ListQuizHistory(studentID uint) ([]entity.StudentQuizHistory, error) {
	var rows []entity.StudentQuizHistory
	err := r.db.Preload("Module").
		Where("student_id = ?", studentID).
		Order("created_at DESC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, "quiz history")
	}
	return rows, nil
}

// QuizStats aggregates per-attempt percentages of quiz submissions.
func (r *HistoryRepo) QuizStats(filter repository.StatsFilter) (*repository.AttemptStats, error) {
	attempts := r.db.Table("student_quiz_history AS h").
		Select("h.student_id, h.module_id, h.attempt_no, 100.0 * SUM(h.score) / COUNT(*) AS pct").
		Group("h.student_id, h.module_id, h.attempt_no")
	if filter.StudentID != nil {
		attempts = attempts.Where("h.student_id = ?", *filter.StudentID)
	}
	if filter.EducatorID != nil {
		attempts = attempts.Joins("JOIN modules m ON m.id = h.module_id").
			Where("m.educator_id = ?", *filter.EducatorID)
	}

	var stats repository.AttemptStats
	err := r.db.Table("(?) AS t", attempts).
		Select("COUNT(*) AS attempts, COALESCE(AVG(t.pct), 0) AS average_percentage").
		Scan(&stats).Error
	if err != nil {
		return nil, translateError(err, "quiz stats")
	}
	return &stats, nil
}

// CreateVoiceAttempt stores one read-aloud attempt.
func (r *HistoryRepo) CreateVoiceAttempt(row *entity.VoiceExercisesHistory) error {
	return translateError(r.db.Omit("VoiceExercise").Create(row).Error, "voice attempt")
}

// ListVoiceHistory returns a student's read-aloud attempts, newest first.
func (r *HistoryRepo) ListVoiceHistory(studentID uint) ([]entity.VoiceExercisesHistory, error) {
	var rows []entity.VoiceExercisesHistory
	err := r.db.Preload("VoiceExercise").
		Where("student_id = ?", studentID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, "voice history")
	}
	return rows, nil
}

// VoiceStats counts read-aloud attempts and averages their accuracy.
func (r *HistoryRepo) VoiceStats(filter repository.StatsFilter) (*repository.VoiceStats, error) {
	query := r.db.Table("voice_exercises_history AS h").
		Select("COUNT(*) AS attempts, COALESCE(AVG(h.accuracy), 0) AS average_accuracy")
	if filter.StudentID != nil {
		query = query.Where("h.student_id = ?", *filter.StudentID)
	}
	if filter.EducatorID != nil {
		query = query.Joins("JOIN voice_exercises v ON v.id = h.voice_exercise_id").
			Where("v.educator_id = ?", *filter.EducatorID)
	}

	var stats repository.VoiceStats
	if err := query.Scan(&stats).Error; err != nil {
		return nil, translateError(err, "voice stats")
	}
	return &stats, nil
}

// CreateComprehensionAttempt numbers and stores one comprehension attempt in a single transaction.
func (r *HistoryRepo) CreateComprehensionAttempt(studentID, voiceExerciseID uint, rows []entity.ComprehensionHistory) (int, error) {
	var attemptNo int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		next, err := nextAttemptNo(tx, "comprehension_history", "voice_exercise_id", studentID, voiceExerciseID)
		if err != nil {
			return err
		}
		attemptNo = next

		for i := range rows {
			rows[i].StudentID = studentID
			rows[i].VoiceExerciseID = voiceExerciseID
			rows[i].AttemptNo = attemptNo
		}
		return tx.Omit("VoiceExercise").Create(&rows).Error
	})
	if err != nil {
		return 0, translateError(err, "comprehension attempt")
	}
	return attemptNo, nil
}

// ListComprehensionHistory returns every comprehension answer row of a student, newest first.
func (r *HistoryRepo) ListComprehensionHistory(studentID uint) ([]entity.ComprehensionHistory, error) {
	var rows []entity.ComprehensionHistory
	err := r.db.Preload("VoiceExercise").
		Where("student_id = ?", studentID).
		Order("created_at DESC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, "comprehension history")
	}
	return rows, nil
}

// nextAttemptNo serializes concurrent submissions of the same student and
// parent with a transaction-scoped advisory lock, then returns MAX+1.
func nextAttemptNo(tx *gorm.DB, table, parentColumn string, studentID, parentID uint) (int, error) {
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", attemptLockKey(table, studentID, parentID)).Error; err != nil {
		return 0, fmt.Errorf("acquire attempt lock: %w", err)
	}

	var current int
	err := tx.Table(table).
		Select("COALESCE(MAX(attempt_no), 0)").
		Where("student_id = ? AND "+parentColumn+" = ?", studentID, parentID).
		Scan(&current).Error
	if err != nil {
		return 0, fmt.Errorf("read attempt number: %w", err)
	}
	return current + 1, nil
}

// attemptLockKey hashes the full IDs into the 64-bit advisory lock space.
// A collision only makes two unrelated submissions wait on each other.
func attemptLockKey(table string, studentID, parentID uint) int64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(studentID))
	binary.BigEndian.PutUint64(buf[8:], uint64(parentID))

	h := fnv.New64a()
	h.Write([]byte(table))
	h.Write([]byte{0})
	h.Write(buf[:])
	return int64(h.Sum64())
}
