package lms

import "context"

// Score counts the positions where the selected option matches the question's
// correct option. No partial credit, no negative marking. Out-of-range
// indices (including the Unanswered sentinel) simply score as incorrect.
func Score(questions []Question, answers []int) int {
	score := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectOption {
			score++
		}
	}
	return score
}

// RecordView marks the lecture as viewed by the caller. Idempotent: a second
// call for the same (lecture, student) pair is a no-op.
func (s *Service) RecordView(ctx context.Context, id Identity, lectureID string) error {
	if _, err := s.store.GetLecture(ctx, lectureID); err != nil {
		return err
	}
	_, err := s.store.AddView(ctx, View{
		LectureID: lectureID,
		StudentID: id.UserID,
		ViewedAt:  s.Now().UnixMilli(),
	})
	return err
}

// SubmitAttempt accepts or rejects a quiz attempt and computes its score.
// Preconditions, in order: quiz exists; its parent lecture exists (a dangling
// lecture reference is a data-integrity defect, recorded for operators); the
// student has viewed the lecture; the student has not attempted this quiz.
func (s *Service) SubmitAttempt(ctx context.Context, id Identity, quizID string, answers []int) (AttemptResult, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return AttemptResult{}, err
	}
	if len(answers) != len(quiz.Questions) {
		return AttemptResult{}, Errf(KindValidation, "expected %d answers, got %d", len(quiz.Questions), len(answers))
	}

	if _, err := s.store.GetLecture(ctx, quiz.LectureID); err != nil {
		if IsKind(err, KindNotFound) {
			s.events.Record(ctx, "InvariantViolation", quizID, map[string]string{
				"quiz_id":    quizID,
				"lecture_id": quiz.LectureID,
				"detail":     "quiz references a missing lecture",
			})
			return AttemptResult{}, E(KindInvariantViolation, "quiz is misconfigured")
		}
		return AttemptResult{}, err
	}

	viewed, err := s.store.HasViewed(ctx, quiz.LectureID, id.UserID)
	if err != nil {
		return AttemptResult{}, err
	}
	if !viewed {
		return AttemptResult{}, E(KindPrerequisiteNotMet, "you must view the lecture before attempting")
	}

	if _, err := s.store.GetAttempt(ctx, quizID, id.UserID); err == nil {
		return AttemptResult{}, E(KindAlreadyAttempted, "you have already submitted this quiz")
	} else if !IsKind(err, KindNotFound) {
		return AttemptResult{}, err
	}

	score := Score(quiz.Questions, answers)
	inserted, err := s.store.AddAttempt(ctx, Attempt{
		QuizID:    quizID,
		StudentID: id.UserID,
		Answers:   answers,
		Score:     score,
		CreatedAt: s.Now().UnixMilli(),
	})
	if err != nil {
		return AttemptResult{}, err
	}
	if !inserted {
		// lost a concurrent race; the other attempt is the one that counts
		return AttemptResult{}, E(KindAlreadyAttempted, "you have already submitted this quiz")
	}

	s.events.Record(ctx, "AttemptSubmitted", quizID, map[string]any{
		"quiz_id": quizID, "student_id": id.UserID, "score": score, "total": len(quiz.Questions),
	})
	return AttemptResult{Score: score, Total: len(quiz.Questions)}, nil
}
