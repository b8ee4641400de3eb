package lms

import (
	"context"

	"github.com/google/uuid"
)

// The deadline comparison is strict: a submission at exactly the deadline is
// still accepted; one millisecond later it is not.
func (s *Service) deadlinePassed(a Assignment) bool {
	return s.Now().UnixMilli() > a.Deadline
}

// SubmitAssignment creates the caller's submission. A live submission already
// in place must be edited or deleted instead.
func (s *Service) SubmitAssignment(ctx context.Context, id Identity, assignmentID, filePath string) (Submission, error) {
	a, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	if s.deadlinePassed(a) {
		return Submission{}, E(KindDeadlinePassed, "deadline has passed")
	}
	sub := Submission{
		ID:           uuid.NewString(),
		AssignmentID: assignmentID,
		StudentID:    id.UserID,
		FilePath:     filePath,
		SubmittedAt:  s.Now().UnixMilli(),
	}
	inserted, err := s.store.AddSubmission(ctx, sub)
	if err != nil {
		return Submission{}, err
	}
	if !inserted {
		return Submission{}, E(KindAlreadyExists, "you already have a submission; edit it instead")
	}
	return s.store.GetSubmissionByStudent(ctx, assignmentID, id.UserID)
}

// EditSubmission replaces the file of the caller's existing submission and
// re-stamps submitted_at.
func (s *Service) EditSubmission(ctx context.Context, id Identity, assignmentID, filePath string) (Submission, error) {
	a, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	if s.deadlinePassed(a) {
		return Submission{}, E(KindDeadlinePassed, "deadline has passed")
	}
	if _, err := s.store.GetSubmissionByStudent(ctx, assignmentID, id.UserID); err != nil {
		return Submission{}, err
	}
	return s.store.ReplaceSubmissionFile(ctx, assignmentID, id.UserID, filePath, s.Now())
}

// DeleteSubmission removes the caller's submission, returning the pair to the
// not-submitted state. Only allowed before the deadline.
func (s *Service) DeleteSubmission(ctx context.Context, id Identity, assignmentID string) error {
	a, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if s.deadlinePassed(a) {
		return E(KindDeadlinePassed, "deadline has passed")
	}
	return s.store.DeleteSubmission(ctx, assignmentID, id.UserID)
}

// GradeSubmission sets grade and/or feedback and stamps graded_at. Teachers
// may re-grade; each call re-stamps. Deadline-independent.
func (s *Service) GradeSubmission(ctx context.Context, id Identity, assignmentID, submissionID string, grade *int, feedback *string) (Submission, error) {
	if grade != nil && (*grade < 0 || *grade > 100) {
		return Submission{}, E(KindValidation, "grade must be between 0 and 100")
	}
	if grade == nil && feedback == nil {
		return Submission{}, E(KindValidation, "nothing to update")
	}
	if _, err := s.store.GetAssignment(ctx, assignmentID); err != nil {
		return Submission{}, err
	}
	sub, err := s.store.GradeSubmission(ctx, assignmentID, submissionID, grade, feedback, s.Now())
	if err != nil {
		return Submission{}, err
	}
	s.events.Record(ctx, "SubmissionGraded", submissionID, map[string]any{
		"assignment_id": assignmentID, "submission_id": submissionID, "grader_id": id.UserID,
	})
	return sub, nil
}
