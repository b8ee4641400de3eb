// Package analytics derives read-only statistical rollups from the content
// store: per-student progress, per-course quiz statistics, per-question
// correctness heatmaps and assignment submission/grade summaries. Nothing in
// here mutates state.
package analytics

import (
	"context"
	"math"

	"github.com/classbridge/classbridge-lms/internal/lms"
)

type Aggregator struct {
	store lms.Store
}

func NewAggregator(store lms.Store) *Aggregator { return &Aggregator{store: store} }

// Progress is one student's standing in one course. AvgScore is nil (not 0)
// when the student has no quiz attempts, so callers can tell "no data" from
// "zero score".
type Progress struct {
	LecturesPct          float64  `json:"lectures_pct"`
	QuizzesPct           float64  `json:"quizzes_pct"`
	AvgScore             *float64 `json:"avg_score"`
	AssignmentsSubmitted int      `json:"assignments_submitted"`
	TotalAssignments     int      `json:"total_assignments"`
}

func (ag *Aggregator) ComputeProgress(ctx context.Context, courseID, studentID string) (Progress, error) {
	if _, err := ag.store.GetCourse(ctx, courseID); err != nil {
		return Progress{}, err
	}

	viewed, totalLectures, err := ag.store.CountLectureViews(ctx, courseID, studentID)
	if err != nil {
		return Progress{}, err
	}
	var p Progress
	if totalLectures > 0 {
		p.LecturesPct = float64(viewed) / float64(totalLectures) * 100
	}

	quizzes, err := ag.store.ListQuizzesWithAttempts(ctx, courseID)
	if err != nil {
		return Progress{}, err
	}
	done := 0
	sum := 0.0
	for _, q := range quizzes {
		for _, a := range q.Attempts {
			if a.StudentID != studentID {
				continue
			}
			done++
			if n := len(q.Questions); n > 0 {
				sum += float64(a.Score) / float64(n) * 100
			}
			break
		}
	}
	if len(quizzes) > 0 {
		p.QuizzesPct = float64(done) / float64(len(quizzes)) * 100
	}
	if done > 0 {
		avg := sum / float64(done)
		p.AvgScore = &avg
	}

	assignments, err := ag.store.ListAssignmentsWithSubmissions(ctx, courseID)
	if err != nil {
		return Progress{}, err
	}
	p.TotalAssignments = len(assignments)
	for _, a := range assignments {
		for _, s := range a.Submissions {
			if s.StudentID == studentID {
				p.AssignmentsSubmitted++
				break
			}
		}
	}
	return p, nil
}

// CourseQuizStats is one course's quiz rollup. AvgScore is the unweighted
// mean of each quiz's own mean of raw attempt scores — an average of
// averages, kept as-is because the report consumers were written against
// this exact shape.
type CourseQuizStats struct {
	CourseID      string  `json:"course_id"`
	CourseTitle   string  `json:"course_title"`
	QuizCount     int     `json:"quiz_count"`
	TotalAttempts int     `json:"total_attempts"`
	AvgScore      float64 `json:"avg_score"`
}

// ComputeQuizStats rolls up quiz statistics per course. courseID "all" (or
// empty) covers every course on the site.
func (ag *Aggregator) ComputeQuizStats(ctx context.Context, courseID string) ([]CourseQuizStats, error) {
	if courseID == "all" {
		courseID = ""
	}
	quizzes, err := ag.store.ListQuizzesWithAttempts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	titles := map[string]string{}
	if courseID == "" {
		courses, err := ag.store.ListCourses(ctx, lms.CourseFilter{})
		if err != nil {
			return nil, err
		}
		for _, c := range courses {
			titles[c.ID] = c.Title
		}
	} else {
		c, err := ag.store.GetCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		titles[c.ID] = c.Title
	}

	type acc struct {
		quizCount, totalAttempts int
		avgSum                   float64
	}
	accs := map[string]*acc{}
	order := []string{}
	for _, q := range quizzes {
		a, ok := accs[q.CourseID]
		if !ok {
			a = &acc{}
			accs[q.CourseID] = a
			order = append(order, q.CourseID)
		}
		avg := 0.0
		if len(q.Attempts) > 0 {
			for _, att := range q.Attempts {
				avg += float64(att.Score)
			}
			avg /= float64(len(q.Attempts))
		}
		a.quizCount++
		a.totalAttempts += len(q.Attempts)
		a.avgSum += avg
	}

	out := []CourseQuizStats{}
	for _, cid := range order {
		a := accs[cid]
		out = append(out, CourseQuizStats{
			CourseID:      cid,
			CourseTitle:   titles[cid],
			QuizCount:     a.quizCount,
			TotalAttempts: a.totalAttempts,
			AvgScore:      a.avgSum / float64(a.quizCount),
		})
	}
	return out, nil
}

// HeatmapCell is one question's correctness rate, in [0,1].
type HeatmapCell struct {
	QuestionNumber int     `json:"question_number"`
	QuestionText   string  `json:"question_text"`
	CorrectRate    float64 `json:"correct_rate"`
}

// ComputeHeatmap returns the per-question correct rate for a quiz. A quiz
// with zero attempts reports 0 for every question rather than dividing by
// zero.
func (ag *Aggregator) ComputeHeatmap(ctx context.Context, quizID string) ([]HeatmapCell, error) {
	quiz, err := ag.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	attempts, err := ag.store.ListAttempts(ctx, quizID)
	if err != nil {
		return nil, err
	}
	total := len(attempts)
	if total == 0 {
		total = 1
	}
	cells := make([]HeatmapCell, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		correct := 0
		for _, a := range attempts {
			if i < len(a.Answers) && a.Answers[i] == q.CorrectOption {
				correct++
			}
		}
		rate := float64(correct) / float64(total)
		cells = append(cells, HeatmapCell{
			QuestionNumber: i + 1,
			QuestionText:   q.Text,
			CorrectRate:    math.Round(rate*100) / 100,
		})
	}
	return cells, nil
}

// WeakestQuestion is the single question with the lowest correct rate across
// a course's quizzes.
type WeakestQuestion struct {
	QuizTitle          string `json:"quiz_title"`
	QuestionNumber     int    `json:"question_number"`
	QuestionText       string `json:"question_text"`
	CorrectRatePercent int    `json:"correct_rate_percent"`
}

// FindWeakest scans every question of every quiz in the course and returns
// the lowest correct-rate question, or nil when the course has no questions.
// Ties keep the first question encountered in (quiz, question) order.
func (ag *Aggregator) FindWeakest(ctx context.Context, courseID string) (*WeakestQuestion, error) {
	if _, err := ag.store.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	quizzes, err := ag.store.ListQuizzesWithAttempts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	var worst *WeakestQuestion
	for _, quiz := range quizzes {
		total := len(quiz.Attempts)
		if total == 0 {
			total = 1
		}
		for i, q := range quiz.Questions {
			correct := 0
			for _, a := range quiz.Attempts {
				if i < len(a.Answers) && a.Answers[i] == q.CorrectOption {
					correct++
				}
			}
			pct := int(math.Round(float64(correct) / float64(total) * 100))
			if worst == nil || pct < worst.CorrectRatePercent {
				worst = &WeakestQuestion{
					QuizTitle:          quiz.Title,
					QuestionNumber:     i + 1,
					QuestionText:       q.Text,
					CorrectRatePercent: pct,
				}
			}
		}
	}
	return worst, nil
}

// AssignmentStats is one assignment's submission and grade rollup. AvgGrade
// is nil until at least one submission has been graded.
type AssignmentStats struct {
	AssignmentID   string   `json:"assignment_id"`
	Title          string   `json:"title"`
	SubmissionRate float64  `json:"submission_rate"`
	AvgGrade       *float64 `json:"avg_grade"`
}

func (ag *Aggregator) ComputeAssignmentStats(ctx context.Context, courseID string) ([]AssignmentStats, error) {
	course, err := ag.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrolled := len(course.StudentIDs)
	assignments, err := ag.store.ListAssignmentsWithSubmissions(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := []AssignmentStats{}
	for _, a := range assignments {
		st := AssignmentStats{AssignmentID: a.ID, Title: a.Title}
		if enrolled > 0 {
			st.SubmissionRate = float64(len(a.Submissions)) / float64(enrolled) * 100
		}
		gradeSum, graded := 0, 0
		for _, s := range a.Submissions {
			if s.Grade != nil {
				gradeSum += *s.Grade
				graded++
			}
		}
		if graded > 0 {
			avg := float64(gradeSum) / float64(graded)
			st.AvgGrade = &avg
		}
		out = append(out, st)
	}
	return out, nil
}

// CourseSubmissionCount is the site-wide per-course submission tally.
type CourseSubmissionCount struct {
	CourseID        string `json:"course_id"`
	CourseTitle     string `json:"course_title"`
	SubmissionCount int    `json:"submission_count"`
}

// SiteAnalytics is the admin dashboard payload.
type SiteAnalytics struct {
	Users           map[lms.Role]int        `json:"users"`
	TotalCourses    int                     `json:"total_courses"`
	QuizStats       []CourseQuizStats       `json:"quiz_stats"`
	AssignmentStats []CourseSubmissionCount `json:"assignment_stats"`
}

func (ag *Aggregator) ComputeSiteAnalytics(ctx context.Context) (SiteAnalytics, error) {
	users, err := ag.store.CountUsersByRole(ctx)
	if err != nil {
		return SiteAnalytics{}, err
	}
	totalCourses, err := ag.store.CountCourses(ctx)
	if err != nil {
		return SiteAnalytics{}, err
	}
	quizStats, err := ag.ComputeQuizStats(ctx, "all")
	if err != nil {
		return SiteAnalytics{}, err
	}

	assignments, err := ag.store.ListAssignmentsWithSubmissions(ctx, "")
	if err != nil {
		return SiteAnalytics{}, err
	}
	titles := map[string]string{}
	courses, err := ag.store.ListCourses(ctx, lms.CourseFilter{})
	if err != nil {
		return SiteAnalytics{}, err
	}
	for _, c := range courses {
		titles[c.ID] = c.Title
	}
	counts := map[string]*CourseSubmissionCount{}
	order := []string{}
	for _, a := range assignments {
		c, ok := counts[a.CourseID]
		if !ok {
			c = &CourseSubmissionCount{CourseID: a.CourseID, CourseTitle: titles[a.CourseID]}
			counts[a.CourseID] = c
			order = append(order, a.CourseID)
		}
		c.SubmissionCount += len(a.Submissions)
	}
	assignStats := []CourseSubmissionCount{}
	for _, cid := range order {
		assignStats = append(assignStats, *counts[cid])
	}

	return SiteAnalytics{
		Users:           users,
		TotalCourses:    totalCourses,
		QuizStats:       quizStats,
		AssignmentStats: assignStats,
	}, nil
}
