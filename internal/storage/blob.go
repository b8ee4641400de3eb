// Package storage holds lecture media, assignment templates and student
// submission files. Keys are namespaced paths like
// lectures/<courseID>/<filename> or assignments/<assignmentID>/<filename>.
package storage

import (
	"fmt"
	"io"
	"path"
	"time"
)

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
	SignedURL(key string) (string, error) // fs returns "file://..." for dev
}

// LectureKey builds the storage key for a lecture upload. The timestamp
// prefix keeps re-uploads of the same filename distinct.
func LectureKey(courseID, filename string) string {
	return path.Join("lectures", courseID, stamped(filename))
}

// AssignmentKey builds the storage key for an assignment template or a
// student submission.
func AssignmentKey(assignmentID, filename string) string {
	return path.Join("assignments", assignmentID, stamped(filename))
}

func stamped(filename string) string {
	return fmt.Sprintf("%d_%s", time.Now().UnixMilli(), path.Base(filename))
}
