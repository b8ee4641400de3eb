package storage_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classbridge/classbridge-lms/internal/storage"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Put("lectures/c1/intro.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	require.Equal(t, "lectures/c1/intro.pdf", key)

	rc, err := s.Get(key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestFSStoreDelete(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Put("assignments/a1/hw.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(key))

	_, err = s.Get(key)
	require.Error(t, err)

	// deleting a missing key is a no-op
	require.NoError(t, s.Delete(key))
}

func TestKeyBuilders(t *testing.T) {
	lk := storage.LectureKey("c1", "my lecture.mp4")
	require.True(t, strings.HasPrefix(lk, "lectures/c1/"))
	require.True(t, strings.HasSuffix(lk, "_my lecture.mp4"))

	ak := storage.AssignmentKey("a1", "../../etc/passwd")
	require.True(t, strings.HasPrefix(ak, "assignments/a1/"))
	require.True(t, strings.HasSuffix(ak, "_passwd"), "path components are stripped from filenames")
}
