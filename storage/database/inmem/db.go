package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/autograder/repository/core/assignment"
	"github.com/autograder/repository/core/file"
	"github.com/autograder/repository/core/submission"
)

// DB keeps every table behind one lock so joins see a consistent state.
type DB struct {
	mutex       sync.RWMutex
	assignments map[uuid.UUID]*assignment.Assignment
	submissions map[uuid.UUID]*submission.Submission
	files       map[uuid.UUID]*file.File
}

func Open() *DB {
	return &DB{
		assignments: make(map[uuid.UUID]*assignment.Assignment),
		submissions: make(map[uuid.UUID]*submission.Submission),
		files:       make(map[uuid.UUID]*file.File),
	}
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.assignments = make(map[uuid.UUID]*assignment.Assignment)
	db.submissions = make(map[uuid.UUID]*submission.Submission)
	db.files = make(map[uuid.UUID]*file.File)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
