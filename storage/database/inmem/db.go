package inmemdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/credential"
	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

// DB is a process-local store. A single lock guards every table so that uniqueness checks and writes are atomic.
type DB struct {
	mutex       sync.RWMutex
	people      map[string]*person.Person
	teachers    map[string]*teacher.Teacher
	credentials map[string]*credential.Credential
	groups      map[string]*group.ObservationGroup
	schedules   map[string]*schedule.Schedule
}

func NewDB() *DB {
	return &DB{
		people:      make(map[string]*person.Person),
		teachers:    make(map[string]*teacher.Teacher),
		credentials: make(map[string]*credential.Credential),
		groups:      make(map[string]*group.ObservationGroup),
		schedules:   make(map[string]*schedule.Schedule),
	}
}

// comparator compares two items on a single field: <0, 0 or >0.
type comparator[T any] func(a, b T) int

// sortItems orders items following orderings. Unknown fields are ignored; fallback breaks ties.
func sortItems[T any](items []T, orderings []core.DBOrdering, fields map[string]comparator[T], fallback comparator[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range orderings {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(items[i], items[j]); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return fallback(items[i], items[j]) < 0
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
