package form

import (
	"sync"

	"xplore/internal/model"
)

// State is what the user entered for one endpoint. It lives as long as the
// session and is never written to disk.
type State struct {
	values      map[Key]model.Value
	Headers     []model.HeaderRow
	Mode        model.BodyMode
	RawBody     string
	ContentType string
	// Partition overrides the session partition for this endpoint when set.
	Partition string

	rawTouched bool
	// chosen is the mode to return to once a layout stops forcing one.
	chosen model.BodyMode
	forced bool
}

func newState() *State {
	return &State{
		values:  map[Key]model.Value{},
		Headers: model.DefaultHeaderRows(),
	}
}

func (s *State) Value(k Key) model.Value {
	return s.values[k]
}

// Set stores v; an unset value clears the field.
func (s *State) Set(k Key, v model.Value) {
	if !v.IsSet() {
		delete(s.values, k)
		return
	}
	s.values[k] = v
}

// SetRawBody replaces the raw body text and stops it from being re-seeded.
func (s *State) SetRawBody(text string) {
	s.RawBody = text
	s.rawTouched = true
}

// Seed pre-fills the raw body with the default for the current content type
// unless the user already edited it. A layout that forces raw input overrides
// the mode only while it is selected.
func (s *State) Seed(body Body) {
	if s.ContentType == "" {
		s.ContentType = body.ContentType
	}
	if mode, forced := body.ForcedMode(); forced {
		if !s.forced {
			s.chosen = s.Mode
			s.forced = true
		}
		s.Mode = mode
	} else if s.forced {
		s.Mode = s.chosen
		s.forced = false
	}
	if !s.rawTouched {
		s.RawBody = body.DefaultRaw
	}
}

// Collect gathers the path, query and body values in field order.
func (s *State) Collect(fs FieldSet) (path map[string]model.Value, query []model.NamedValue, body map[string]model.Value) {
	path = map[string]model.Value{}
	for _, f := range fs.PathFields {
		path[f.Name] = s.values[f.Key]
	}
	for _, f := range fs.QueryFields {
		query = append(query, model.NamedValue{Name: f.Name, Value: s.values[f.Key]})
	}
	body = map[string]model.Value{}
	for _, f := range fs.BodyFields {
		if v, ok := s.values[f.Key]; ok {
			body[f.Name] = v
		}
	}
	return path, query, body
}

// AddHeader appends an empty, disabled row.
func (s *State) AddHeader() {
	s.Headers = append(s.Headers, model.HeaderRow{})
}

// RemoveHeader drops row i. The partition row cannot be removed.
func (s *State) RemoveHeader(i int) bool {
	if i < 0 || i >= len(s.Headers) || s.Headers[i].IsPartition() {
		return false
	}
	s.Headers = append(s.Headers[:i], s.Headers[i+1:]...)
	return true
}

// Store keeps one State per endpoint, created on first access.
type Store struct {
	mu     sync.Mutex
	states map[string]*State
}

func NewStore() *Store {
	return &Store{states: map[string]*State{}}
}

func (s *Store) For(ep model.Endpoint) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[ep.ID()]
	if !ok {
		st = newState()
		s.states[ep.ID()] = st
	}
	return st
}

// Reset drops every state, used when the active service changes.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = map[string]*State{}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
