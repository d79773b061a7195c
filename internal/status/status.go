// Package status tracks the load and save lifecycle of one named entity.
//
// A Reducer is built once from the entity name and the event types that
// mark a load or save request, response and failure. Reduce is pure: it
// returns a new State and never mutates its input.
//
//	r, err := status.Build(status.Config{
//	    Name: "movie",
//	    Load: status.LoadTypes("movie"),
//	    Save: status.SaveTypes("movie"),
//	})
//	s := r.Initial()
//	s = r.Reduce(s, status.Event{Type: "REQUEST_LOAD_MOVIE"})
package status

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/formsync/internal/value"
)

var (
	// ErrNameRequired is returned by Build when Config.Name is empty.
	ErrNameRequired = errors.New("status: name is required")

	// ErrNoTypes is returned by Build when neither load nor save types are set.
	ErrNoTypes = errors.New("status: load or save types are required")
)

// State is the lifecycle of one entity.
type State struct {
	Data    value.Value `json:"data"`
	Loading bool        `json:"loading"`
	Saving  bool        `json:"saving"`
}

// Event is one lifecycle event. Payload carries the entity data on a
// response and is ignored otherwise.
type Event struct {
	Type    string
	Payload value.Value
}

// Types names the events of one operation. An empty name never matches.
type Types struct {
	Request  string
	Response string
	Error    string
}

func (t *Types) empty() bool {
	return t == nil || (t.Request == "" && t.Response == "" && t.Error == "")
}

// LoadTypes returns the conventional load event types for name:
// REQUEST_LOAD_<NAME>, RESPONSE_LOAD_<NAME> and ERROR_LOAD_<NAME>.
func LoadTypes(name string) *Types {
	return conventional("LOAD", name)
}

// SaveTypes returns the conventional save event types for name.
func SaveTypes(name string) *Types {
	return conventional("SAVE", name)
}

func conventional(op, name string) *Types {
	upper := strings.ToUpper(name)
	return &Types{
		Request:  fmt.Sprintf("REQUEST_%s_%s", op, upper),
		Response: fmt.Sprintf("RESPONSE_%s_%s", op, upper),
		Error:    fmt.Sprintf("ERROR_%s_%s", op, upper),
	}
}

// Config describes a Reducer.
type Config struct {
	// Name identifies the entity. Required.
	Name string

	// DefaultData is the Data of the initial State. Nil means null.
	DefaultData value.Value

	// Load and Save name the events of each operation. At least one is required.
	Load *Types
	Save *Types
}

// Reducer applies lifecycle events to a State.
type Reducer struct {
	name        string
	defaultData value.Value
	load        Types
	save        Types
}

// Build validates cfg and returns its Reducer.
func Build(cfg Config) (*Reducer, error) {
	if cfg.Name == "" {
		return nil, ErrNameRequired
	}
	if cfg.Load.empty() && cfg.Save.empty() {
		return nil, fmt.Errorf("%w (entity %q)", ErrNoTypes, cfg.Name)
	}
	r := &Reducer{
		name:        cfg.Name,
		defaultData: value.OrNull(cfg.DefaultData),
	}
	if cfg.Load != nil {
		r.load = *cfg.Load
	}
	if cfg.Save != nil {
		r.save = *cfg.Save
	}
	return r, nil
}

// Name returns the entity name.
func (r *Reducer) Name() string {
	return r.name
}

// Initial returns the State before any event.
func (r *Reducer) Initial() State {
	return State{Data: r.defaultData}
}

// Handles reports whether typ is one of the reducer's event types.
func (r *Reducer) Handles(typ string) bool {
	if typ == "" {
		return false
	}
	for _, t := range []string{
		r.load.Request, r.load.Response, r.load.Error,
		r.save.Request, r.save.Response, r.save.Error,
	} {
		if t == typ {
			return true
		}
	}
	return false
}

// Reduce returns the State after e. Unknown event types return s unchanged.
func (r *Reducer) Reduce(s State, e Event) State {
	if e.Type == "" {
		return s
	}
	switch e.Type {
	case r.load.Request:
		s.Loading = true
	case r.save.Request:
		s.Saving = true
	case r.load.Response:
		s.Data = value.OrNull(e.Payload)
		s.Loading = false
	case r.save.Response:
		s.Data = value.OrNull(e.Payload)
		s.Saving = false
	case r.load.Error:
		s.Loading = false
	case r.save.Error:
		s.Saving = false
	}
	return s
}
