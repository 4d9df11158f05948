package scenario

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/liveroute/internal/errors"
)

// DefaultStepTimeout bounds how long a step waits for its expected content.
const DefaultStepTimeout = time.Second

// File is a parsed scenario.
type File struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`

	// StepTimeout overrides DefaultStepTimeout.
	StepTimeout time.Duration `yaml:"stepTimeout"`

	Layers map[string]LayerSpec `yaml:"layers"`
	Routes []Node               `yaml:"routes"`
	Steps  []Step               `yaml:"steps"`

	path string
}

// LayerSpec describes a named layer.
type LayerSpec struct {
	// Delay is how long the build takes.
	Delay time.Duration `yaml:"delay"`

	// Fail makes every build fail with this message.
	Fail string `yaml:"fail"`

	// Provides is the value the layer exposes to guards and handlers.
	// It defaults to the layer name.
	Provides string `yaml:"provides"`
}

// Node is either a route (Route set) or a group of routes.
type Node struct {
	Route  string `yaml:"route"`
	Name   string `yaml:"name"`
	Render string `yaml:"render"`
	Fail   string `yaml:"fail"`
	Guard  *Guard `yaml:"guard"`

	Prefix  string   `yaml:"prefix"`
	Layout  string   `yaml:"layout"`
	Catch   string   `yaml:"catch"`
	Provide []string `yaml:"provide"`
	Routes  []Node   `yaml:"routes"`
}

// Guard describes a declarative guard. The first matching rule decides;
// a guard with no rule that applies declines.
type Guard struct {
	// Allow accepts when every listed parameter has one of the given values.
	Allow map[string][]string `yaml:"allow"`

	// Redirect redirects to this location.
	Redirect string `yaml:"redirect"`

	// Require accepts only if every named layer is provided.
	Require []string `yaml:"require"`

	// Delay is how long the guard takes.
	Delay time.Duration `yaml:"delay"`
}

// Step is one navigation action followed by an optional expectation.
type Step struct {
	Navigate string `yaml:"navigate"`
	Redirect string `yaml:"redirect"`
	Back     bool   `yaml:"back"`
	Forward  bool   `yaml:"forward"`

	// Expect is the content that must be current after the action.
	Expect string `yaml:"expect"`
}

// Action describes what the step does.
func (s Step) Action() string {
	switch {
	case s.Navigate != "":
		return "navigate " + s.Navigate
	case s.Redirect != "":
		return "redirect " + s.Redirect
	case s.Back:
		return "back"
	case s.Forward:
		return "forward"
	default:
		return "wait"
	}
}

// Load reads and validates a scenario file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidScenario).WithPath(path).Wrap(err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.FromError(err, errors.CodeInvalidScenario).WithPath(path)
	}
	f.path = path
	return f, nil
}

// Parse decodes and validates a scenario. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, errors.New(errors.CodeInvalidScenario).
			WithDetail("Failed to parse scenario: " + err.Error()).
			WithSuggestion("Check the YAML syntax and key names")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Path returns the file the scenario was loaded from.
func (f *File) Path() string {
	return f.path
}

// Timeout returns the per-step timeout.
func (f *File) Timeout() time.Duration {
	if f.StepTimeout > 0 {
		return f.StepTimeout
	}
	return DefaultStepTimeout
}

// Validate checks the structure of the scenario.
func (f *File) Validate() error {
	if f.Start == "" {
		f.Start = "/"
	}
	if len(f.Routes) == 0 {
		return invalid("scenario has no routes")
	}
	for i := range f.Routes {
		if err := f.validateNode(&f.Routes[i], fmt.Sprintf("routes[%d]", i)); err != nil {
			return err
		}
	}
	for i, s := range f.Steps {
		actions := 0
		for _, set := range []bool{s.Navigate != "", s.Redirect != "", s.Back, s.Forward} {
			if set {
				actions++
			}
		}
		if actions > 1 {
			return invalid(fmt.Sprintf("steps[%d] has more than one action", i))
		}
	}
	return nil
}

func (f *File) validateNode(n *Node, at string) error {
	if n.Route != "" {
		if len(n.Routes) > 0 || n.Prefix != "" || n.Layout != "" || n.Catch != "" || len(n.Provide) > 0 {
			return invalid(at + ": a route cannot have children or wrappers")
		}
		if n.Guard != nil {
			for _, name := range n.Guard.Require {
				if _, ok := f.Layers[name]; !ok {
					return invalid(fmt.Sprintf("%s: guard requires unknown layer %q", at, name))
				}
			}
		}
		return nil
	}

	if len(n.Routes) == 0 {
		return invalid(at + ": a group needs routes")
	}
	if n.Render != "" || n.Fail != "" || n.Guard != nil {
		return invalid(at + ": render, fail and guard belong on routes")
	}
	for _, name := range n.Provide {
		if _, ok := f.Layers[name]; !ok {
			return invalid(fmt.Sprintf("%s: unknown layer %q", at, name))
		}
	}
	for i := range n.Routes {
		if err := f.validateNode(&n.Routes[i], fmt.Sprintf("%s.routes[%d]", at, i)); err != nil {
			return err
		}
	}
	return nil
}

func invalid(detail string) error {
	return errors.New(errors.CodeInvalidScenario).WithDetail(detail)
}
