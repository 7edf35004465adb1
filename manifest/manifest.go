// Package manifest handles stacklog.toml probe configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/stacklog/pkg/bytecode"
	"github.com/chazu/stacklog/pkg/instrument"
)

// FileName is the manifest file Load and FindAndLoad look for.
const FileName = "stacklog.toml"

// ErrNoProbes is returned by Validate for a manifest that configures no
// probes at all.
var ErrNoProbes = errors.New("manifest declares no probes")

// Manifest represents a stacklog.toml configuration.
type Manifest struct {
	Sink   Sink    `toml:"sink" json:"sink"`
	Probes []Probe `toml:"probe" json:"probe,omitempty"`
	Output Output  `toml:"output" json:"output"`

	// Dir is the directory containing the stacklog.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Sink names the logging sink class and, optionally, the static methods it
// declares. When Methods is empty the sink is assumed to implement exactly
// the logging contract.
type Sink struct {
	Owner   string              `toml:"owner" json:"owner"`
	Action  string              `toml:"action" json:"action,omitempty"`
	Methods []instrument.Method `toml:"method" json:"method,omitempty"`
}

// Probe is one instrumentation point. Which fields apply depends on Event:
//
//	entry      method
//	exit       method, exit
//	argument   method, index, type
//	return     method, type
//	field      method, name, type, action
//	array      method, action
//	exception  method
//	message    method, text
type Probe struct {
	Event  string `toml:"event" json:"event"`
	Method string `toml:"method" json:"method,omitempty"`
	Exit   string `toml:"exit" json:"exit,omitempty"`
	Index  int    `toml:"index" json:"index"`
	Name   string `toml:"name" json:"name,omitempty"`
	Type   string `toml:"type" json:"type,omitempty"`
	Action string `toml:"action" json:"action,omitempty"`
	Text   string `toml:"text" json:"text,omitempty"`
}

// Output configures what the tool writes besides the disassembly.
type Output struct {
	Listing string `toml:"listing" json:"listing,omitempty"`
}

// Load parses a stacklog.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text and fills in defaults. It does not validate.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	// Defaults
	if m.Sink.Action == "" && m.Sink.Owner != "" {
		m.Sink.Action = instrument.DefaultActionOwner(m.Sink.Owner)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a stacklog.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// RegistryConfig returns the registry configuration the manifest describes.
func (m *Manifest) RegistryConfig() instrument.RegistryConfig {
	return instrument.RegistryConfig{Owner: m.Sink.Owner, ActionOwner: m.Sink.Action}
}

// Surface returns the declared sink surface, or the default surface for
// the configured action enum when no methods are declared.
func (m *Manifest) Surface() instrument.Surface {
	if len(m.Sink.Methods) == 0 {
		return instrument.DefaultSurface(m.RegistryConfig().ActionOwner)
	}
	return instrument.NewSurface(m.Sink.Methods...)
}

// ListingPath returns the absolute path of the CBOR listing output, or ""
// when none is configured.
func (m *Manifest) ListingPath() string {
	if m.Output.Listing == "" {
		return ""
	}
	if filepath.IsAbs(m.Output.Listing) {
		return m.Output.Listing
	}
	return filepath.Join(m.Dir, m.Output.Listing)
}

// Events converts every probe to its instrumentation event, in file order.
func (m *Manifest) Events() ([]instrument.Event, error) {
	events := make([]instrument.Event, 0, len(m.Probes))
	for i, p := range m.Probes {
		ev, err := p.ToEvent()
		if err != nil {
			return nil, fmt.Errorf("probe %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// ToEvent converts the probe to an instrumentation event.
func (p Probe) ToEvent() (instrument.Event, error) {
	kind, err := instrument.ParseEventKind(p.Event)
	if err != nil {
		return nil, err
	}

	switch kind {
	case instrument.KindMethodEntry:
		return instrument.MethodEntry{MethodID: p.Method}, nil
	case instrument.KindMethodExit:
		return instrument.MethodExit{MethodID: p.Method, ExitID: p.Exit}, nil
	case instrument.KindArgument:
		t, err := bytecode.ParseType(p.Type)
		if err != nil {
			return nil, err
		}
		return instrument.Argument{Index: p.Index, Type: t}, nil
	case instrument.KindReturn:
		t, err := bytecode.ParseType(p.Type)
		if err != nil {
			return nil, err
		}
		return instrument.Return{Type: t}, nil
	case instrument.KindField:
		t, err := bytecode.ParseType(p.Type)
		if err != nil {
			return nil, err
		}
		a, err := instrument.ParseAction(p.Action)
		if err != nil {
			return nil, err
		}
		return instrument.FieldAccess{Name: p.Name, Type: t, Action: a}, nil
	case instrument.KindArray:
		a, err := instrument.ParseAction(p.Action)
		if err != nil {
			return nil, err
		}
		return instrument.ArrayAccess{Action: a}, nil
	case instrument.KindException:
		return instrument.Exception{}, nil
	case instrument.KindMessage:
		return instrument.Message{Text: p.Text}, nil
	}
	return nil, fmt.Errorf("%w: %s", instrument.ErrUnknownEvent, kind)
}
