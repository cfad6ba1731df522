// Package catalogue defines the register-catalogue surface the core
// consumes (spec.md §3, §6). Map-file parsing and the full catalogue
// structure are external collaborators per spec.md §1; this package only
// carries the tuple the core itself needs to dedup accessors and validate
// requests, plus a YAML loader for the concrete catalogues used in tests
// and the selftest CLI harness.
package catalogue

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"regaccess-go/accessmode"
	"regaccess-go/regpath"

	"gopkg.in/yaml.v3"
)

// Descriptor is the Accessor Descriptor tuple from spec.md §3: two
// accessors with equal descriptors address the same data. Key renders it
// as a string; dispatch.RegisterShared shares one read per cycle among
// subscribers passing the same caller-chosen key string.
type Descriptor struct {
	Path          regpath.Path
	UserType      reflect.Type
	NumberOfWords int
	WordOffset    int
	Flags         accessmode.Set
}

// Key returns a comparable value suitable for use as a map key (Descriptor
// itself is not comparable because regpath.Path is a slice).
func (d Descriptor) Key() string {
	return fmt.Sprintf("%s#%s#%d#%d#%s", d.Path, d.UserType, d.NumberOfWords, d.WordOffset, d.Flags.Serialize())
}

// RegisterInfo is what the catalogue reports about a single register:
// dimensions, cooked/raw data descriptor, and supported access modes
// (spec.md §6).
type RegisterInfo struct {
	Name           string         `yaml:"name"`
	Channels       int            `yaml:"channels"`
	Samples        int            `yaml:"samples"`
	CookedType     string         `yaml:"cookedType"`
	RawType        string         `yaml:"rawType,omitempty"`
	Readable       bool           `yaml:"readable"`
	Writeable      bool           `yaml:"writeable"`
	SupportedFlags []string       `yaml:"supportedFlags,omitempty"`
	ByteOffset     int            `yaml:"byteOffset"`

	// InterruptController/InterruptID optionally bind this register to a
	// catalogue interrupt: when set, a wait_for_new_data accessor on this
	// register is delivered asynchronously through that interrupt's
	// dispatcher rather than read synchronously (spec.md §4.4, §6).
	InterruptController string `yaml:"interruptController,omitempty"`
	InterruptID         string `yaml:"interruptId,omitempty"`

	flagSet accessmode.Set `yaml:"-"`
}

// HasInterrupt reports whether this register is bound to a catalogue
// interrupt for asynchronous delivery.
func (r *RegisterInfo) HasInterrupt() bool {
	return r.InterruptController != "" && r.InterruptID != ""
}

// Flags lazily parses SupportedFlags into an accessmode.Set.
func (r *RegisterInfo) Flags() (accessmode.Set, error) {
	if !r.flagSet.Empty() || len(r.SupportedFlags) == 0 {
		return r.flagSet, nil
	}
	s, err := accessmode.Deserialize(strings.Join(r.SupportedFlags, ","))
	if err != nil {
		return accessmode.Set{}, err
	}
	r.flagSet = s
	return r.flagSet, nil
}

// InterruptInfo names one entry of the catalogue's interrupt table,
// addressed by a (controller, interrupt) pair per spec.md §6.
type InterruptInfo struct {
	Controller string `yaml:"controller"`
	Interrupt  string `yaml:"interrupt"`
}

// Catalogue is a loaded register + interrupt catalogue.
type Catalogue struct {
	Registers  map[string]*RegisterInfo `yaml:"registers"`
	Interrupts []InterruptInfo          `yaml:"interrupts"`
}

// HasInterrupt reports whether (controller, interrupt) exists in the
// catalogue's interrupt table.
func (c *Catalogue) HasInterrupt(controller, interrupt string) bool {
	for _, i := range c.Interrupts {
		if i.Controller == controller && i.Interrupt == interrupt {
			return true
		}
	}
	return false
}

// Lookup returns the named register's info, or ok=false.
func (c *Catalogue) Lookup(name string) (*RegisterInfo, bool) {
	r, ok := c.Registers[name]
	return r, ok
}

// LoadFile parses a YAML catalogue file. This is the concrete catalogue
// format used by subdevice maps and the dummy backend in this repository;
// other backends may consume any catalogue satisfying the Lookup/HasInterrupt
// surface above.
func LoadFile(path string) (*Catalogue, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalogue.LoadFile: %w", err)
	}
	var c Catalogue
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("catalogue.LoadFile: %w", err)
	}
	if c.Registers == nil {
		c.Registers = map[string]*RegisterInfo{}
	}
	return &c, nil
}
