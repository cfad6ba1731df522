// Package subdevice implements the Subdevice passthrough backend: a
// register space exposed by forwarding reads and writes through another
// device's registers, ported from SubdeviceBackend/SubdeviceRegisterAccessor
// (spec.md §4.5). Five modes are supported: area, areaHandshake,
// twoRegisters, threeRegisters and sixRegisters, matching the recognized
// URI options of spec.md §6.
package subdevice

import (
	"net/url"
	"strconv"
	"time"

	"regaccess-go/regerr"
)

// Mode selects the passthrough protocol, matching spec.md §4.5's table.
type Mode int

const (
	Area Mode = iota
	AreaHandshake
	TwoRegisters
	ThreeRegisters
	SixRegisters
)

func (m Mode) String() string {
	switch m {
	case Area:
		return "area"
	case AreaHandshake:
		return "areaHandshake"
	case TwoRegisters:
		return "2regs"
	case ThreeRegisters:
		return "3regs"
	case SixRegisters:
		return "6regs"
	default:
		return "unknown"
	}
}

// Config is the parsed subdevice URI, matching the recognized options
// table of spec.md §6 one field per key.
type Config struct {
	Mode Mode

	TargetDevice string
	MapFile      string

	// area / areaHandshake
	TargetArea string

	// address / data / status: twoRegisters, threeRegisters, sixRegisters
	TargetAddress string
	TargetData    string
	TargetStatus  string

	// sixRegisters only: a void-typed trigger that initiates a read word,
	// the register the triggered read lands in, and the chip-select
	// register written once per transaction.
	TargetReadRequest string
	TargetReadData    string
	TargetChipSelect  string
	ChipIndex         int

	SleepTime          time.Duration
	AddressToDataDelay time.Duration
	Timeout            time.Duration
}

// ParseURI parses a subdevice URI query string, e.g.
// "type=area&device=TCK7_0&area=APP.0.EXT_PZ16M&map=piezo.mapp" (spec.md
// §6's "(subdevice?type=...&key=value&...)" with the leading
// "subdevice?" already stripped by the factory).
func ParseURI(raw string) (Config, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Config{}, regerr.Logic("subdevice.ParseURI", "malformed URI %q: %v", raw, err)
	}
	get := func(k string) string { return values.Get(k) }

	cfg := Config{
		TargetDevice: get("device"),
		MapFile:      get("map"),

		TargetArea: get("area"),

		TargetAddress: get("address"),
		TargetData:    get("data"),
		TargetStatus:  get("status"),

		TargetReadRequest: get("readRequest"),
		TargetReadData:    get("readData"),
		TargetChipSelect:  get("chipSelectRegister"),

		SleepTime:          100 * time.Microsecond,
		AddressToDataDelay: 0,
		Timeout:            10 * time.Second,
	}

	switch get("type") {
	case "area":
		cfg.Mode = Area
	case "areaHandshake":
		cfg.Mode = AreaHandshake
	case "2regs":
		cfg.Mode = TwoRegisters
	case "3regs":
		cfg.Mode = ThreeRegisters
	case "6regs":
		cfg.Mode = SixRegisters
	default:
		return Config{}, regerr.Logic("subdevice.ParseURI", "unknown subdevice type %q", get("type"))
	}

	if v := get("chipIndex"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, regerr.Logic("subdevice.ParseURI", "invalid chipIndex value %q", v)
		}
		cfg.ChipIndex = n
	}
	if v := get("sleep"); v != "" {
		usecs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, regerr.Logic("subdevice.ParseURI", "invalid sleep value %q", v)
		}
		cfg.SleepTime = time.Duration(usecs) * time.Microsecond
	} else if cfg.Mode == TwoRegisters {
		// mandatory for 2regs per spec.md §6; the 100µs default only
		// applies if the caller omitted it anyway, matching the source's
		// documented default.
		cfg.SleepTime = 100 * time.Microsecond
	}
	if v := get("dataDelay"); v != "" {
		usecs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, regerr.Logic("subdevice.ParseURI", "invalid dataDelay value %q", v)
		}
		cfg.AddressToDataDelay = time.Duration(usecs) * time.Microsecond
	}
	if v := get("timeout"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, regerr.Logic("subdevice.ParseURI", "invalid timeout value %q", v)
		}
		cfg.Timeout = time.Duration(secs * float64(time.Second))
	}

	if cfg.TargetDevice == "" {
		return Config{}, regerr.Logic("subdevice.ParseURI", "missing device parameter")
	}
	if cfg.needsArea() && cfg.TargetArea == "" {
		return Config{}, regerr.Logic("subdevice.ParseURI", "type %q requires an area parameter", cfg.Mode)
	}
	if cfg.needsAddressData() && (cfg.TargetAddress == "" || cfg.TargetData == "") {
		return Config{}, regerr.Logic("subdevice.ParseURI", "type %q requires address and data parameters", cfg.Mode)
	}
	if cfg.needsStatus() && cfg.TargetStatus == "" {
		return Config{}, regerr.Logic("subdevice.ParseURI", "type %q requires a status parameter", cfg.Mode)
	}
	if cfg.Mode == SixRegisters && (cfg.TargetReadRequest == "" || cfg.TargetReadData == "" || cfg.TargetChipSelect == "") {
		return Config{}, regerr.Logic("subdevice.ParseURI", "type 6regs requires readRequest, readData and chipSelectRegister parameters")
	}
	return cfg, nil
}

func (c Config) needsArea() bool { return c.Mode == Area || c.Mode == AreaHandshake }

func (c Config) needsAddressData() bool {
	return c.Mode == TwoRegisters || c.Mode == ThreeRegisters || c.Mode == SixRegisters
}

func (c Config) needsStatus() bool {
	return c.Mode == AreaHandshake || c.Mode == ThreeRegisters || c.Mode == SixRegisters
}

// IsReadWrite reports whether the configured mode supports both
// directions: area/areaHandshake/sixRegisters are read-write; 2regs/3regs
// are write-only, the status-based read being explicitly not finalized in
// the original source (spec.md §4.5).
func (c Config) IsReadWrite() bool {
	return c.Mode == Area || c.Mode == AreaHandshake || c.Mode == SixRegisters
}
