// This file is part of qtrace.
//
// qtrace is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// qtrace is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with qtrace.  If not, see <https://www.gnu.org/licenses/>.

// Package config loads the small set of engine-tunable parameters the
// tracepoint engine needs from a YAML file, the way tripwire/agent loads its
// own settings with gopkg.in/yaml.v3. None of these parameters are part of
// the wire protocol itself — they only affect host-side buffer sizing and
// defaults — so the engine runs correctly with no configuration file
// (Default()).
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ezhilan/qtrace/qerrors"
)

// Config holds the engine-tunable parameters.
type Config struct {
	// PacketBufferSize is the capacity, in bytes, of the outbound QTDP
	// scratch buffer. A compiled action body that would not fit fails with
	// a Capacity error before anything is sent (spec §4.F, §7).
	PacketBufferSize int `yaml:"packet_buffer_size"`

	// DefaultInputRadix is used when re-parsing expressions in a
	// tracepoint's context and no radix was recorded at creation time.
	DefaultInputRadix int `yaml:"default_input_radix"`

	// NumRegisters bounds the register bitmap (NUM_REGS in the original).
	NumRegisters int `yaml:"num_registers"`
}

// Default returns the built-in configuration. These values match the
// historical stub-side limits referenced in the original protocol
// (target_buf/tdp_buff/step_buff were all 2048-byte fixed buffers).
func Default() Config {
	return Config{
		PacketBufferSize:  2048,
		DefaultInputRadix: 10,
		NumRegisters:      64,
	}
}

// Load reads a YAML configuration file at path, falling back to Default()
// for any field left unset (zero) in the file. A missing file is not an
// error: Default() is returned unmodified.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, qerrors.Errorf(qerrors.UserInput, "config: cannot read %s: %v", path, err)
	}

	var overrides Config
	if err := yaml.Unmarshal(b, &overrides); err != nil {
		return cfg, qerrors.Errorf(qerrors.UserInput, "config: cannot parse %s: %v", path, err)
	}

	if overrides.PacketBufferSize > 0 {
		cfg.PacketBufferSize = overrides.PacketBufferSize
	}
	if overrides.DefaultInputRadix > 0 {
		cfg.DefaultInputRadix = overrides.DefaultInputRadix
	}
	if overrides.NumRegisters > 0 {
		cfg.NumRegisters = overrides.NumRegisters
	}

	return cfg, nil
}
