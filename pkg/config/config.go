// Boardprov
// Copyright (c) 2026 The Boardprov Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Boardprov.
//
// Boardprov is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Boardprov is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Boardprov.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boardprov/boardprov/pkg/helpers/syncutil"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "BOARDPROV_CFG"
	CfgFile       = "boardprov.toml"
	LogFile       = "boardprov.log"
)

// Serial configures the companion MCU serial channel.
type Serial struct {
	// Device is the serial node of the CH343 bridge to the companion MCU.
	Device string `toml:"device" validate:"required"`
	// ResetHelper is an optional external binary that performs the
	// DTR/RTS hardware reset. Empty means use the built-in sequence.
	ResetHelper      string `toml:"reset_helper,omitempty"`
	BaudRate         int    `toml:"baud_rate" validate:"gt=0"`
	SettleDelayMs    int    `toml:"settle_delay_ms" validate:"gte=0"`
	ResponseWindowMs int    `toml:"response_window_ms" validate:"gt=0"`
	// ContinueAfterResetFailure controls whether parameter initialization
	// still runs when the hardware reset helper fails or is missing.
	ContinueAfterResetFailure bool `toml:"continue_after_reset_failure"`
}

// USB configures device signature polling after mode switches.
type USB struct {
	McuBootVendor      string `toml:"mcu_boot_vendor" validate:"required"`
	McuBootProduct     string `toml:"mcu_boot_product"`
	SocRecoveryVendor  string `toml:"soc_recovery_vendor" validate:"required"`
	SocRecoveryProduct string `toml:"soc_recovery_product"`
	MaxAttempts        int    `toml:"max_attempts" validate:"gte=1"`
	PollIntervalMs     int    `toml:"poll_interval_ms" validate:"gt=0"`
}

// Firmware configures artifact locations and vendor flashing tools.
type Firmware struct {
	// Dir holds the unpacked release artifacts. A populated dir doubles as
	// the idempotency marker for the TF card stage.
	Dir          string   `toml:"dir" validate:"required"`
	McuFlashTool string   `toml:"mcu_flash_tool" validate:"required"`
	SocFlashTool string   `toml:"soc_flash_tool" validate:"required"`
	McuFlashArgs []string `toml:"mcu_flash_args,omitempty,multiline"`
	SocFlashArgs []string `toml:"soc_flash_args,omitempty,multiline"`
}

// Mcu configures companion MCU parameter initialization.
type Mcu struct {
	// InitCommands are sent over the serial channel, in order, after the
	// MCU firmware flash. A trailing save/reboot is appended by the stage.
	InitCommands []string `toml:"init_commands,omitempty,multiline"`
}

// Storage configures the data card partition/format stage.
type Storage struct {
	// BlockDevice is the whole-disk node of the removable data card.
	BlockDevice string `toml:"block_device" validate:"required"`
	TFMount     string `toml:"tf_mount" validate:"required"`
}

// Retry bounds re-attempts for operations with idempotent retry semantics.
type Retry struct {
	MaxAttempts int `toml:"max_attempts" validate:"gte=1"`
	BackoffMs   int `toml:"backoff_ms" validate:"gte=0"`
}

// Recovery configures the host SoC recovery-mode entry sub-protocol.
type Recovery struct {
	MaxAttempts   int `toml:"max_attempts" validate:"gte=1"`
	SettleDelayMs int `toml:"settle_delay_ms" validate:"gte=0"`
}

type Values struct {
	Serial       Serial   `toml:"serial"`
	USB          USB      `toml:"usb"`
	Firmware     Firmware `toml:"firmware"`
	Mcu          Mcu      `toml:"mcu"`
	Storage      Storage  `toml:"storage"`
	Retry        Retry    `toml:"retry"`
	Recovery     Recovery `toml:"recovery"`
	ConfigSchema int      `toml:"config_schema"`
	DebugLogging bool     `toml:"debug_logging"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Serial: Serial{
		Device:                    "/dev/ttyCH343USB0",
		BaudRate:                  115200,
		SettleDelayMs:             200,
		ResponseWindowMs:          1500,
		ContinueAfterResetFailure: true,
	},
	USB: USB{
		McuBootVendor:      "Espressif",
		McuBootProduct:     "USB JTAG",
		SocRecoveryVendor:  "NVIDIA Corp",
		SocRecoveryProduct: "APX",
		MaxAttempts:        10,
		PollIntervalMs:     1000,
	},
	Firmware: Firmware{
		Dir:          "/opt/boardprov/firmware",
		McuFlashTool: "esptool.py",
		SocFlashTool: "./flash.sh",
	},
	Mcu: Mcu{
		InitCommands: []string{
			"usbmux agx",
			"net config set ip 192.168.55.10",
			"fan config curve 2 30:20,50:50,70:100",
		},
	},
	Storage: Storage{
		BlockDevice: "/dev/nvme0n1",
		TFMount:     "/mnt/tfcard",
	},
	Retry: Retry{
		MaxAttempts: 3,
		BackoffMs:   2000,
	},
	Recovery: Recovery{
		MaxAttempts:   3,
		SettleDelayMs: 5000,
	},
}

// Instance is a thread-safe view of the on-disk configuration.
type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		if err := os.MkdirAll(filepath.Dir(cfgPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	vals := c.defaults
	if err := toml.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validator.New().Struct(vals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.vals = vals
	log.Debug().Str("path", c.cfgPath).Msg("config loaded")
	return nil
}

func (c *Instance) Save() error {
	data, err := toml.Marshal(c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Instance) Path() string {
	return c.cfgPath
}

func (c *Instance) Serial() Serial {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial
}

func (c *Instance) USB() USB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.USB
}

func (c *Instance) Firmware() Firmware {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Firmware
}

func (c *Instance) Mcu() Mcu {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Mcu
}

func (c *Instance) Storage() Storage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Storage
}

func (c *Instance) Retry() Retry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Retry
}

func (c *Instance) Recovery() Recovery {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Recovery
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

// Duration accessors keep timing tunable per deployment without code changes.

func (s Serial) SettleDelay() time.Duration {
	return time.Duration(s.SettleDelayMs) * time.Millisecond
}

func (s Serial) ResponseWindow() time.Duration {
	return time.Duration(s.ResponseWindowMs) * time.Millisecond
}

func (u USB) PollInterval() time.Duration {
	return time.Duration(u.PollIntervalMs) * time.Millisecond
}

func (r Retry) Backoff() time.Duration {
	return time.Duration(r.BackoffMs) * time.Millisecond
}

func (r Recovery) SettleDelay() time.Duration {
	return time.Duration(r.SettleDelayMs) * time.Millisecond
}
