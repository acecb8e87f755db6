package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, TransportVirtual, cfg.Device.TransportMode)
	assert.Equal(t, 100*time.Millisecond, cfg.Device.CyclePeriod)
	assert.Equal(t, DefaultControlPort, cfg.Control.Port)
	assert.Equal(t, DefaultManagementPort, cfg.Management.Port)
	assert.Equal(t, uint32(10), cfg.DataLog.Interval)
	assert.True(t, cfg.Modbus.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid transport mode",
			modify: func(c *Config) {
				c.Device.TransportMode = "hybrid"
			},
			wantErr: true,
		},
		{
			name: "cycle period too short",
			modify: func(c *Config) {
				c.Device.CyclePeriod = time.Millisecond
			},
			wantErr: true,
		},
		{
			name: "invalid control port",
			modify: func(c *Config) {
				c.Control.Port = 0
			},
			wantErr: true,
		},
		{
			name: "invalid management port",
			modify: func(c *Config) {
				c.Management.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "port conflict",
			modify: func(c *Config) {
				c.Management.Port = c.Control.Port
			},
			wantErr: true,
		},
		{
			name: "modbus port conflict",
			modify: func(c *Config) {
				c.Modbus.Port = c.Control.Port
			},
			wantErr: true,
		},
		{
			name: "modbus port ignored when disabled",
			modify: func(c *Config) {
				c.Modbus.Enabled = false
				c.Modbus.Port = c.Control.Port
			},
			wantErr: false,
		},
		{
			name: "zero log interval",
			modify: func(c *Config) {
				c.DataLog.Interval = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ApplyTransportMode(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyTransportMode(TransportPhysical)
	assert.Equal(t, TransportPhysical, cfg.Device.TransportMode)
	assert.Equal(t, 80, cfg.Management.Port)
	assert.Equal(t, 502, cfg.Modbus.Port)

	cfg.ApplyTransportMode(TransportVirtual)
	assert.Equal(t, DefaultManagementPort, cfg.Management.Port)
	assert.Equal(t, DefaultModbusPort, cfg.Modbus.Port)
}

func TestConfig_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.json")

	cfg := DefaultConfig()
	cfg.Control.Port = 15901
	cfg.DataLog.Interval = 5

	err := cfg.SaveConfig(configPath)
	require.NoError(t, err)

	// 確認檔案存在
	_, err = os.Stat(configPath)
	require.NoError(t, err)

	// 載入配置
	loadedCfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, cfg.Control.Port, loadedCfg.Control.Port)
	assert.Equal(t, cfg.DataLog.Interval, loadedCfg.DataLog.Interval)
	assert.Equal(t, cfg.Device.TransportMode, loadedCfg.Device.TransportMode)
}

// 生成的配置檔中掃描週期以可讀單位輸出，且能原樣載回
func TestConfig_SavePeriodHumanReadable(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	require.NoError(t, cfg.SaveConfig(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cycle_period": "100ms"`,
		"掃描週期應以時間單位輸出而非奈秒整數")

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Device.CyclePeriod, loaded.Device.CyclePeriod)
}

func TestConfig_Addrs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.BindAddress = "127.0.0.1"

	assert.Equal(t, "127.0.0.1:9001", cfg.ControlAddr())
	assert.Equal(t, "127.0.0.1:9080", cfg.ManagementAddr())
	assert.Equal(t, "127.0.0.1:1502", cfg.ModbusAddr())
}
