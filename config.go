package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config 全域配置。傳輸模式為執行期選項，
// 在虛擬與實體部署之間切換埠號與模擬真實度。
type Config struct {
	Device     DeviceConfig     `json:"device" mapstructure:"device"`
	Control    ControlConfig    `json:"control" mapstructure:"control"`
	Management ManagementConfig `json:"management" mapstructure:"management"`
	Modbus     ModbusConfig     `json:"modbus" mapstructure:"modbus"`
	Simulation SimulationConfig `json:"simulation" mapstructure:"simulation"`
	DataLog    DataLogConfig    `json:"data_log" mapstructure:"data_log"`
}

// DeviceConfig 設備配置
type DeviceConfig struct {
	TransportMode TransportMode `json:"transport_mode" mapstructure:"transport_mode"`
	CyclePeriod   time.Duration `json:"cycle_period" mapstructure:"cycle_period"`
	BindAddress   string        `json:"bind_address" mapstructure:"bind_address"`
	Interface     string        `json:"interface" mapstructure:"interface"`
}

// MarshalJSON 以人類可讀的時間單位輸出掃描週期 (例如 "100ms")，
// 讓生成的配置檔可以直接編輯後再載入。
func (d DeviceConfig) MarshalJSON() ([]byte, error) {
	type plain DeviceConfig
	return json.Marshal(struct {
		plain
		CyclePeriod string `json:"cycle_period"`
	}{plain(d), d.CyclePeriod.String()})
}

// ControlConfig 控制協議配置
type ControlConfig struct {
	Port int `json:"port" mapstructure:"port"`
}

// ManagementConfig 管理協議配置
type ManagementConfig struct {
	Port int `json:"port" mapstructure:"port"`
}

// ModbusConfig Modbus 閘道配置
type ModbusConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	Port    int  `json:"port" mapstructure:"port"`
}

// SimulationConfig 感測器模擬配置
type SimulationConfig struct {
	Seed      int64  `json:"seed" mapstructure:"seed"` // 0 = 以當前時間為種子
	EstopFile string `json:"estop_file" mapstructure:"estop_file"`
}

// DataLogConfig 週期資料記錄配置
type DataLogConfig struct {
	Path     string `json:"path" mapstructure:"path"`
	Interval uint32 `json:"interval" mapstructure:"interval"` // 每 N 個週期記錄一列
}

// DefaultConfig 返回預設配置 (虛擬傳輸模式)
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			TransportMode: TransportVirtual,
			CyclePeriod:   100 * time.Millisecond,
			BindAddress:   "",
			Interface:     "eth0",
		},
		Control: ControlConfig{
			Port: DefaultControlPort,
		},
		Management: ManagementConfig{
			Port: DefaultManagementPort,
		},
		Modbus: ModbusConfig{
			Enabled: true,
			Port:    DefaultModbusPort,
		},
		Simulation: SimulationConfig{
			Seed:      0,
			EstopFile: "/tmp/plc_estop",
		},
		DataLog: DataLogConfig{
			Path:     "/tmp/plc_data.log",
			Interval: 10,
		},
	}
}

// ApplyTransportMode 依傳輸模式套用預設埠號
func (c *Config) ApplyTransportMode(mode TransportMode) {
	c.Device.TransportMode = mode
	switch mode {
	case TransportPhysical:
		// 實體部署: 使用設備慣用埠號
		c.Control.Port = DefaultControlPort
		c.Management.Port = 80
		c.Modbus.Port = 502
	default:
		c.Control.Port = DefaultControlPort
		c.Management.Port = DefaultManagementPort
		c.Modbus.Port = DefaultModbusPort
	}
}

// LoadConfig 載入配置檔
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/plcsim/")
		v.AddConfigPath("$HOME/.plcsim/")
	}

	// 環境變數覆蓋
	v.SetEnvPrefix("PLCSIM")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("讀取配置檔失敗: %w", err)
		}
		// 配置檔不存在，使用預設值
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置驗證失敗: %w", err)
	}

	return cfg, nil
}

// Validate 驗證配置
func (c *Config) Validate() error {
	if !c.Device.TransportMode.Valid() {
		return fmt.Errorf("無效的傳輸模式: %s", c.Device.TransportMode)
	}

	if c.Device.CyclePeriod < 10*time.Millisecond {
		return fmt.Errorf("掃描週期過短: %v (最小 10ms)", c.Device.CyclePeriod)
	}

	ports := map[string]int{
		"control":    c.Control.Port,
		"management": c.Management.Port,
	}
	if c.Modbus.Enabled {
		ports["modbus"] = c.Modbus.Port
	}

	seen := make(map[int]string)
	for name, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("無效的 %s 埠號: %d", name, port)
		}
		if other, ok := seen[port]; ok {
			return fmt.Errorf("埠號衝突: %s 與 %s 都使用 %d", name, other, port)
		}
		seen[port] = name
	}

	if c.DataLog.Interval < 1 {
		return fmt.Errorf("記錄間隔必須大於 0")
	}

	return nil
}

// SaveConfig 儲存配置到檔案
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失敗: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("寫入配置檔失敗: %w", err)
	}

	return nil
}

// ControlAddr 控制協議監聽位址
func (c *Config) ControlAddr() string {
	return fmt.Sprintf("%s:%d", c.Device.BindAddress, c.Control.Port)
}

// ManagementAddr 管理協議監聽位址
func (c *Config) ManagementAddr() string {
	return fmt.Sprintf("%s:%d", c.Device.BindAddress, c.Management.Port)
}

// ModbusAddr Modbus 閘道監聽位址
func (c *Config) ModbusAddr() string {
	return fmt.Sprintf("%s:%d", c.Device.BindAddress, c.Modbus.Port)
}
