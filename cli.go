package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	logger    *zap.Logger
	appConfig *Config
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:     "plcsim",
	Short:   "傳統 PLC 模擬器",
	Version: Version,
	Long: `模擬 2000 年代早期可程式邏輯控制器 (PLC) 的執行時行為。
固定週期掃描引擎搭配兩個協議前端:
  控制協議 (ASCII/TCP): 預設埠 9001
  管理協議 (HTTP/JSON): 預設埠 9080`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 初始化日誌
		var err error
		logger, err = initLogger()
		if err != nil {
			return fmt.Errorf("初始化日誌失敗: %w", err)
		}

		// 載入配置 (除了 version 和 help 命令)
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "generate" {
			appConfig, err = LoadConfig(cfgFile)
			if err != nil {
				// 配置載入失敗時使用預設值
				appConfig = DefaultConfig()
				if cfgFile != "" {
					logger.Warn("載入配置檔失敗，使用預設配置", zap.Error(err))
				}
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// startCmd 啟動命令
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "啟動模擬器",
	Long:  "啟動 PLC 模擬器，開始掃描週期並監聽協議連線。",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 覆蓋 CLI 參數
		if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
			appConfig.ApplyTransportMode(TransportMode(mode))
		}
		if port, _ := cmd.Flags().GetInt("control-port"); port > 0 {
			appConfig.Control.Port = port
		}
		if port, _ := cmd.Flags().GetInt("management-port"); port > 0 {
			appConfig.Management.Port = port
		}
		if period, _ := cmd.Flags().GetDuration("period"); period > 0 {
			appConfig.Device.CyclePeriod = period
		}

		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("配置驗證失敗: %w", err)
		}

		// 建立引擎
		engine := NewEngine(appConfig, logger)

		// 設置優雅關閉
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.Info("收到關閉信號", zap.String("signal", sig.String()))
			cancel()
		}()

		// 啟動引擎
		if err := engine.Start(); err != nil {
			return fmt.Errorf("啟動引擎失敗: %w", err)
		}

		// 掃描迴圈運行直到收到停止訊號
		engine.Run(ctx)
		return nil
	},
}

// statusCmd 狀態命令: 作為控制協議客戶端發出 STATUS 命令
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查詢運行狀態",
	Long:  "透過控制協議向運行中的模擬器查詢狀態。",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := fmt.Sprintf("127.0.0.1:%d", appConfig.Control.Port)
		conn, err := net.DialTimeout("tcp", addr, 3*time.Second)
		if err != nil {
			return fmt.Errorf("連線到 %s 失敗: %w", addr, err)
		}
		defer conn.Close()

		if _, err := conn.Write([]byte("STATUS")); err != nil {
			return fmt.Errorf("送出命令失敗: %w", err)
		}

		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		buf := make([]byte, CommandBufferSize)
		n, err := conn.Read(buf)
		if err != nil {
			return fmt.Errorf("讀取回應失敗 (模擬器可能未運行): %w", err)
		}

		fmt.Print(string(buf[:n]))
		return nil
	},
}

// estopCmd 緊急停止命令組
var estopCmd = &cobra.Command{
	Use:   "estop",
	Short: "緊急停止管理",
	Long:  "管理緊急停止標記檔。標記存在時運轉致能輸入被強制為 0。",
}

// estopSetCmd 觸發緊急停止
var estopSetCmd = &cobra.Command{
	Use:   "set",
	Short: "觸發緊急停止",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := appConfig.Simulation.EstopFile
		if err := os.WriteFile(path, []byte(time.Now().Format(TimestampLayout)+"\n"), 0644); err != nil {
			return fmt.Errorf("建立緊急停止標記失敗: %w", err)
		}
		fmt.Printf("緊急停止已觸發: %s\n", path)
		return nil
	},
}

// estopClearCmd 解除緊急停止
var estopClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "解除緊急停止",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := appConfig.Simulation.EstopFile
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				fmt.Println("緊急停止未觸發")
				return nil
			}
			return fmt.Errorf("移除緊急停止標記失敗: %w", err)
		}
		fmt.Println("緊急停止已解除")
		return nil
	},
}

// networkCmd 網路命令組
var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "網路管理命令",
	Long:  "管理實體部署用的設備虛擬 IP。",
}

// networkSetupCmd 設置設備 IP
var networkSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "建立設備虛擬 IP",
	RunE: func(cmd *cobra.Command, args []string) error {
		iface, _ := cmd.Flags().GetString("interface")
		if iface != "" {
			appConfig.Device.Interface = iface
		}
		addr, _ := cmd.Flags().GetString("address")
		if addr == "" {
			addr = appConfig.Device.BindAddress
		}
		if addr == "" {
			return fmt.Errorf("必須指定設備 IP (--address 或配置 bind_address)")
		}

		provisioner := NewNetworkProvisioner(appConfig.Device.Interface, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := provisioner.Setup(ctx, addr); err != nil {
			return fmt.Errorf("設置設備 IP 失敗: %w", err)
		}

		fmt.Println("設備虛擬 IP 設置完成")
		return nil
	},
}

// networkTeardownCmd 移除設備 IP
var networkTeardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "移除設備虛擬 IP",
	RunE: func(cmd *cobra.Command, args []string) error {
		iface, _ := cmd.Flags().GetString("interface")
		if iface != "" {
			appConfig.Device.Interface = iface
		}
		addr, _ := cmd.Flags().GetString("address")
		if addr == "" {
			addr = appConfig.Device.BindAddress
		}

		provisioner := NewNetworkProvisioner(appConfig.Device.Interface, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := provisioner.Teardown(ctx, addr); err != nil {
			return fmt.Errorf("移除設備 IP 失敗: %w", err)
		}

		fmt.Println("設備虛擬 IP 已移除")
		return nil
	},
}

// networkListCmd 列出介面 IP
var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出介面上的 IP",
	RunE: func(cmd *cobra.Command, args []string) error {
		iface, _ := cmd.Flags().GetString("interface")
		if iface != "" {
			appConfig.Device.Interface = iface
		}

		provisioner := NewNetworkProvisioner(appConfig.Device.Interface, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		ips, err := provisioner.List(ctx)
		if err != nil {
			return fmt.Errorf("列出 IP 失敗: %w", err)
		}

		if len(ips) == 0 {
			fmt.Println("介面上沒有 IPv4 位址")
			return nil
		}

		fmt.Printf("介面 %s 上的 IP (%d 個):\n", appConfig.Device.Interface, len(ips))
		for _, ip := range ips {
			fmt.Printf("  - %s\n", ip.String())
		}
		return nil
	},
}

// configCmd 配置命令組
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "配置管理命令",
	Long:  "管理配置檔。",
}

// configValidateCmd 驗證配置
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "驗證配置檔",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("配置驗證失敗: %w", err)
		}

		fmt.Println("配置驗證通過")
		fmt.Printf("  Transport Mode: %s\n", cfg.Device.TransportMode)
		fmt.Printf("  Cycle Period: %v\n", cfg.Device.CyclePeriod)
		fmt.Printf("  Control Port: %d\n", cfg.Control.Port)
		fmt.Printf("  Management Port: %d\n", cfg.Management.Port)
		fmt.Printf("  Modbus Gateway: %v (port %d)\n", cfg.Modbus.Enabled, cfg.Modbus.Port)
		fmt.Printf("  Data Log: %s (every %d cycles)\n", cfg.DataLog.Path, cfg.DataLog.Interval)
		return nil
	},
}

// configGenerateCmd 生成配置
var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "生成範例配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = "config.json"
		}

		cfg := DefaultConfig()

		if err := cfg.SaveConfig(output); err != nil {
			return fmt.Errorf("生成配置失敗: %w", err)
		}

		fmt.Printf("範例配置已生成: %s\n", output)
		return nil
	},
}

// versionCmd 版本命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "顯示版本資訊",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("plcsim version %s\n", Version)
		fmt.Printf("  Build: %s\n", BuildTime)
		fmt.Printf("  Commit: %s\n", GitCommit)
	},
}

func init() {
	// 全域 flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置檔路徑")

	// start 命令 flags
	startCmd.Flags().StringP("mode", "m", "", "傳輸模式 (virtual/physical)")
	startCmd.Flags().Int("control-port", 0, "控制協議埠號")
	startCmd.Flags().Int("management-port", 0, "管理協議埠號")
	startCmd.Flags().DurationP("period", "p", 0, "掃描週期")

	// network 命令 flags
	networkSetupCmd.Flags().StringP("interface", "i", "eth0", "網路介面")
	networkSetupCmd.Flags().StringP("address", "a", "", "設備 IP 位址")
	networkTeardownCmd.Flags().StringP("interface", "i", "eth0", "網路介面")
	networkTeardownCmd.Flags().StringP("address", "a", "", "設備 IP 位址")
	networkListCmd.Flags().StringP("interface", "i", "eth0", "網路介面")

	// config 命令 flags
	configGenerateCmd.Flags().StringP("output", "o", "config.json", "輸出檔案路徑")

	// 組裝命令樹
	estopCmd.AddCommand(estopSetCmd, estopClearCmd)
	networkCmd.AddCommand(networkSetupCmd, networkTeardownCmd, networkListCmd)
	configCmd.AddCommand(configValidateCmd, configGenerateCmd)

	rootCmd.AddCommand(
		startCmd,
		statusCmd,
		estopCmd,
		networkCmd,
		configCmd,
		versionCmd,
	)
}

func initLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Execute 執行 CLI
func Execute() error {
	return rootCmd.Execute()
}
