package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EngineState 引擎狀態
type EngineState int32

const (
	EngineStateStopped EngineState = iota
	EngineStateStarting
	EngineStateRunning
	EngineStateStopping
)

func (s EngineState) String() string {
	switch s {
	case EngineStateStopped:
		return "stopped"
	case EngineStateStarting:
		return "starting"
	case EngineStateRunning:
		return "running"
	case EngineStateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Engine 掃描引擎: 以固定週期驅動輸入取樣、控制邏輯、
// 輸出提交、協議服務與資料記錄。所有元件在同一邏輯執行緒上
// 依嚴格順序執行; 協議處理失敗只會使該通道退化，掃描不中止。
// Stop 與 Snapshot 可能來自掃描迴圈以外的 goroutine (訊號處理、
// 測試)，以互斥鎖與週期本體序列化。
type Engine struct {
	config *Config
	logger *zap.Logger

	state atomic.Int32
	mu    sync.Mutex

	img     *ProcessImage
	program *LadderProgram
	sensors *SensorSimulator

	control  *ControlServer
	mgmt     *ManagementServer
	gateway  *ModbusGateway
	cycleLog *CycleLogger

	lastCycle time.Time
	startTime time.Time
}

// NewEngine 建立掃描引擎
func NewEngine(config *Config, logger *zap.Logger) *Engine {
	seed := config.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		config:  config,
		logger:  logger,
		img:     NewProcessImage(),
		program: &LadderProgram{},
		sensors: NewSensorSimulator(
			config.Device.TransportMode,
			config.Simulation.EstopFile,
			seed,
		),
	}
}

// Start 初始化各通道並進入運轉狀態。
// 任一協議埠綁定失敗只使該通道停用，掃描迴圈照常運行。
func (e *Engine) Start() error {
	if !e.state.CompareAndSwap(int32(EngineStateStopped), int32(EngineStateStarting)) {
		return fmt.Errorf("引擎已經在運行中")
	}

	e.startTime = time.Now()
	e.logger.Info("正在啟動 PLC 模擬器",
		zap.String("transport_mode", string(e.config.Device.TransportMode)),
		zap.Duration("cycle_period", e.config.Device.CyclePeriod),
		zap.Int("control_port", e.config.Control.Port),
		zap.Int("management_port", e.config.Management.Port),
	)

	var err error
	if e.control, err = NewControlServer(e.config.ControlAddr(), e.logger); err != nil {
		e.logger.Warn("控制協議通道停用", zap.Error(err))
		e.control = nil
	}

	if e.mgmt, err = NewManagementServer(e.config.ManagementAddr(), e.config.Device.TransportMode, e.logger); err != nil {
		e.logger.Warn("管理協議通道停用", zap.Error(err))
		e.mgmt = nil
	}

	if e.config.Modbus.Enabled {
		gw := NewModbusGateway(e.config.ModbusAddr(), e.logger)
		if err := gw.Start(); err != nil {
			e.logger.Warn("Modbus 閘道停用", zap.Error(err))
		} else {
			e.gateway = gw
		}
	}

	e.cycleLog = NewCycleLogger(e.config.DataLog.Path, e.config.DataLog.Interval, e.logger)

	// 載入控制程式 (暫存器預設值)
	e.mu.Lock()
	e.img.LoadDefaults()
	e.img.Running = true
	e.lastCycle = time.Now()
	e.mu.Unlock()
	e.state.Store(int32(EngineStateRunning))

	e.logger.Info("控制程式載入完成，開始掃描週期")
	return nil
}

// Tick 推進掃描。呼叫頻率遠高於掃描週期; 只有距上次執行
// 的週期已達配置週期時才執行一次完整的週期本體。
// 落後的週期不補執行，也永遠不會比週期更頻繁。
func (e *Engine) Tick(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() != EngineStateRunning {
		return false
	}
	if now.Sub(e.lastCycle) < e.config.Device.CyclePeriod {
		return false
	}

	e.runCycle(now)
	e.lastCycle = now
	return true
}

// runCycle 執行單一週期本體，各階段依嚴格順序執行
func (e *Engine) runCycle(now time.Time) {
	// 輸入掃描階段
	e.sensors.Sample(e.img)

	// 程式執行階段
	e.program.Execute(e.img)

	// 輸出提交階段
	e.program.Commit(e.img)

	// 通訊階段: 協議伺服器只觀察提交後的一致快照
	snap := e.img.Snapshot()
	if e.control != nil {
		e.control.Poll(&snap, now)
	}
	if e.mgmt != nil {
		e.mgmt.Poll(&snap, now)
	}
	if e.gateway != nil {
		e.gateway.Sync(&snap)
	}

	// 資料記錄階段
	e.cycleLog.MaybeWrite(&snap, now)

	e.img.CycleCount++

	// 狀態顯示 (每 50 個週期)
	if e.img.CycleCount%50 == 0 {
		e.displayStatus()
	}
}

// Run 運行掃描迴圈直到收到停止訊號。
// 短暫的休眠避免空輪詢佔滿 CPU。
func (e *Engine) Run(ctx context.Context) {
	for e.State() == EngineStateRunning {
		select {
		case <-ctx.Done():
			e.Stop()
			return
		default:
		}

		e.Tick(time.Now())
		time.Sleep(time.Millisecond)
	}
}

// Stop 停止引擎: 關閉各通道並寫入最終記錄。
// 可從任意 goroutine 呼叫; 進行中的掃描週期會先完成。
func (e *Engine) Stop() {
	if !e.state.CompareAndSwap(int32(EngineStateRunning), int32(EngineStateStopping)) {
		return
	}

	e.logger.Info("正在停止 PLC 模擬器")

	e.mu.Lock()
	e.img.Running = false

	if e.control != nil {
		e.control.Close()
	}
	if e.mgmt != nil {
		e.mgmt.Close()
	}
	if e.gateway != nil {
		e.gateway.Close()
	}
	e.cycleLog.Close()
	totalCycles := e.img.CycleCount
	e.mu.Unlock()

	e.state.Store(int32(EngineStateStopped))
	e.logger.Info("PLC 模擬器已停止",
		zap.Uint32("total_cycles", totalCycles),
		zap.Duration("uptime", time.Since(e.startTime)),
	)
}

// State 取得引擎狀態
func (e *Engine) State() EngineState {
	return EngineState(e.state.Load())
}

// Snapshot 取得當前程序影像快照
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.img.Snapshot()
}

// displayStatus 週期性狀態顯示
func (e *Engine) displayStatus() {
	e.logger.Info("掃描狀態",
		zap.Uint32("cycle", e.img.CycleCount),
		zap.Uint16("temp", e.img.Inputs[InputTemperature]),
		zap.Bool("heater", e.img.Outputs[OutputHeater] == 1),
		zap.String("errors", fmt.Sprintf("0x%02x", e.img.ErrorCodes)),
	)
}
