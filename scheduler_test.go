package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEngineConfig(t *testing.T) *Config {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Device.BindAddress = "127.0.0.1"
	cfg.Control.Port = 0
	cfg.Management.Port = 0
	cfg.Modbus.Enabled = false
	cfg.Simulation.Seed = 1
	cfg.Simulation.EstopFile = filepath.Join(tmpDir, "estop")
	cfg.DataLog.Path = filepath.Join(tmpDir, "plc_data.log")
	return cfg
}

// startTestEngine 啟動引擎並將時基設到過去，
// 讓測試能以合成時間驅動週期而不會使輪詢期限落在未來。
func startTestEngine(t *testing.T, cfg *Config) (*Engine, time.Time) {
	t.Helper()

	engine := NewEngine(cfg, zap.NewNop())
	require.NoError(t, engine.Start())
	t.Cleanup(engine.Stop)

	base := time.Now().Add(-time.Hour)
	engine.lastCycle = base
	return engine, base
}

func TestEngine_TickCadence(t *testing.T) {
	cfg := testEngineConfig(t)
	engine, base := startTestEngine(t, cfg)

	// 未達週期: 不執行
	assert.False(t, engine.Tick(base.Add(50*time.Millisecond)), "未達週期不應執行")
	assert.Equal(t, uint32(0), engine.Snapshot().CycleCount)

	// 達到週期: 執行一次
	assert.True(t, engine.Tick(base.Add(100*time.Millisecond)))
	assert.Equal(t, uint32(1), engine.Snapshot().CycleCount)

	// 同一時刻再次輪詢: 不重複執行
	assert.False(t, engine.Tick(base.Add(100*time.Millisecond)))
	assert.Equal(t, uint32(1), engine.Snapshot().CycleCount)
}

func TestEngine_NoCatchUp(t *testing.T) {
	cfg := testEngineConfig(t)
	engine, base := startTestEngine(t, cfg)

	// 延遲 500ms 後只執行一個週期，不補執行錯過的週期
	assert.True(t, engine.Tick(base.Add(500*time.Millisecond)))
	assert.Equal(t, uint32(1), engine.Snapshot().CycleCount)
}

func TestEngine_CycleInvariants(t *testing.T) {
	cfg := testEngineConfig(t)
	engine, base := startTestEngine(t, cfg)

	now := base
	for i := 0; i < 200; i++ {
		now = now.Add(cfg.Device.CyclePeriod)
		require.True(t, engine.Tick(now))

		snap := engine.Snapshot()
		// registers[20] 等於評估當下的週期計數低 16 位元
		assert.Equal(t, uint16((snap.CycleCount-1)&0xFFFF), snap.Registers[RegCycleLow])

		// 警報輸出與錯誤位元一致
		alarmOn := snap.Outputs[OutputAlarm] == 1
		errBitSet := snap.ErrorCodes&ErrBitHighTemp != 0
		assert.Equal(t, alarmOn, errBitSet, "警報輸出與錯誤位元必須一致")

		// 鏡像暫存器
		assert.Equal(t, snap.Inputs[InputTemperature], snap.Registers[RegMirrorTemp])
		assert.Equal(t, snap.Outputs[OutputHeater], snap.Registers[RegMirrorHeater])
	}

	assert.Equal(t, uint32(200), engine.Snapshot().CycleCount)
}

func TestEngine_EstopForcesRunEnable(t *testing.T) {
	cfg := testEngineConfig(t)
	engine, base := startTestEngine(t, cfg)

	now := base.Add(cfg.Device.CyclePeriod)
	require.True(t, engine.Tick(now))
	assert.Equal(t, uint16(1), engine.Snapshot().Inputs[InputRunEnable])

	// 建立緊急停止標記: 下個週期運轉致能為 0，加熱器關閉
	require.NoError(t, os.WriteFile(cfg.Simulation.EstopFile, []byte("stop\n"), 0644))

	now = now.Add(cfg.Device.CyclePeriod)
	require.True(t, engine.Tick(now))
	snap := engine.Snapshot()
	assert.Equal(t, uint16(0), snap.Inputs[InputRunEnable], "緊急停止時運轉致能應為 0")
	assert.Equal(t, uint16(0), snap.Outputs[OutputHeater], "緊急停止時加熱器應關閉")
}

// 無客戶端連線的 100 個週期: 無協議錯誤，記錄檔恰好成長 10 列資料
func TestEngine_QuiescentCycles(t *testing.T) {
	cfg := testEngineConfig(t)
	engine, base := startTestEngine(t, cfg)

	now := base
	for i := 0; i < 100; i++ {
		now = now.Add(cfg.Device.CyclePeriod)
		require.True(t, engine.Tick(now))
	}

	engine.Stop()

	data, err := os.ReadFile(cfg.DataLog.Path)
	require.NoError(t, err)

	var rows int
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			rows++
		}
	}
	assert.Equal(t, 10, rows, "100 個週期應記錄 floor(100/10)=10 列資料")
}

// Stop 自掃描迴圈以外的 goroutine 呼叫，與進行中的週期並行
func TestEngine_StopWhileRunLoopActive(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.Device.CyclePeriod = 10 * time.Millisecond

	engine := NewEngine(cfg, zap.NewNop())
	require.NoError(t, engine.Start())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	// 讓掃描迴圈先跑過幾個週期
	time.Sleep(50 * time.Millisecond)
	engine.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("掃描迴圈未在停止後結束")
	}

	assert.Equal(t, EngineStateStopped, engine.State())
	snap := engine.Snapshot()
	assert.False(t, snap.Running)
	assert.Greater(t, snap.CycleCount, uint32(0), "停止前應至少完成一個週期")
}

func TestEngine_StartTwice(t *testing.T) {
	cfg := testEngineConfig(t)
	engine, _ := startTestEngine(t, cfg)

	assert.Error(t, engine.Start(), "重複啟動應回傳錯誤")
}

func TestEngine_StateTransitions(t *testing.T) {
	cfg := testEngineConfig(t)
	engine := NewEngine(cfg, zap.NewNop())

	assert.Equal(t, EngineStateStopped, engine.State())

	require.NoError(t, engine.Start())
	assert.Equal(t, EngineStateRunning, engine.State())
	assert.True(t, engine.Snapshot().Running)

	engine.Stop()
	assert.Equal(t, EngineStateStopped, engine.State())
	assert.False(t, engine.Snapshot().Running)
}

// 控制埠被占用時該通道停用，掃描週期照常運行 (退化模式)
func TestEngine_DegradedWithoutControlChannel(t *testing.T) {
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer blocker.Close()

	cfg := testEngineConfig(t)
	cfg.Control.Port = blocker.Addr().(*net.TCPAddr).Port

	engine, base := startTestEngine(t, cfg)
	assert.Nil(t, engine.control, "埠被占用時控制通道應停用")

	// 掃描週期不受影響
	require.True(t, engine.Tick(base.Add(cfg.Device.CyclePeriod)))
	assert.Equal(t, uint32(1), engine.Snapshot().CycleCount)
}

func TestEngineState_String(t *testing.T) {
	tests := []struct {
		state    EngineState
		expected string
	}{
		{EngineStateStopped, "stopped"},
		{EngineStateStarting, "starting"},
		{EngineStateRunning, "running"},
		{EngineStateStopping, "stopping"},
		{EngineState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}
