package main

import (
	"fmt"

	"github.com/tbrandon/mbserver"
	"go.uber.org/zap"
)

// Modbus 閘道的映射配置:
//   Holding Registers 0-255 = 暫存器
//   Input Registers   0-15  = 輸入
//   Input Registers  16-31  = 輸出
const modbusInputSpan = MaxInputs + MaxOutputs

// ModbusGateway 唯讀 Modbus TCP 閘道。2004 年代的 PLC 通常
// 同時提供 Modbus 介面; 閘道於每個週期提交後同步一次快照，
// 對外永遠呈現一致的程序影像。
type ModbusGateway struct {
	server *mbserver.Server
	addr   string
	logger *zap.Logger
}

// NewModbusGateway 建立 Modbus 閘道
func NewModbusGateway(addr string, logger *zap.Logger) *ModbusGateway {
	return &ModbusGateway{
		addr:   addr,
		logger: logger,
	}
}

// Start 啟動閘道 (ListenTCP 同步建立 listener，內部以 goroutine accept)
func (g *ModbusGateway) Start() error {
	g.server = mbserver.NewServer()
	g.server.HoldingRegisters = make([]uint16, MaxRegisters)
	g.server.InputRegisters = make([]uint16, modbusInputSpan)

	if err := g.server.ListenTCP(g.addr); err != nil {
		g.server = nil
		return fmt.Errorf("監聽 Modbus 埠 %s 失敗: %w", g.addr, err)
	}

	g.logger.Info("Modbus 閘道已啟動", zap.String("addr", g.addr))
	return nil
}

// Sync 將提交後的快照同步到 Modbus 暫存器區
func (g *ModbusGateway) Sync(snap *Snapshot) {
	if g.server == nil {
		return
	}

	holding := make([]uint16, MaxRegisters)
	copy(holding, snap.Registers[:])
	g.server.HoldingRegisters = holding

	input := make([]uint16, modbusInputSpan)
	copy(input[:MaxInputs], snap.Inputs[:])
	copy(input[MaxInputs:], snap.Outputs[:])
	g.server.InputRegisters = input
}

// Close 關閉閘道
func (g *ModbusGateway) Close() {
	if g.server != nil {
		g.server.Close()
		g.server = nil
	}
}
