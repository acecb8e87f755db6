package main

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// DeviceInfo 設備識別資訊
type DeviceInfo struct {
	Model         string `json:"model"`
	Firmware      string `json:"firmware"`
	TransportMode string `json:"transport_mode"`
	DeviceID      uint16 `json:"device_id"`
	UptimeCycles  uint32 `json:"uptime_cycles"`
}

// StatusDocument 管理協議回應的 JSON 文件。
// 文件形狀跨週期固定，只有值隨週期變動。
type StatusDocument struct {
	DeviceInfo DeviceInfo `json:"device_info"`
	State      string     `json:"state"`
	ErrorCode  string     `json:"error_code"`
	LastError  string     `json:"last_error"`
	Inputs     []uint16   `json:"inputs"`
	Outputs    []uint16   `json:"outputs"`
	Registers  []uint16   `json:"registers"`
	Timestamp  string     `json:"timestamp"`
}

// BuildStatusDocument 從快照建立狀態文件
func BuildStatusDocument(snap *Snapshot, mode TransportMode, now time.Time) StatusDocument {
	return StatusDocument{
		DeviceInfo: DeviceInfo{
			Model:         "TSX-2004 (simulated)",
			Firmware:      Version,
			TransportMode: string(mode),
			DeviceID:      snap.Registers[RegDeviceID],
			UptimeCycles:  snap.CycleCount,
		},
		State:     snap.StateString(),
		ErrorCode: fmt.Sprintf("0x%02x", snap.ErrorCodes),
		LastError: snap.LastError,
		Inputs:    snap.Inputs[:],
		Outputs:   snap.Outputs[:],
		Registers: snap.Registers[:],
		Timestamp: now.Format(TimestampLayout),
	}
}

// ManagementServer 管理協議伺服器: 監控管理平面，
// 以最小 HTTP 回應提供程序影像的唯讀 JSON 快照。
// 任何請求 (甚至零位元組) 都觸發同一形狀的回應。
type ManagementServer struct {
	listener *net.TCPListener
	mode     TransportMode
	logger   *zap.Logger
}

// NewManagementServer 建立管理協議伺服器並綁定埠號
func NewManagementServer(addr string, mode TransportMode, logger *zap.Logger) (*ManagementServer, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("綁定管理埠 %s 失敗: %w", addr, err)
	}
	return &ManagementServer{
		listener: l.(*net.TCPListener),
		mode:     mode,
		logger:   logger,
	}, nil
}

// Addr 回傳實際監聽位址
func (s *ManagementServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Poll 服務本週期的單一連線: 不解析請求內容，
// 回覆固定形狀的 JSON 文件後關閉連線。
func (s *ManagementServer) Poll(snap *Snapshot, now time.Time) {
	if err := s.listener.SetDeadline(now.Add(acceptGrace)); err != nil {
		return
	}

	conn, err := s.listener.Accept()
	if err != nil {
		if !isTimeout(err) {
			s.logger.Warn("管理協議 accept 失敗", zap.Error(err))
		}
		return
	}
	defer conn.Close()

	// 清空請求 (內容不解析)
	buf := make([]byte, 1024)
	conn.SetReadDeadline(now.Add(readGrace))
	conn.Read(buf)

	doc := BuildStatusDocument(snap, s.mode, now)
	body, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn("狀態文件序列化失敗", zap.Error(err))
		return
	}

	resp := fmt.Sprintf("HTTP/1.1 200 OK\r\n"+
		"Content-Type: application/json\r\n"+
		"Cache-Control: no-cache\r\n"+
		"Access-Control-Allow-Origin: *\r\n"+
		"Connection: close\r\n"+
		"Content-Length: %d\r\n"+
		"\r\n", len(body))

	conn.SetWriteDeadline(now.Add(writeGrace))
	if _, err := conn.Write(append([]byte(resp), body...)); err != nil {
		s.logger.Debug("管理協議回應寫入失敗", zap.Error(err))
	}
}

// Close 關閉監聽
func (s *ManagementServer) Close() error {
	return s.listener.Close()
}
