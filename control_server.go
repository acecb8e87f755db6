package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// 輪詢寬限: 單一週期內 accept/read 允許的最大等待時間。
// 遠小於掃描週期，確保任何一拍都不會阻塞迴圈。
const (
	acceptGrace = time.Millisecond
	readGrace   = 5 * time.Millisecond
	writeGrace  = 50 * time.Millisecond
)

// ControlServer 控制協議伺服器: 模擬傳統現場匯流排閘道。
// 每個週期最多接受一條連線、處理一個 ASCII 命令、同步回覆後
// 立即關閉連線 (無 keep-alive、無管線化)。
type ControlServer struct {
	listener *net.TCPListener
	logger   *zap.Logger
}

// NewControlServer 建立控制協議伺服器並綁定埠號
func NewControlServer(addr string, logger *zap.Logger) (*ControlServer, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("綁定控制埠 %s 失敗: %w", addr, err)
	}
	return &ControlServer{
		listener: l.(*net.TCPListener),
		logger:   logger,
	}, nil
}

// Addr 回傳實際監聽位址
func (s *ControlServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Poll 服務本週期的單一連線。沒有連線等待不是錯誤;
// 已連線但未及時送出命令的客戶端會被直接斷開。
func (s *ControlServer) Poll(snap *Snapshot, now time.Time) {
	if err := s.listener.SetDeadline(now.Add(acceptGrace)); err != nil {
		return
	}

	conn, err := s.listener.Accept()
	if err != nil {
		if !isTimeout(err) {
			s.logger.Warn("控制協議 accept 失敗", zap.Error(err))
		}
		return
	}
	defer conn.Close()

	buf := make([]byte, CommandBufferSize)
	conn.SetReadDeadline(now.Add(readGrace))
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		// 未及時送出命令，不回應直接斷線
		return
	}

	cmd := ParseCommand(string(buf[:n]))
	resp := FormatResponse(cmd, snap, now)

	conn.SetWriteDeadline(now.Add(writeGrace))
	if _, err := conn.Write([]byte(resp)); err != nil {
		s.logger.Debug("控制協議回應寫入失敗", zap.Error(err))
	}
}

// Close 關閉監聽
func (s *ControlServer) Close() error {
	return s.listener.Close()
}

// isTimeout 判斷是否為輪詢逾時 (本週期沒有待處理連線)
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
