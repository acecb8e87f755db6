package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// CycleLogger 週期資料記錄器: 每 N 個週期附加一列 CSV 到
// 記錄檔。記錄為盡力而為; 開檔或寫入失敗時該通道靜默退化，
// 不影響掃描週期。
type CycleLogger struct {
	file     *os.File
	interval uint32
	logger   *zap.Logger
}

// NewCycleLogger 開啟記錄檔並寫入檔頭註解。
// path 為空或開檔失敗時回傳停用的記錄器。
func NewCycleLogger(path string, interval uint32, logger *zap.Logger) *CycleLogger {
	cl := &CycleLogger{interval: interval, logger: logger}
	if interval == 0 {
		cl.interval = 1
	}
	if path == "" {
		return cl
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Warn("開啟記錄檔失敗，記錄功能停用",
			zap.String("path", path),
			zap.Error(err),
		)
		return cl
	}
	cl.file = f

	fmt.Fprintf(f, "# PLC Data Log - Started %s\n", time.Now().Format(TimestampLayout))
	fmt.Fprintf(f, "# Format: TIMESTAMP,CYCLE,I0-I3,O0-O3,ERR\n")
	return cl
}

// Enabled 回傳記錄通道是否可用
func (cl *CycleLogger) Enabled() bool {
	return cl.file != nil
}

// MaybeWrite 在記錄間隔的週期附加一列資料
func (cl *CycleLogger) MaybeWrite(snap *Snapshot, now time.Time) {
	if cl.file == nil || snap.CycleCount%cl.interval != 0 {
		return
	}

	row := fmt.Sprintf("%s,%d,%d,%d,%d,%d,%d,%d,%d,%d,%x\n",
		now.Format(TimestampLayout), snap.CycleCount,
		snap.Inputs[0], snap.Inputs[1], snap.Inputs[2], snap.Inputs[3],
		snap.Outputs[0], snap.Outputs[1], snap.Outputs[2], snap.Outputs[3],
		snap.ErrorCodes)

	if _, err := cl.file.WriteString(row); err != nil {
		cl.logger.Debug("寫入記錄檔失敗", zap.Error(err))
	}
}

// Close 寫入檔尾註解並關閉記錄檔
func (cl *CycleLogger) Close() {
	if cl.file == nil {
		return
	}
	fmt.Fprintf(cl.file, "# PLC Shutdown - %s\n", time.Now().Format(TimestampLayout))
	cl.file.Close()
	cl.file = nil
}
