package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Command 解析後的控制協議命令。
// 文法被解析為封閉的變體集合，再交由 FormatResponse 產生回應，
// 使文法與回應格式可以獨立測試。
type Command struct {
	Kind CommandKind
	Addr int // 讀取類命令的位址; 解析失敗時為 -1
}

// ParseCommand 解析 ASCII 命令 (大小寫敏感)。
// 僅容忍單一結尾換行; 非數字位址解析為 -1，
// 由回應階段判定為位址錯誤。
func ParseCommand(raw string) Command {
	line := strings.TrimSuffix(raw, "\n")
	line = strings.TrimSuffix(line, "\r")

	switch {
	case strings.HasPrefix(line, "RI"):
		return Command{Kind: CmdReadInput, Addr: parseAddr(line[2:])}
	case strings.HasPrefix(line, "RO"):
		return Command{Kind: CmdReadOutput, Addr: parseAddr(line[2:])}
	case strings.HasPrefix(line, "RR"):
		return Command{Kind: CmdReadRegister, Addr: parseAddr(line[2:])}
	case strings.HasPrefix(line, "STATUS"):
		return Command{Kind: CmdStatus}
	default:
		return Command{Kind: CmdUnknown}
	}
}

// parseAddr 解析位址後綴; 非數字、負數或溢位一律回傳 -1
func parseAddr(s string) int {
	addr, err := strconv.Atoi(s)
	if err != nil || addr < 0 {
		return -1
	}
	return addr
}

// FormatResponse 根據命令與快照產生回應 (含 CRLF 結尾)。
// 讀取類命令回應 4 位零填補十進位值; 位址無效回應 ERR1;
// 未知命令回應 ERR0。
func FormatResponse(cmd Command, snap *Snapshot, now time.Time) string {
	switch cmd.Kind {
	case CmdReadInput:
		return formatValue(snap.ReadInput(cmd.Addr))
	case CmdReadOutput:
		return formatValue(snap.ReadOutput(cmd.Addr))
	case CmdReadRegister:
		return formatValue(snap.ReadRegister(cmd.Addr))
	case CmdStatus:
		return fmt.Sprintf("%s,%08d,%02x,%s%s",
			snap.StateString(), snap.CycleCount, snap.ErrorCodes,
			now.Format(TimestampLayout), CRLF)
	default:
		return RespErrUnknown + CRLF
	}
}

func formatValue(v uint16, err error) string {
	if err != nil {
		return RespErrAddress + CRLF
	}
	return fmt.Sprintf("%04d%s", v, CRLF)
}
