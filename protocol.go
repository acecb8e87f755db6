package main

// 程序影像尺寸 (2004 年代 PLC 的典型配置)
const (
	MaxInputs    = 16
	MaxOutputs   = 16
	MaxRegisters = 256

	// 控制協議常數
	CommandBufferSize = 256
	DefaultControlPort = 9001

	// 管理協議常數
	DefaultManagementPort = 9080

	// Modbus 閘道常數
	DefaultModbusPort = 1502
)

// 控制協議回應符記
const (
	RespErrUnknown = "ERR0" // 未知命令
	RespErrAddress = "ERR1" // 位址無效或超出範圍
	CRLF           = "\r\n"
)

// TimestampLayout 傳統 PLC 的時間戳格式 (YYYY-MM-DD HH:MM:SS)
const TimestampLayout = "2006-01-02 15:04:05"

// 輸入通道的固定角色
const (
	InputTemperature = 0 // 溫度感測器原始值 (raw ADC)
	InputDutyCycle   = 1 // 週期性責務輸入
	InputRunEnable   = 2 // 運轉致能
	InputPressure    = 3 // 壓力感測器原始值
)

// 輸出通道的固定角色
const (
	OutputHeater    = 0  // 加熱器命令
	OutputAlarm     = 1  // 高溫警報
	OutputHeartbeat = 15 // 心跳指示
)

// 暫存器的固定角色
const (
	RegSetpoint       = 0   // 溫度設定點
	RegAlarmThreshold = 1   // 警報門檻
	RegTimerPreset    = 2   // 計時器預設值
	RegDeviceID       = 10  // 設備 ID
	RegCycleLow       = 20  // 週期計數低 16 位元
	RegMirrorTemp     = 100 // 溫度鏡像
	RegMirrorHeater   = 101 // 加熱器狀態鏡像
)

// 暫存器預設值
const (
	DefaultSetpoint       = 100
	DefaultAlarmThreshold = 50
	DefaultTimerPreset    = 1000
	DefaultDeviceID       = 0x1234
)

// 錯誤碼位元遮罩
const (
	ErrBitHighTemp = 0x01 // 高溫警報
)

// CommandKind 控制協議命令類型
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdReadInput
	CmdReadOutput
	CmdReadRegister
	CmdStatus
)

func (k CommandKind) String() string {
	switch k {
	case CmdReadInput:
		return "RI"
	case CmdReadOutput:
		return "RO"
	case CmdReadRegister:
		return "RR"
	case CmdStatus:
		return "STATUS"
	default:
		return "unknown"
	}
}

// TransportMode 部署傳輸模式
type TransportMode string

const (
	TransportVirtual  TransportMode = "virtual"  // 虛擬部署: 高埠號、純模擬輸入
	TransportPhysical TransportMode = "physical" // 實體部署: 設備埠號、含漣波的輸入
)

// Valid 檢查傳輸模式是否有效
func (m TransportMode) Valid() bool {
	return m == TransportVirtual || m == TransportPhysical
}
