package main

import "fmt"

// ProcessImage 程序影像: 輸入、輸出、暫存器與狀態旗標的集合。
// 由掃描引擎獨占持有並於每個週期更新一次; 協議伺服器只透過
// Snapshot() 取得提交後的唯讀複本，因此不需要鎖。
type ProcessImage struct {
	Running    bool
	CycleCount uint32
	Inputs     [MaxInputs]uint16
	Outputs    [MaxOutputs]uint16
	Registers  [MaxRegisters]uint16
	ErrorCodes uint8
	LastError  string
}

// NewProcessImage 建立程序影像並載入暫存器預設值
func NewProcessImage() *ProcessImage {
	img := &ProcessImage{}
	img.LoadDefaults()
	return img
}

// LoadDefaults 載入典型的出廠暫存器配置
func (img *ProcessImage) LoadDefaults() {
	img.Registers[RegSetpoint] = DefaultSetpoint
	img.Registers[RegAlarmThreshold] = DefaultAlarmThreshold
	img.Registers[RegTimerPreset] = DefaultTimerPreset
	img.Registers[RegDeviceID] = DefaultDeviceID
}

// Snapshot 程序影像的唯讀值複本 (陣列為值型別，複製即隔離)
type Snapshot struct {
	Running    bool
	CycleCount uint32
	Inputs     [MaxInputs]uint16
	Outputs    [MaxOutputs]uint16
	Registers  [MaxRegisters]uint16
	ErrorCodes uint8
	LastError  string
}

// Snapshot 取得當前程序影像的值複本
func (img *ProcessImage) Snapshot() Snapshot {
	return Snapshot{
		Running:    img.Running,
		CycleCount: img.CycleCount,
		Inputs:     img.Inputs,
		Outputs:    img.Outputs,
		Registers:  img.Registers,
		ErrorCodes: img.ErrorCodes,
		LastError:  img.LastError,
	}
}

// ReadInput 讀取輸入值，位址越界回傳錯誤
func (s *Snapshot) ReadInput(addr int) (uint16, error) {
	if addr < 0 || addr >= MaxInputs {
		return 0, fmt.Errorf("輸入位址超出範圍: %d", addr)
	}
	return s.Inputs[addr], nil
}

// ReadOutput 讀取輸出值，位址越界回傳錯誤
func (s *Snapshot) ReadOutput(addr int) (uint16, error) {
	if addr < 0 || addr >= MaxOutputs {
		return 0, fmt.Errorf("輸出位址超出範圍: %d", addr)
	}
	return s.Outputs[addr], nil
}

// ReadRegister 讀取暫存器值，位址越界回傳錯誤
func (s *Snapshot) ReadRegister(addr int) (uint16, error) {
	if addr < 0 || addr >= MaxRegisters {
		return 0, fmt.Errorf("暫存器位址超出範圍: %d", addr)
	}
	return s.Registers[addr], nil
}

// StateString 回傳運轉狀態字串
func (s *Snapshot) StateString() string {
	if s.Running {
		return "RUN"
	}
	return "STOP"
}
