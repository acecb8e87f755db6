package main

// LadderProgram 固定控制程式 ("階梯邏輯")。
// 每個週期依固定順序評估各梯級; 對所有輸入皆為全函數，
// 越界值以 uint16 迴繞算術處理，不產生錯誤。
type LadderProgram struct{}

// Execute 評估控制邏輯: 依序執行五個梯級，更新輸出、
// 暫存器與錯誤碼。在任何協議處理器觀察結果之前完成。
func (p *LadderProgram) Execute(img *ProcessImage) {
	// Rung 1: 運轉致能
	runEnable := img.Inputs[InputRunEnable] == 1

	// Rung 2: 溫度控制, 低於設定點時啟動加熱器
	if runEnable && img.Inputs[InputTemperature] < img.Registers[RegSetpoint] {
		img.Outputs[OutputHeater] = 1
	} else {
		img.Outputs[OutputHeater] = 0
	}

	// Rung 3: 高溫警報, 警報輸出與錯誤位元必須一致
	if img.Inputs[InputTemperature] > img.Registers[RegAlarmThreshold] {
		img.Outputs[OutputAlarm] = 1
		img.ErrorCodes |= ErrBitHighTemp
	} else {
		img.Outputs[OutputAlarm] = 0
		img.ErrorCodes &^= ErrBitHighTemp
	}

	// Rung 4: 週期計數器輸出
	img.Registers[RegCycleLow] = uint16(img.CycleCount & 0xFFFF)

	// Rung 5: 心跳指示 (10 週期方波)
	if img.CycleCount%10 < 5 {
		img.Outputs[OutputHeartbeat] = 1
	} else {
		img.Outputs[OutputHeartbeat] = 0
	}
}

// Commit 輸出提交階段: 更新衍生暫存器鏡像
func (p *LadderProgram) Commit(img *ProcessImage) {
	img.Registers[RegMirrorTemp] = img.Inputs[InputTemperature]
	img.Registers[RegMirrorHeater] = img.Outputs[OutputHeater]
}
