package main

import (
	"math"
	"math/rand"
	"os"
)

// 溫度感測器的合理物理範圍 (raw ADC 單位)
const (
	tempFloor   = 600
	tempCeil    = 900
	pressureMin = 400
	pressureMax = 600
)

// SensorSimulator 模擬感測器輸入源。
// 給定固定種子時輸出為確定性; 運轉致能輸入可由
// 緊急停止標記檔強制為 0。
type SensorSimulator struct {
	rng          *rand.Rand
	mode         TransportMode
	estopPath    string
	pressureBase int
}

// NewSensorSimulator 建立感測器模擬器
func NewSensorSimulator(mode TransportMode, estopPath string, seed int64) *SensorSimulator {
	return &SensorSimulator{
		rng:          rand.New(rand.NewSource(seed)),
		mode:         mode,
		estopPath:    estopPath,
		pressureBase: 500,
	}
}

// Sample 產生下一組輸入取樣並寫入程序影像
func (s *SensorSimulator) Sample(img *ProcessImage) {
	// 溫度感測器: 基準 750 加上雜訊
	temp := 750 + s.rng.Intn(100)
	if s.mode == TransportPhysical {
		// 實體模式: 疊加緩慢的正弦漣波，更接近真實製程
		temp += int(20 * math.Sin(float64(img.CycleCount)/50.0))
	}
	img.Inputs[InputTemperature] = clampU16(temp, tempFloor, tempCeil)

	// 責務輸入: 200 週期方波
	if img.CycleCount%200 < 100 {
		img.Inputs[InputDutyCycle] = 1
	} else {
		img.Inputs[InputDutyCycle] = 0
	}

	// 運轉致能: 緊急停止標記存在時強制為 0
	if s.EstopActive() {
		img.Inputs[InputRunEnable] = 0
	} else {
		img.Inputs[InputRunEnable] = 1
	}

	// 壓力感測器: 帶漂移的隨機漫步
	s.pressureBase += s.rng.Intn(3) - 1
	if s.pressureBase < pressureMin {
		s.pressureBase = pressureMin
	}
	if s.pressureBase > pressureMax {
		s.pressureBase = pressureMax
	}
	img.Inputs[InputPressure] = uint16(s.pressureBase)
}

// EstopActive 檢查緊急停止標記檔是否存在
func (s *SensorSimulator) EstopActive() bool {
	if s.estopPath == "" {
		return false
	}
	_, err := os.Stat(s.estopPath)
	return err == nil
}

// clampU16 將值夾在 [lo, hi] 範圍內
func clampU16(v, lo, hi int) uint16 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return uint16(v)
}
