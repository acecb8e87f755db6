package main

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
)

// NetworkProvisioner 設備網路配置器介面。
// 實體部署時在指定介面上配置設備的虛擬 IP，
// 讓模擬器以獨立位址出現在控制網路上。
type NetworkProvisioner interface {
	// Setup 配置設備虛擬 IP
	Setup(ctx context.Context, address string) error

	// Teardown 移除設備 IP; address 為空時移除 Setup 配置的位址
	Teardown(ctx context.Context, address string) error

	// List 列出介面上的 IPv4 位址
	List(ctx context.Context) ([]net.IP, error)
}

// NewNetworkProvisioner 建立網路配置器
func NewNetworkProvisioner(interfaceName string, logger *zap.Logger) NetworkProvisioner {
	return newPlatformProvisioner(interfaceName, logger)
}

// BaseProvisioner 基礎配置器 (共用邏輯)
type BaseProvisioner struct {
	InterfaceName string
	Logger        *zap.Logger
	ConfiguredIP  net.IP
}

// parseDeviceIP 驗證並解析設備 IPv4 位址
func parseDeviceIP(address string) (net.IP, error) {
	ip := net.ParseIP(address)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("無效的設備 IP: %s", address)
	}
	return ip.To4(), nil
}

// appendUnique 將 ip 附加到清單，已存在時略過
func appendUnique(ips []net.IP, ip net.IP) []net.IP {
	for _, existing := range ips {
		if existing.Equal(ip) {
			return ips
		}
	}
	return append(ips, ip)
}
