//go:build !linux

package main

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
)

// StubProvisioner 非 Linux 平台的 stub 配置器
type StubProvisioner struct {
	BaseProvisioner
}

func newPlatformProvisioner(interfaceName string, logger *zap.Logger) NetworkProvisioner {
	return &StubProvisioner{
		BaseProvisioner: BaseProvisioner{
			InterfaceName: interfaceName,
			Logger:        logger,
		},
	}
}

// Setup 配置設備虛擬 IP (stub)
func (p *StubProvisioner) Setup(ctx context.Context, address string) error {
	ip, err := parseDeviceIP(address)
	if err != nil {
		return err
	}

	p.Logger.Warn("虛擬 IP 配置僅在 Linux 上支援，使用模擬模式",
		zap.String("interface", p.InterfaceName),
		zap.String("ip", ip.String()),
	)

	// 在非 Linux 平台，只記錄 IP 但不實際配置
	p.ConfiguredIP = ip

	return nil
}

// Teardown 移除設備虛擬 IP (stub)
func (p *StubProvisioner) Teardown(ctx context.Context, address string) error {
	p.Logger.Warn("虛擬 IP 移除僅在 Linux 上支援，使用模擬模式",
		zap.String("interface", p.InterfaceName),
	)

	p.ConfiguredIP = nil
	return nil
}

// List 列出本機的 IPv4 位址 (stub)
func (p *StubProvisioner) List(ctx context.Context) ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("取得本地 IP 失敗: %w", err)
	}

	var ips []net.IP
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() {
			if ipNet.IP.To4() != nil {
				ips = append(ips, ipNet.IP)
			}
		}
	}

	if p.ConfiguredIP != nil {
		ips = appendUnique(ips, p.ConfiguredIP)
	}

	return ips, nil
}
