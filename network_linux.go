//go:build linux

package main

import (
	"context"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"go.uber.org/zap"
)

// LinuxProvisioner Linux 網路配置器 (netlink)
type LinuxProvisioner struct {
	BaseProvisioner
	link netlink.Link
}

func newPlatformProvisioner(interfaceName string, logger *zap.Logger) NetworkProvisioner {
	return &LinuxProvisioner{
		BaseProvisioner: BaseProvisioner{
			InterfaceName: interfaceName,
			Logger:        logger,
		},
	}
}

// Setup 配置設備虛擬 IP (使用 netlink)
func (p *LinuxProvisioner) Setup(ctx context.Context, address string) error {
	ip, err := parseDeviceIP(address)
	if err != nil {
		return err
	}

	link, err := netlink.LinkByName(p.InterfaceName)
	if err != nil {
		return fmt.Errorf("找不到網路介面 %s: %w", p.InterfaceName, err)
	}
	p.link = link

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	addr := &netlink.Addr{
		IPNet: &net.IPNet{
			IP:   ip,
			Mask: net.CIDRMask(32, 32),
		},
	}

	if err := netlink.AddrAdd(link, addr); err != nil {
		// 如果 IP 已存在，忽略錯誤
		if err.Error() == "file exists" {
			p.Logger.Debug("IP 已存在", zap.String("ip", ip.String()))
			p.ConfiguredIP = ip
			return nil
		}
		return fmt.Errorf("添加 IP %s 失敗: %w", ip.String(), err)
	}

	p.ConfiguredIP = ip
	p.Logger.Info("設備虛擬 IP 設置完成",
		zap.String("interface", p.InterfaceName),
		zap.String("ip", ip.String()),
	)

	return nil
}

// Teardown 移除設備虛擬 IP
func (p *LinuxProvisioner) Teardown(ctx context.Context, address string) error {
	target := p.ConfiguredIP
	if address != "" {
		ip, err := parseDeviceIP(address)
		if err != nil {
			return err
		}
		target = ip
	}
	if target == nil {
		return nil
	}

	if p.link == nil {
		link, err := netlink.LinkByName(p.InterfaceName)
		if err != nil {
			return fmt.Errorf("找不到網路介面 %s: %w", p.InterfaceName, err)
		}
		p.link = link
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	addr := &netlink.Addr{
		IPNet: &net.IPNet{
			IP:   target,
			Mask: net.CIDRMask(32, 32),
		},
	}

	if err := netlink.AddrDel(p.link, addr); err != nil {
		return fmt.Errorf("移除 IP %s 失敗: %w", target.String(), err)
	}

	p.Logger.Info("設備虛擬 IP 已移除", zap.String("ip", target.String()))
	p.ConfiguredIP = nil

	return nil
}

// List 列出介面上的 IPv4 位址
func (p *LinuxProvisioner) List(ctx context.Context) ([]net.IP, error) {
	link, err := netlink.LinkByName(p.InterfaceName)
	if err != nil {
		return nil, fmt.Errorf("找不到網路介面 %s: %w", p.InterfaceName, err)
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("列出 IP 失敗: %w", err)
	}

	var ips []net.IP
	for _, addr := range addrs {
		ips = append(ips, addr.IP)
	}

	return ips, nil
}
