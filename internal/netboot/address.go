// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package netboot

import (
	"net"

	"github.com/vishvananda/netlink"
)

// ServerIP returns the first IPv4 address of the named interface. It is the
// address the board is connected to and so the one it should request files
// from.
func ServerIP(iface string) (net.IP, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return nil, &InterfaceError{Name: iface, Err: err}
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, &InterfaceError{Name: iface, Err: err}
	}

	for _, addr := range addrs {
		if addr.IP.IsLinkLocalUnicast() {
			continue
		}

		return addr.IP, nil
	}

	return nil, &InterfaceError{Name: iface, Err: ErrNoAddress}
}
