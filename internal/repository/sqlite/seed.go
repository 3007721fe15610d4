package sqlite

// defaultVendors is a small built-in OUI table covering devices common on
// home and lab networks. A full registry can be imported with ImportOUI.
var defaultVendors = map[string]string{
	"DC:A6:32": "Raspberry Pi",
	"B8:27:EB": "Raspberry Pi",
	"D8:3A:DD": "Raspberry Pi",
	"E4:5F:01": "Raspberry Pi",
	"00:1A:2B": "Cisco",
	"00:18:0A": "Cisco Meraki",
	"F0:9E:63": "Apple",
	"BC:D1:D3": "Apple",
	"00:03:93": "Apple",
	"00:17:F2": "Apple",
	"A4:83:E7": "Apple",
	"AC:29:3A": "Canon",
	"44:38:39": "Cumulus",
	"50:E5:49": "Gigabyte",
	"00:11:32": "Synology",
	"24:8D:76": "Espressif",
	"84:F3:EB": "Espressif",
	"24:0A:C4": "Espressif",
	"00:50:56": "VMware",
	"00:0C:29": "VMware",
	"52:54:00": "QEMU/KVM",
	"08:00:27": "VirtualBox",
	"00:15:5D": "Microsoft Hyper-V",
	"00:17:88": "Philips Hue",
	"18:B4:30": "Nest Labs",
	"F4:F5:D8": "Google",
	"44:65:0D": "Amazon",
	"5C:AA:FD": "Sonos",
	"74:83:C2": "Ubiquiti",
	"FC:EC:DA": "Ubiquiti",
	"A0:63:91": "Netgear",
	"50:C7:BF": "TP-Link",
	"00:E0:4C": "Realtek",
	"00:80:77": "Brother",
	"00:00:48": "Epson",
}
