package discovery

import (
	"strings"
	"testing"

	"lanscope/internal/domain"
)

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF", true},
		{"AA-BB-CC-DD-EE-01", "AA:BB:CC:DD:EE:01", true},
		{"0:1a:2b:3:4:5", "00:1A:2B:03:04:05", true},
		{"00:00:00:00:00:00", "", false},
		{"ff:ff:ff:ff:ff:ff", "", false},
		{"aa:bb:cc:dd:ee", "", false},
		{"aa:bb:cc:dd:ee:gg", "", false},
		{"aaa:bb:cc:dd:ee:ff", "", false},
		{"(incomplete)", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeMAC(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeMAC(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseProcNetARP(t *testing.T) {
	input := `IP address       HW type     Flags       HW address            Mask     Device
192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:01     *        eth0
192.168.1.20     0x1         0x6         aa:bb:cc:dd:ee:14     *        eth0
192.168.1.30     0x1         0x0         00:00:00:00:00:00     *        eth0
192.168.1.40     0x1         0x4         aa:bb:cc:dd:ee:28     *        eth0
garbage line
fe80::1          0x1         0x2         aa:bb:cc:dd:ee:99     *        eth0
`
	entries := ParseProcNetARP(strings.NewReader(input))
	want := []domain.ArpEntry{
		{IP: "192.168.1.1", MAC: "AA:BB:CC:DD:EE:01", Type: domain.ArpDynamic},
		{IP: "192.168.1.20", MAC: "AA:BB:CC:DD:EE:14", Type: domain.ArpStatic},
		{IP: "192.168.1.40", MAC: "AA:BB:CC:DD:EE:28", Type: domain.ArpUnknown},
	}
	if len(entries) != len(want) {
		t.Fatalf("entries = %+v, want %+v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestParseProcNetARPEmpty(t *testing.T) {
	entries := ParseProcNetARP(strings.NewReader(""))
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %#v, want empty non-nil", entries)
	}
}

func TestParseArpADarwin(t *testing.T) {
	input := `? (192.168.1.1) at 0:1a:2b:3c:4d:5e on en0 ifscope [ethernet]
? (192.168.1.5) at (incomplete) on en0 ifscope [ethernet]
router.lan (192.168.1.254) at aa:bb:cc:dd:ee:ff on en0 ifscope permanent [ethernet]
? (224.0.0.251) at 1:0:5e:0:0:fb on en0 ifscope permanent [ethernet]
`
	entries := ParseArpA(input)
	if len(entries) != 3 {
		t.Fatalf("entries = %+v, want 3", entries)
	}
	if entries[0].MAC != "00:1A:2B:3C:4D:5E" || entries[0].Type != domain.ArpDynamic {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].IP != "192.168.1.254" || entries[1].Type != domain.ArpStatic {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestParseArpAWindows(t *testing.T) {
	input := "\r\nInterface: 192.168.1.10 --- 0xb\r\n" +
		"  Internet Address      Physical Address      Type\r\n" +
		"  192.168.1.1           aa-bb-cc-dd-ee-01     dynamic   \r\n" +
		"  192.168.1.255         ff-ff-ff-ff-ff-ff     static    \r\n" +
		"  224.0.0.22            01-00-5e-00-00-16     static    \r\n"
	entries := ParseArpA(input)
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want 2", entries)
	}
	if entries[0] != (domain.ArpEntry{IP: "192.168.1.1", MAC: "AA:BB:CC:DD:EE:01", Type: domain.ArpDynamic}) {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Type != domain.ArpStatic {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}
