package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildDefaultTable(t *testing.T) {
	r, err := Build(DefaultTable())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if r.Len() != len(DefaultTable()) {
		t.Errorf("Len = %d, want %d", r.Len(), len(DefaultTable()))
	}

	cmd, ok := r.ByKey("getDateTime")
	if !ok {
		t.Fatal("getDateTime not found")
	}
	if cmd.CID1 != 0x40 || cmd.CID2 != 0x4D {
		t.Errorf("wire id = (0x%02X,0x%02X)", cmd.CID1, cmd.CID2)
	}
	if cmd.NewRequest != nil {
		t.Error("getDateTime should have no request record")
	}
	if cmd.NewResponse == nil {
		t.Error("getDateTime should have a response record")
	}

	// 双索引指向同一实例
	byWire, ok := r.ByWire(0x40, 0x4D)
	if !ok || byWire != cmd {
		t.Error("ByWire and ByKey should return the same Command")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{
			name: "重复wire id",
			entries: []Entry{
				{CID1: 0x40, CID2: 0x4D, Key: "a"},
				{CID1: 0x40, CID2: 0x4D, Key: "b"},
			},
		},
		{
			name: "重复key",
			entries: []Entry{
				{CID1: 0x40, CID2: 0x4D, Key: "a"},
				{CID1: 0x40, CID2: 0x4E, Key: "a"},
			},
		},
		{
			name: "未知请求记录类型",
			entries: []Entry{
				{CID1: 0x40, CID2: 0x4D, Key: "a", Request: "NoSuchRecord"},
			},
		},
		{
			name: "未知应答记录类型",
			entries: []Entry{
				{CID1: 0x40, CID2: 0x4D, Key: "a", Response: "NoSuchRecord"},
			},
		},
		{
			name:    "空key",
			entries: []Entry{{CID1: 0x40, CID2: 0x4D}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.entries); !errors.Is(err, ErrConfig) {
				t.Errorf("Build err = %v, want ErrConfig", err)
			}
		})
	}
}

func TestLookupUnknownKey(t *testing.T) {
	r, err := Build(DefaultTable())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.ByKey("doesNotExist"); ok {
		t.Error("doesNotExist should not resolve")
	}
	if _, ok := r.ByWire(0x7F, 0x7F); ok {
		t.Error("unknown wire id should not resolve")
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.yaml")
	content := `commands:
  - cid1: 0x60
    cid2: 0x41
    key: getCustomData
    name: custom telemetry
    response: EnvData
  - cid1: 0x60
    cid2: 0x45
    key: setCustomClock
    name: custom clock
    request: DateTime
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].CID1 != 0x60 || entries[0].Response != "EnvData" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}

	r, err := Build(entries)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, ok := r.ByKey("getCustomData"); !ok {
		t.Error("getCustomData not found")
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	if _, err := LoadTable("/no/such/table.yaml"); err == nil {
		t.Error("LoadTable should fail on missing file")
	}
}
