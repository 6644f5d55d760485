package fleet

import (
	"strings"
	"testing"

	"phonefleet/internal/tabular"
)

const deviceHeader = "id,users_id,states_id,phonemodels_id,date_creation,comment,contact,date_mod,name"

func mustDevices(t *testing.T, rows ...string) *DeviceSet {
	t.Helper()
	content := deviceHeader + "\n" + strings.Join(rows, "\n") + "\n"
	table, err := tabular.Read(strings.NewReader(content), tabular.ReadOptions{})
	if err != nil {
		t.Fatalf("read devices: %v", err)
	}
	set, err := NewDeviceSet(table)
	if err != nil {
		t.Fatalf("NewDeviceSet: %v", err)
	}
	return set
}

func mustTable(t *testing.T, content string) *tabular.Table {
	t.Helper()
	table, err := tabular.Read(strings.NewReader(content), tabular.ReadOptions{})
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	return table
}

func column(set *DeviceSet, name string) []string {
	values := make([]string, 0, set.Len())
	for _, rec := range set.Records {
		values = append(values, rec.Value(name))
	}
	return values
}
