package fleet

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"phonefleet/internal/tabular"
)

func TestNewDeviceSetRequiresColumns(t *testing.T) {
	table := mustTable(t, "id,users_id,states_id\n1,2,2\n")
	_, err := NewDeviceSet(table)
	if !errors.Is(err, tabular.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

func TestDeviceSetKeepsExtraColumnsAndOrder(t *testing.T) {
	table := mustTable(t, "serial,"+deviceHeader+"\nSN1,1,5,2,3,,,,2024-01-01 00:00:00,Pixel 8\n")
	set, err := NewDeviceSet(table)
	if err != nil {
		t.Fatalf("NewDeviceSet: %v", err)
	}
	out := set.Table()
	if diff := cmp.Diff(table.Header, out.Header); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(table.Rows, out.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if got := set.Records[0].Name(); got != "Pixel 8" {
		t.Fatalf("Name = %q", got)
	}
}

func TestRecordClassification(t *testing.T) {
	tests := []struct {
		users, states string
		isolated      bool
		active        bool
	}{
		{users: "0", states: "2", isolated: true},
		{users: "0.0", states: "2.0", isolated: true},
		{users: "0", states: "1"},
		{users: "", states: "2"},
		{users: "abc", states: "2"},
		{users: "5", states: "2", active: true},
		{users: "5.0", states: "2", active: true},
		{users: "5", states: "3"},
		{users: "-1", states: "2"},
	}
	for _, tt := range tests {
		set := mustDevices(t, "1,"+tt.users+","+tt.states+",,,,,,x")
		rec := set.Records[0]
		if rec.Isolated() != tt.isolated {
			t.Fatalf("users=%q states=%q: Isolated = %v", tt.users, tt.states, rec.Isolated())
		}
		if rec.ActiveAssignment() != tt.active {
			t.Fatalf("users=%q states=%q: ActiveAssignment = %v", tt.users, tt.states, rec.ActiveAssignment())
		}
	}
}

func TestCanonicalUserID(t *testing.T) {
	tests := map[string]UserID{
		"5":     "5",
		" 5.0 ": "5",
		"007":   "7",
		"abc":   "abc",
		"5.5":   "5.5",
		"":      "",
	}
	for raw, want := range tests {
		if got := CanonicalUserID(raw); got != want {
			t.Fatalf("CanonicalUserID(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestCompareUserIDs(t *testing.T) {
	ids := []UserID{"b", "10", "a", "9", "2"}
	sortIDs(ids)
	want := []UserID{"2", "9", "10", "a", "b"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func sortIDs(ids []UserID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && compareUserIDs(ids[j-1], ids[j]) > 0; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

func TestPhoneModelIndex(t *testing.T) {
	table := mustTable(t, "modele_id,date_modification\n3,2020-05-05 10:00:00\n4.0,2021-01-01\nxx,2019-01-01\n3,2020-06-06 11:00:00\n")
	index, err := NewPhoneModelIndex(table)
	if err != nil {
		t.Fatalf("NewPhoneModelIndex: %v", err)
	}
	if got, ok := index.Lookup("3.0"); !ok || got != "2020-06-06 11:00:00" {
		t.Fatalf("Lookup(3.0) = %q, %v", got, ok)
	}
	if got, ok := index.Lookup("4"); !ok || got != "2021-01-01" {
		t.Fatalf("Lookup(4) = %q, %v", got, ok)
	}
	if _, ok := index.Lookup(""); ok {
		t.Fatal("empty id should not match")
	}
	if index.Len() != 2 {
		t.Fatalf("Len = %d", index.Len())
	}

	if _, err := NewPhoneModelIndex(mustTable(t, "modele_id\n1\n")); !errors.Is(err, tabular.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

func TestDirectory(t *testing.T) {
	dir, err := NewDirectory(mustTable(t, "utilisateur_id,nom_utilisateur\n7,Alice\n007,Bob\n9,\n"))
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	if !dir.Allows(" 7 ") || !dir.Allows("007") {
		t.Fatal("expected exact trimmed matches to be allowed")
	}
	if dir.Allows("7.0") || dir.Allows("") {
		t.Fatal("allow-list must not coerce")
	}
	if name, ok := dir.Name("9"); ok {
		t.Fatalf("empty name should be unknown, got %q", name)
	}
	if _, ok := dir.Name("42"); ok {
		t.Fatal("unknown id should not resolve")
	}
	if dir.Len() != 3 {
		t.Fatalf("Len = %d", dir.Len())
	}
}
