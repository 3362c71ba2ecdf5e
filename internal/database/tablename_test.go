package database

import "testing"

func TestTableNameFor(t *testing.T) {
	cases := []struct {
		name   string
		suffix string
		want   string
	}{
		{"Main Account", "_orders", "mainaccount_orders"},
		{"user-01", "_balance", "user01_balance"},
		{"ALICE", "_records", "alice_records"},
		{"a b.c/d", "_orders", "abcd_orders"},
		{"Üser", "_orders", "ser_orders"},
		{"", "_balance", "_balance"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TableNameFor(tc.name, tc.suffix); got != tc.want {
				t.Errorf("TableNameFor(%q, %q) = %q, want %q", tc.name, tc.suffix, got, tc.want)
			}
		})
	}
}

func TestTableNameCollision(t *testing.T) {
	// different aliases may collapse to the same table name; callers
	// treat that as shared storage, not an error
	a := TableNameFor("my account", "_orders")
	b := TableNameFor("MY-ACCOUNT", "_orders")
	if a != b {
		t.Errorf("expected identical derivation, got %q and %q", a, b)
	}
}
