package selector

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		key  string
		kind Kind
		name string
	}{
		{"status", Reserved, "status"},
		{"Status", Reserved, "status"},
		{"STATUS", Reserved, "status"},
		{"sortfield", Reserved, "sortField"},
		{"RemoteLookup", Reserved, "remoteLookup"},
		{"createdafter", Reserved, "createdAfter"},
		{"HOSTNAME", ExplicitCase, "HOSTNAME"},
		{"NODECLASS_2", ExplicitCase, "NODECLASS_2"},
		{"Hostname", Generic, "hostname"},
		{"pool", Generic, "pool"},
	}
	for _, tc := range cases {
		got := Classify(tc.key)
		if got.Kind != tc.kind || got.Name != tc.name {
			t.Errorf("Classify(%q) = %v %q, want %v %q", tc.key, got.Kind, got.Name, tc.kind, tc.name)
		}
	}
}

func TestNormalizeDefaultsOnly(t *testing.T) {
	got := Normalize(nil, Defaults())
	want := []Field{
		{Key: "status", Value: "allocated"},
		{Key: "size", Value: "3000"},
		{Key: "operation", Value: "and"},
	}
	if !reflect.DeepEqual(got.Fields(), want) {
		t.Fatalf("got %v, want %v", got.Fields(), want)
	}
}

func TestNormalizeCallerOverridesDefaults(t *testing.T) {
	raw := []Field{
		{Key: "STATUS", Value: "maintenance"},
		{Key: "Operation", Value: "or"},
		{Key: "Pool", Value: "web"},
	}
	got := Normalize(raw, Defaults()).Fields()
	want := []Field{
		{Key: "status", Value: "maintenance"},
		{Key: "size", Value: "3000"},
		{Key: "operation", Value: "or"},
		{Key: "pool", Value: "web"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeKeepsAllCapsFreeForm(t *testing.T) {
	got := Normalize([]Field{{Key: "PRIMARY_ROLE", Value: "db"}}, Selector{})
	if v, ok := got.Get("PRIMARY_ROLE"); !ok || v != "db" {
		t.Fatalf("expected PRIMARY_ROLE=db to survive, got %v", got.Fields())
	}
	if _, ok := got.Get("primary_role"); ok {
		t.Fatalf("all-caps key must not be lowercased")
	}
}

func TestNormalizeDates(t *testing.T) {
	raw := []Field{
		{Key: "createdafter", Value: "2024-03-05"},
		{Key: "UPDATEDBEFORE", Value: "2024-03-05 14:07:09"},
		{Key: "createdBefore", Value: "not a date"},
	}
	got := Normalize(raw, Selector{})
	checks := map[string]string{
		"createdAfter":  "2024-03-05T00:00:00",
		"updatedBefore": "2024-03-05T14:07:09",
		"createdBefore": "not a date",
	}
	for k, want := range checks {
		if v, _ := got.Get(k); v != want {
			t.Errorf("%s = %q, want %q", k, v, want)
		}
	}
}

func TestNormalizeCapacity(t *testing.T) {
	cases := []struct {
		key, in, wantKey, want string
	}{
		{"memory_size_total", "10gb", "memory_size_total", "10000000000"},
		{"MEMORY_SIZE_TOTAL", "2gib", "MEMORY_SIZE_TOTAL", "2147483648"},
		{"Disk_Storage_Total", "500GB", "disk_storage_total", "500000000000"},
		{"disk_storage_total", "1024", "disk_storage_total", "1024"},
		{"disk_storage_total", "lots", "disk_storage_total", "lots"},
		{"rack", "10gb", "rack", "10gb"},
	}
	for _, tc := range cases {
		got := Normalize([]Field{{Key: tc.key, Value: tc.in}}, Selector{})
		if v, _ := got.Get(tc.wantKey); v != tc.want {
			t.Errorf("%s:%s normalized to %q, want %q", tc.key, tc.in, v, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	fields, err := Parse("  status:allocated  pool:web createdafter:2024-01-01T10:00:00 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Field{
		{Key: "status", Value: "allocated"},
		{Key: "pool", Value: "web"},
		{Key: "createdafter", Value: "2024-01-01T10:00:00"},
	}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("got %v, want %v", fields, want)
	}
	for _, bad := range []string{"status", ":web"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestSelectorString(t *testing.T) {
	s := Normalize([]Field{{Key: "pool", Value: "web"}}, Defaults())
	if s.String() != "status:allocated size:3000 pool:web operation:and" {
		t.Fatalf("unexpected string %q", s.String())
	}
}
