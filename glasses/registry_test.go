package glasses

import "testing"

func TestParseName(t *testing.T) {
	tests := []struct {
		name     string
		wantKey  string
		wantSide Side
		wantOK   bool
	}{
		{"Pair_7_L_ABC123", "7", Left, true},
		{"Pair_7_R_ABC123", "7", Right, true},
		{"G1_L_F00D", "G1", Left, true},
		{"G1_R_F00D", "G1", Right, true},
		{"Even_Realities_42_L_1", "42", Left, true},
		{"NoSideHere", "", 0, false},
		{"Plain_Device_Name", "", 0, false},
		{"L_leading_side", "", 0, false}, // side token needs a preceding key segment
		{"", "", 0, false},
	}

	for _, tt := range tests {
		key, side, ok := ParseName(tt.name)
		if ok != tt.wantOK {
			t.Errorf("ParseName(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if key != tt.wantKey || side != tt.wantSide {
			t.Errorf("ParseName(%q) = (%q, %v), want (%q, %v)", tt.name, key, side, tt.wantKey, tt.wantSide)
		}
	}
}

func TestRegistryPairsEitherOrder(t *testing.T) {
	left := Advertisement{Name: "Pair_7_L_A", ID: "id-left"}
	right := Advertisement{Name: "Pair_7_R_B", ID: "id-right"}

	orders := map[string][2]Advertisement{
		"left first":  {left, right},
		"right first": {right, left},
	}

	for name, advs := range orders {
		t.Run(name, func(t *testing.T) {
			r := NewRegistry()

			if _, complete := r.Observe(advs[0]); complete {
				t.Error("pair complete after one side")
			}
			pair, complete := r.Observe(advs[1])
			if !complete {
				t.Fatal("pair not complete after both sides")
			}
			if pair.Key != "7" {
				t.Errorf("pair key = %q, want %q", pair.Key, "7")
			}
			if pair.Left.ID != "id-left" || pair.Right.ID != "id-right" {
				t.Errorf("pair sides = %q/%q, want id-left/id-right", pair.Left.ID, pair.Right.ID)
			}
		})
	}
}

func TestRegistryReadvertiseUpdatesIdentity(t *testing.T) {
	r := NewRegistry()
	r.Observe(Advertisement{Name: "Pair_7_L_A", ID: "old-left"})
	r.Observe(Advertisement{Name: "Pair_7_R_B", ID: "id-right"})
	r.Observe(Advertisement{Name: "Pair_7_L_A", ID: "new-left"})

	pair, ok := r.Pair("7")
	if !ok {
		t.Fatal("pair not found")
	}
	if pair.Left.ID != "new-left" {
		t.Errorf("left ID = %q, want re-advertised identity", pair.Left.ID)
	}
}

func TestRegistryIgnoresUnparsableNames(t *testing.T) {
	r := NewRegistry()
	if _, complete := r.Observe(Advertisement{Name: "RandomHeadphones", ID: "x"}); complete {
		t.Error("unparsable advertisement completed a pair")
	}
	if keys := r.Pairs(); len(keys) != 0 {
		t.Errorf("Pairs() = %v, want empty", keys)
	}
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry()
	r.Observe(Advertisement{Name: "Pair_7_L_A", ID: "a"})
	r.Observe(Advertisement{Name: "Pair_7_R_B", ID: "b"})
	r.Reset()

	if _, ok := r.Pair("7"); ok {
		t.Error("pair survived Reset")
	}
}
