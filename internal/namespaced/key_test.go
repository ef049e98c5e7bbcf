package namespaced

import "testing"

func TestFromString(t *testing.T) {
	k, err := FromString("Default", VeinMiner)
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	if k.String() != "veinminer:default" {
		t.Fatalf("got %q", k)
	}

	k, err = FromString("minecraft:Stone", VeinMiner)
	if err != nil || k != Minecraftf("stone") {
		t.Fatalf("got %v err=%v", k, err)
	}

	for _, bad := range []string{"", "a:", ":b", "a:b:c", "a b", "*"} {
		if _, err := FromString(bad, VeinMiner); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
