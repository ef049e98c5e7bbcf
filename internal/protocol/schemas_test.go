package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/KyousabaMC/VeinMiner/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, msg any) {
		t.Helper()
		b, err := protocol.Encode(msg)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}

	serverbound := compile("serverbound.schema.json")
	validate(serverbound, protocol.NewHandshake(protocol.Version))
	validate(serverbound, protocol.NewToggleVeinMiner(true))
	validate(serverbound, protocol.NewRequestVeinMine([3]int{10, 64, -3}))
	validate(serverbound, protocol.NewSelectPattern("veinminer:tunnel"))

	clientbound := compile("clientbound.schema.json")
	validate(clientbound, protocol.NewHandshakeResponse())
	validate(clientbound, protocol.NewSetConfig(protocol.DefaultClientConfig()))
	validate(clientbound, protocol.NewSetPattern("veinminer:default"))
	validate(clientbound, protocol.NewSyncRegisteredPatterns([]string{"veinminer:default", "veinminer:thorough"}))
	validate(clientbound, protocol.NewVeinMineResults(nil))
	validate(clientbound, protocol.NewVeinMineResults([][3]int{{1, 2, 3}}))

	game := compile("game.schema.json")
	validate(game, protocol.NewLogin("steve", ""))
	validate(game, protocol.NewWelcome("7d9c2b1e-3f7a-4f41-9d0b-6c5a1f2e3d4c", "world", 20))
	validate(game, protocol.NewPlayerState([3]float64{0.5, 65.62, 0.5}, [3]float64{0, -1, 0}, false, "minecraft:iron_pickaxe", "world"))
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "serverbound.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var bad any
	_ = json.Unmarshal([]byte(`{"channel":"veinminer:veinminer","type":"REQUEST_VEIN_MINE","position":[1,2]}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("expected short position rejected")
	}
}
