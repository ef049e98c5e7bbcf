package protocol

import (
	"errors"
	"testing"
)

func TestDecode_RoutesByType(t *testing.T) {
	b, err := Encode(NewRequestVeinMine([3]int{1, -2, 3}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	req, ok := msg.(*RequestVeinMineMsg)
	if !ok {
		t.Fatalf("got %T", msg)
	}
	if req.Position != [3]int{1, -2, 3} {
		t.Fatalf("position: %v", req.Position)
	}
}

func TestDecode_DropsForeignChannel(t *testing.T) {
	_, err := Decode([]byte(`{"channel":"other:mod","type":"HANDSHAKE","protocol_version":1}`))
	if !errors.Is(err, ErrForeignChannel) {
		t.Fatalf("expected ErrForeignChannel, got %v", err)
	}
	_, err = Decode([]byte(`{"channel":"veinminer:veinminer","type":"NOPE"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := Decode([]byte(`{`)); err == nil {
		t.Fatalf("expected malformed frame rejected")
	}
}

func TestEmptyResultsEncodeAsArray(t *testing.T) {
	b, err := Encode(NewVeinMineResults(nil))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"channel":"veinminer:veinminer","type":"VEIN_MINE_RESULTS","positions":[]}`
	if string(b) != want {
		t.Fatalf("got %s want %s", b, want)
	}
}

func TestDecodeGame(t *testing.T) {
	b, _ := Encode(NewPlayerState([3]float64{0.5, 65.6, 0.5}, [3]float64{0, -1, 0}, true, "minecraft:diamond_pickaxe", "world"))
	msg, err := DecodeGame(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	st, ok := msg.(*PlayerStateMsg)
	if !ok || !st.Sneaking || st.HeldItem != "minecraft:diamond_pickaxe" {
		t.Fatalf("unexpected %#v", msg)
	}
	if _, err := DecodeGame([]byte(`{"channel":"veinminer:veinminer","type":"LOGIN"}`)); !errors.Is(err, ErrForeignChannel) {
		t.Fatalf("expected foreign channel, got %v", err)
	}
}
