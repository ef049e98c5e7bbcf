// Package namespaced implements "namespace:key" identifiers shared by block
// types, pattern keys and plugin message channels.
package namespaced

import (
	"fmt"
	"strings"
)

const (
	Minecraft = "minecraft"
	VeinMiner = "veinminer"
)

type Key struct {
	Namespace string
	Key       string
}

func New(namespace, key string) Key {
	return Key{Namespace: strings.ToLower(namespace), Key: strings.ToLower(key)}
}

func Minecraftf(key string) Key { return New(Minecraft, key) }
func VeinMinerf(key string) Key { return New(VeinMiner, key) }

// FromString parses "ns:key". A missing namespace falls back to defaultNamespace.
func FromString(s, defaultNamespace string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("empty key")
	}
	ns, key, found := strings.Cut(s, ":")
	if !found {
		ns, key = defaultNamespace, s
	}
	if ns == "" || key == "" || strings.Contains(key, ":") {
		return Key{}, fmt.Errorf("malformed key %q", s)
	}
	if strings.ContainsAny(ns+key, " []=,*") {
		return Key{}, fmt.Errorf("malformed key %q", s)
	}
	return New(ns, key), nil
}

// MustParse is FromString for package-level constants; it panics on bad input.
func MustParse(s, defaultNamespace string) Key {
	k, err := FromString(s, defaultNamespace)
	if err != nil {
		panic(err)
	}
	return k
}

func (k Key) IsZero() bool { return k.Namespace == "" && k.Key == "" }

func (k Key) String() string {
	if k.IsZero() {
		return ""
	}
	return k.Namespace + ":" + k.Key
}
