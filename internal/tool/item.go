// Package tool maps held items to vein-mining categories and their limits.
package tool

import (
	"encoding/json"

	"github.com/KyousabaMC/VeinMiner/internal/namespaced"
)

var airItem = namespaced.Minecraftf("air")

// Item is the item stack a player holds. Only the type matters for category
// resolution.
type Item struct {
	Type namespaced.Key
}

func ItemOf(s string) Item {
	k, err := namespaced.FromString(s, namespaced.Minecraft)
	if err != nil {
		return Item{}
	}
	return Item{Type: k}
}

func (i Item) IsEmpty() bool { return i.Type.IsZero() || i.Type == airItem }

func (i Item) String() string {
	if i.IsEmpty() {
		return airItem.String()
	}
	return i.Type.String()
}

func (i Item) MarshalJSON() ([]byte, error) { return json.Marshal(i.String()) }

func (i *Item) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*i = ItemOf(s)
	return nil
}
